package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/archmerge/internal/filter"
	"github.com/shinji-kodama/archmerge/internal/model"
)

// TestImporter_Run merges a full document including people.
func TestImporter_Run(t *testing.T) {
	doc := ordersDocument(t, "Shop")
	target := model.NewModel()

	stats, err := NewImporter(Options{IncludePeople: true}).Run(target, []*model.Document{doc})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 1, stats.People.Created)
	assert.Equal(t, 2, stats.SoftwareSystems.Created)
	assert.Equal(t, RelationshipCounts{Cloned: 4}, stats.Relationships)
	assert.Len(t, target.Relationships(), 4)
}

// TestImporter_WithoutPeople keeps the default behaviour: people are not
// imported, so relationships touching them only bind to people already in
// the target.
func TestImporter_WithoutPeople(t *testing.T) {
	doc := ordersDocument(t, "Shop")
	target := model.NewModel()

	stats, err := NewImporter(Options{}).Run(target, []*model.Document{doc})
	require.NoError(t, err)
	assert.Empty(t, target.People())
	assert.Equal(t, RelationshipCounts{Cloned: 2, Unresolved: 2}, stats.Relationships)
}

// TestImporter_Idempotent runs the same import twice and compares full
// model snapshots.
func TestImporter_Idempotent(t *testing.T) {
	opts := Options{IncludePeople: true, UsePrefix: true, Filter: filter.Everything()}
	target := model.NewModel()
	docs := []*model.Document{ordersDocument(t, "Shop"), ordersDocument(t, "Legacy")}

	_, err := NewImporter(opts).Run(target, docs)
	require.NoError(t, err)
	once := snapshot(target)

	stats, err := NewImporter(opts).Run(target, docs)
	require.NoError(t, err)
	twice := snapshot(target)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second run changed the model (-once +twice):\n%s", diff)
	}
	assert.Equal(t, 0, stats.SoftwareSystems.Created)
	assert.Equal(t, 0, stats.Relationships.Cloned)
	assert.Equal(t, 8, stats.Relationships.Duplicate)
}

// TestImporter_NoDuplication feeds two documents with the same
// relationship and expects exactly one edge per pair.
func TestImporter_NoDuplication(t *testing.T) {
	target := model.NewModel()
	docs := []*model.Document{ordersDocument(t, "A"), ordersDocument(t, "B")}

	stats, err := NewImporter(Options{IncludePeople: true}).Run(target, docs)
	require.NoError(t, err)

	pairs := map[[2]string]int{}
	for _, r := range target.Relationships() {
		pairs[[2]string{r.Source.Base().ID, r.Destination.Base().ID}]++
	}
	for pair, n := range pairs {
		assert.Equal(t, 1, n, "pair %v", pair)
	}
	assert.Len(t, target.Relationships(), 4)
	assert.Equal(t, RelationshipCounts{Cloned: 4, Duplicate: 4}, stats.Relationships)
}

// TestImporter_LaterDocumentsBindToEarlierElements checks that a document
// can reference elements introduced by a document imported before it, and
// that the import order therefore matters.
func TestImporter_LaterDocumentsBindToEarlierElements(t *testing.T) {
	first := model.NewModel()
	payments, _ := first.AddSoftwareSystem("Payments", "Moves money")
	_, _ = payments.AddContainer("Ledger", "Double entry book", "PostgreSQL")

	// The second document only knows Ledger under a system the include
	// list rejects, so Ledger itself never comes from this document.
	second := model.NewModel()
	shop, _ := second.AddSoftwareSystem("Shop", "")
	external, _ := second.AddSoftwareSystem("External", "")
	ledger, _ := external.AddContainer("Ledger", "", "")
	_, err := second.AddRelationship(shop, ledger, "Books sales", "")
	require.NoError(t, err)

	opts := Options{Filter: filter.New([]string{"softwareSystem.[Payments]", "softwareSystem.[Shop]", "container.*"})}

	target := model.NewModel()
	_, err = NewImporter(opts).Run(target, []*model.Document{
		{Name: "first", Model: first},
		{Name: "second", Model: second},
	})
	require.NoError(t, err)
	assert.Nil(t, target.SoftwareSystemWithName("External"))
	require.Len(t, target.Relationships(), 1)
	rel := target.Relationships()[0]
	assert.Same(t, target.SoftwareSystemWithName("Shop"), rel.Source)
	assert.Same(t, target.SoftwareSystemWithName("Payments").ContainerWithName("Ledger"), rel.Destination)

	// In reverse order Ledger does not exist yet when the relationship is
	// cloned, and the first document has no relationship to add later.
	reversed := model.NewModel()
	stats, err := NewImporter(opts).Run(reversed, []*model.Document{
		{Name: "second", Model: second},
		{Name: "first", Model: first},
	})
	require.NoError(t, err)
	assert.Empty(t, reversed.Relationships())
	assert.Equal(t, 1, stats.Relationships.Unresolved)
}

// TestImporter_NoDocuments reports and leaves the target alone.
func TestImporter_NoDocuments(t *testing.T) {
	logger, logs := observedLogger()
	target := model.NewModel()

	stats, err := NewImporter(Options{Logger: logger}).Run(target, nil)
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, stats)
	assert.Empty(t, target.SoftwareSystems())
	assert.Equal(t, 1, logs.FilterMessage("no workspaces found").Len())
}

func TestImporter_NilTarget(t *testing.T) {
	_, err := NewImporter(Options{}).Run(nil, nil)
	assert.Error(t, err)
}

// TestImporter_LogsProgress checks the per-document progress entry.
func TestImporter_LogsProgress(t *testing.T) {
	logger, logs := observedLogger()
	doc := ordersDocument(t, "Shop")

	_, err := NewImporter(Options{Logger: logger}).Run(model.NewModel(), []*model.Document{doc})
	require.NoError(t, err)

	entries := logs.FilterMessage("importing workspace").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "Shop", entries[0].ContextMap()["document"])
	assert.Equal(t, 2, logs.FilterMessage("cloning system").Len())
	assert.Equal(t, 2, logs.FilterMessage("cloning relationship").Len())
}
