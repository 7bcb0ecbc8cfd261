package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/archmerge/internal/model"
)

// mergeAllSystems copies every system of doc into target.
func mergeAllSystems(t *testing.T, doc *model.Document, target *model.Model, opts Options) {
	t.Helper()
	for _, s := range doc.Model.SoftwareSystems() {
		_, err := MergeSoftwareSystem(doc, s, target, opts)
		require.NoError(t, err)
	}
}

// relationshipTo returns the first relationship from doc with the given
// source and destination names.
func relationshipTo(t *testing.T, doc *model.Document, source, destination string) *model.Relationship {
	t.Helper()
	for _, r := range doc.Model.Relationships() {
		if r.Source.Base().Name == source && r.Destination.Base().Name == destination {
			return r
		}
	}
	t.Fatalf("relationship %s -> %s not found", source, destination)
	return nil
}

// TestCloneRelationship_Kinds clones relationships whose destination is a
// person, a system and a container.
func TestCloneRelationship_Kinds(t *testing.T) {
	doc := ordersDocument(t, "Shop")
	target := model.NewModel()
	_, _ = target.AddPerson("Customer", "")
	mergeAllSystems(t, doc, target, Options{})

	tests := []struct {
		source      string
		destination string
		kind        model.RelationshipKind
		technology  string
	}{
		{"Customer", "Orders", model.RelationshipUses, "HTTPS"},
		{"API", "Database", model.RelationshipUses, "SQL"},
		{"Handler", "Billing", model.RelationshipUses, "gRPC"},
		{"Billing", "Customer", model.RelationshipDelivers, ""},
	}

	for _, tt := range tests {
		t.Run(tt.source+"->"+tt.destination, func(t *testing.T) {
			rel := relationshipTo(t, doc, tt.source, tt.destination)
			cloned, outcome, err := CloneRelationship(doc, rel, target, Options{})
			require.NoError(t, err)
			require.Equal(t, Cloned, outcome)
			require.NotNil(t, cloned)

			assert.Equal(t, tt.kind, cloned.Kind)
			assert.Equal(t, rel.Description, cloned.Description)
			assert.Equal(t, tt.technology, cloned.Technology)
			assert.Equal(t, tt.source, cloned.Source.Base().Name)
			assert.Equal(t, tt.destination, cloned.Destination.Base().Name)

			// The clone points at target elements, not source ones.
			assert.Same(t, Resolve(target, tt.source, ""), cloned.Source)
		})
	}

	placed := relationshipTo(t, doc, "Customer", "Orders")
	assert.Equal(t, model.Tags{"External"}, target.Relationships()[0].Tags)
	assert.Equal(t, placed.Description, target.Relationships()[0].Description)
}

// TestCloneRelationship_Duplicate checks that an existing pair is never
// connected twice, whatever the description.
func TestCloneRelationship_Duplicate(t *testing.T) {
	doc := ordersDocument(t, "Shop")
	target := model.NewModel()
	mergeAllSystems(t, doc, target, Options{})

	orders := target.SoftwareSystemWithName("Orders")
	existing, err := target.AddRelationship(orders.ContainerWithName("API"), orders.ContainerWithName("Database"), "Different words", "")
	require.NoError(t, err)

	rel := relationshipTo(t, doc, "API", "Database")
	cloned, outcome, err := CloneRelationship(doc, rel, target, Options{})
	require.NoError(t, err)
	assert.Nil(t, cloned)
	assert.Equal(t, Duplicate, outcome)
	assert.Len(t, target.Relationships(), 1)
	assert.Equal(t, "Different words", existing.Description)
}

// TestCloneRelationship_Unresolved covers a destination that matches
// nothing in the target.
func TestCloneRelationship_Unresolved(t *testing.T) {
	doc := ordersDocument(t, "Shop")
	target := model.NewModel()
	mergeAllSystems(t, doc, target, Options{})
	logger, logs := observedLogger()

	// Customer was never merged into the target.
	rel := relationshipTo(t, doc, "Billing", "Customer")
	cloned, outcome, err := CloneRelationship(doc, rel, target, Options{Logger: logger})
	require.NoError(t, err)
	assert.Nil(t, cloned)
	assert.Equal(t, Unresolved, outcome)
	assert.Empty(t, target.Relationships())

	entries := logs.FilterMessage("relationship endpoint not found in target").All()
	require.Len(t, entries, 1)
	assert.Equal(t, true, entries[0].ContextMap()["sourceFound"])
	assert.Equal(t, false, entries[0].ContextMap()["destinationFound"])
}

// TestCloneRelationship_Prefix resolves container endpoints through the
// document prefix.
func TestCloneRelationship_Prefix(t *testing.T) {
	doc := ordersDocument(t, "Legacy")
	target := model.NewModel()
	mergeAllSystems(t, doc, target, Options{UsePrefix: true})

	rel := relationshipTo(t, doc, "API", "Database")

	// Without the prefix the names do not exist in the target.
	_, outcome, err := CloneRelationship(doc, rel, target, Options{})
	require.NoError(t, err)
	assert.Equal(t, Unresolved, outcome)

	cloned, outcome, err := CloneRelationship(doc, rel, target, Options{UsePrefix: true})
	require.NoError(t, err)
	require.Equal(t, Cloned, outcome)
	assert.Equal(t, "[Legacy] API", cloned.Source.Base().Name)
	assert.Equal(t, "[Legacy] Database", cloned.Destination.Base().Name)

	// System endpoints are looked up without the prefix.
	handlerToBilling := relationshipTo(t, doc, "Handler", "Billing")
	cloned, outcome, err = CloneRelationship(doc, handlerToBilling, target, Options{UsePrefix: true})
	require.NoError(t, err)
	require.Equal(t, Cloned, outcome)
	assert.Equal(t, "[Legacy] Handler", cloned.Source.Base().Name)
	assert.Equal(t, "Billing", cloned.Destination.Base().Name)
}

func TestCloneOutcome_String(t *testing.T) {
	assert.Equal(t, "cloned", Cloned.String())
	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "unresolved", Unresolved.String())
	assert.Equal(t, "unknown", CloneOutcome(42).String())
}
