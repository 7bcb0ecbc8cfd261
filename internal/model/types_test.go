package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestElementKind_IsValid checks that only defined kinds pass validation.
func TestElementKind_IsValid(t *testing.T) {
	assert.True(t, KindPerson.IsValid())
	assert.True(t, KindSoftwareSystem.IsValid())
	assert.True(t, KindContainer.IsValid())
	assert.True(t, KindComponent.IsValid())
	assert.False(t, ElementKind("DeploymentNode").IsValid())
	assert.False(t, ElementKind("").IsValid())
}

// TestParseElementKind verifies string-to-kind conversion,
// including case normalization and error cases.
func TestParseElementKind(t *testing.T) {
	tests := []struct {
		input    string
		expected ElementKind
		hasError bool
	}{
		{"Person", KindPerson, false},
		{"softwaresystem", KindSoftwareSystem, false},
		{"CONTAINER", KindContainer, false},
		{"Component", KindComponent, false},
		{"group", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseElementKind(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestTags_Add(t *testing.T) {
	var tags Tags
	tags.Add("Internal", " Database ", "", "Internal")
	assert.Equal(t, Tags{"Internal", "Database"}, tags)

	tags.Add("Legacy")
	assert.Equal(t, "Internal,Database,Legacy", tags.String())
	assert.True(t, tags.Contains("Legacy"))
	assert.False(t, tags.Contains("legacy"), "tags are case sensitive")
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, Tags{"a", "b"}, ParseTags("a, b,,a"))
	assert.Nil(t, ParseTags(""))
}

// TestModel_Hierarchy builds a small model and checks lookups at every
// level of the containment hierarchy.
func TestModel_Hierarchy(t *testing.T) {
	m := NewModel()

	user, err := m.AddPerson("Customer", "Buys things")
	require.NoError(t, err)
	orders, err := m.AddSoftwareSystem("Orders", "Order handling")
	require.NoError(t, err)
	api, err := orders.AddContainer("API", "REST API", "Go")
	require.NoError(t, err)
	handler, err := api.AddComponent("Handler", "HTTP handler", "net/http")
	require.NoError(t, err)

	assert.Same(t, user, m.PersonWithName("Customer"))
	assert.Same(t, orders, m.SoftwareSystemWithName("Orders"))
	assert.Same(t, api, orders.ContainerWithName("API"))
	assert.Same(t, handler, api.ComponentWithName("Handler"))
	assert.Same(t, orders, api.SoftwareSystem())
	assert.Same(t, api, handler.Container())

	assert.Nil(t, m.PersonWithName("Orders"))
	assert.Nil(t, m.SoftwareSystemWithName("API"))
	assert.Nil(t, orders.ContainerWithName("Handler"))

	// IDs are unique and resolvable.
	ids := map[string]bool{}
	for _, e := range m.Elements() {
		id := e.Base().ID
		assert.False(t, ids[id], "duplicate id %s", id)
		ids[id] = true
		assert.Same(t, e, m.ElementWithID(id))
	}
	assert.Len(t, ids, 4)
}

// TestModel_DuplicateNames verifies sibling-scope name uniqueness.
func TestModel_DuplicateNames(t *testing.T) {
	m := NewModel()
	_, err := m.AddPerson("Customer", "")
	require.NoError(t, err)
	_, err = m.AddPerson("Customer", "")
	assert.ErrorIs(t, err, ErrDuplicateName)

	s, err := m.AddSoftwareSystem("Orders", "")
	require.NoError(t, err)
	_, err = m.AddSoftwareSystem("Orders", "")
	assert.ErrorIs(t, err, ErrDuplicateName)

	c, err := s.AddContainer("API", "", "")
	require.NoError(t, err)
	_, err = s.AddContainer("API", "", "")
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = c.AddComponent("Handler", "", "")
	require.NoError(t, err)
	_, err = c.AddComponent("Handler", "", "")
	assert.ErrorIs(t, err, ErrDuplicateName)

	// The same name under a different parent is fine.
	other, err := m.AddSoftwareSystem("Billing", "")
	require.NoError(t, err)
	_, err = other.AddContainer("API", "", "")
	assert.NoError(t, err)
}

// TestModel_AddRelationship checks kind selection by destination and the
// (source, destination) dedup key.
func TestModel_AddRelationship(t *testing.T) {
	m := NewModel()
	user, _ := m.AddPerson("Customer", "")
	orders, _ := m.AddSoftwareSystem("Orders", "")
	api, _ := orders.AddContainer("API", "", "")
	db, _ := orders.AddContainer("Database", "", "")
	handler, _ := api.AddComponent("Handler", "", "")

	tests := []struct {
		name        string
		source      Element
		destination Element
		kind        RelationshipKind
	}{
		{"to person", orders, user, RelationshipDelivers},
		{"to system", user, orders, RelationshipUses},
		{"to container", api, db, RelationshipUses},
		{"to component", user, handler, RelationshipUses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := m.AddRelationship(tt.source, tt.destination, "desc", "HTTPS")
			require.NoError(t, err)
			assert.Equal(t, tt.kind, r.Kind)
			assert.Equal(t, "desc", r.Description)
			assert.Equal(t, "HTTPS", r.Technology)
			assert.True(t, m.HasEfferentRelationship(tt.source, tt.destination))
		})
	}

	// Direction matters for the dedup key.
	assert.False(t, m.HasEfferentRelationship(db, api))

	_, err := m.AddRelationship(api, db, "another description", "")
	assert.True(t, errors.Is(err, ErrRelationshipExists))
	assert.Len(t, m.Relationships(), 4)
}

// TestCLIError_Error verifies error message formatting with and without
// an underlying error.
func TestCLIError_Error(t *testing.T) {
	e := NewCLIError(ExitWorkspaceNotFound, "workspace not found")
	assert.Equal(t, "workspace not found", e.Error())
	assert.Nil(t, e.Unwrap())

	underlying := errors.New("no such file")
	wrapped := WrapCLIError(ExitParseError, "failed to load", underlying)
	assert.Equal(t, "failed to load: no such file", wrapped.Error())
	assert.Equal(t, ExitParseError, wrapped.Code)
	assert.True(t, errors.Is(wrapped, underlying))
}
