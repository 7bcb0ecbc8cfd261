package merge

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/shinji-kodama/archmerge/internal/model"
)

// elementSnapshot is a comparable, pointer-free view of one element.
type elementSnapshot struct {
	Kind        model.ElementKind
	Name        string
	Description string
	Technology  string
	Tags        []string
	Children    []elementSnapshot
}

// relationshipSnapshot is a comparable view of one relationship.
type relationshipSnapshot struct {
	Kind        model.RelationshipKind
	Source      string
	Destination string
	Description string
	Technology  string
	Tags        []string
}

type modelSnapshot struct {
	People        []elementSnapshot
	Systems       []elementSnapshot
	Relationships []relationshipSnapshot
}

func snapshotElement(e model.Element) elementSnapshot {
	b := e.Base()
	return elementSnapshot{
		Kind:        e.Kind(),
		Name:        b.Name,
		Description: b.Description,
		Technology:  b.Technology,
		Tags:        append([]string(nil), b.Tags...),
	}
}

// snapshot captures the whole state of m, IDs excluded.
func snapshot(m *model.Model) modelSnapshot {
	var snap modelSnapshot
	for _, p := range m.People() {
		snap.People = append(snap.People, snapshotElement(p))
	}
	for _, s := range m.SoftwareSystems() {
		sys := snapshotElement(s)
		for _, c := range s.Containers() {
			cont := snapshotElement(c)
			for _, comp := range c.Components() {
				cont.Children = append(cont.Children, snapshotElement(comp))
			}
			sys.Children = append(sys.Children, cont)
		}
		snap.Systems = append(snap.Systems, sys)
	}
	for _, r := range m.Relationships() {
		snap.Relationships = append(snap.Relationships, relationshipSnapshot{
			Kind:        r.Kind,
			Source:      r.Source.Base().Name,
			Destination: r.Destination.Base().Name,
			Description: r.Description,
			Technology:  r.Technology,
			Tags:        append([]string(nil), r.Tags...),
		})
	}
	return snap
}

// ordersDocument builds a source document with one person, two systems,
// containers, components and relationships at every level.
//
//	Customer -> Orders (Places orders)
//	Orders.API -> Orders.Database (Reads and writes)
//	Orders.API.Handler -> Billing (Charges)
//	Billing -> Customer (Sends invoices)
func ordersDocument(t *testing.T, name string) *model.Document {
	t.Helper()
	m := model.NewModel()

	customer, err := m.AddPerson("Customer", "A paying customer")
	require.NoError(t, err)

	orders, err := m.AddSoftwareSystem("Orders", "Takes orders")
	require.NoError(t, err)
	orders.Tags.Add("Internal")

	api, err := orders.AddContainer("API", "Order API", "Go")
	require.NoError(t, err)
	api.Tags.Add("Service")
	handler, err := api.AddComponent("Handler", "HTTP handlers", "net/http")
	require.NoError(t, err)
	_, err = api.AddComponent("Repository", "Data access", "pgx")
	require.NoError(t, err)
	db, err := orders.AddContainer("Database", "Order store", "PostgreSQL")
	require.NoError(t, err)

	billing, err := m.AddSoftwareSystem("Billing", "Charges customers")
	require.NoError(t, err)

	rel, err := m.AddRelationship(customer, orders, "Places orders", "HTTPS")
	require.NoError(t, err)
	rel.Tags.Add("External")
	_, err = m.AddRelationship(api, db, "Reads and writes", "SQL")
	require.NoError(t, err)
	_, err = m.AddRelationship(handler, billing, "Charges", "gRPC")
	require.NoError(t, err)
	_, err = m.AddRelationship(billing, customer, "Sends invoices", "")
	require.NoError(t, err)

	return &model.Document{Name: name, Location: "file:///tmp/" + name + ".json", Model: m}
}

// observedLogger returns a logger that records entries for assertions.
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}
