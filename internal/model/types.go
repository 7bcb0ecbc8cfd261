package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrDuplicateName is returned when an element is added next to a
	// sibling that already carries the same name. Sibling names are the
	// only identity elements have across documents, so they must be unique.
	ErrDuplicateName = errors.New("duplicate element name")

	// ErrRelationshipExists is returned when a relationship is added for a
	// (source, destination) pair that is already connected.
	ErrRelationshipExists = errors.New("relationship already exists")

	// ErrUnsupportedKind is returned for an element kind the model cannot
	// connect a relationship to.
	ErrUnsupportedKind = errors.New("unsupported element kind")
)

// ElementKind is the closed set of element types in the model.
// It is the tag that relationship creation switches on.
type ElementKind string

const (
	// KindPerson is a user or actor outside the described systems.
	KindPerson ElementKind = "Person"

	// KindSoftwareSystem is a top-level system.
	KindSoftwareSystem ElementKind = "SoftwareSystem"

	// KindContainer is a deployable unit owned by one software system.
	KindContainer ElementKind = "Container"

	// KindComponent is a building block owned by one container.
	KindComponent ElementKind = "Component"
)

// String returns the string representation of ElementKind.
func (k ElementKind) String() string {
	return string(k)
}

// IsValid checks whether the ElementKind value is one of the predefined kinds.
func (k ElementKind) IsValid() bool {
	switch k {
	case KindPerson, KindSoftwareSystem, KindContainer, KindComponent:
		return true
	default:
		return false
	}
}

// ParseElementKind converts a string to an ElementKind. Matching is case
// insensitive. Returns an error if the string does not name a valid kind.
func ParseElementKind(s string) (ElementKind, error) {
	for _, k := range []ElementKind{KindPerson, KindSoftwareSystem, KindContainer, KindComponent} {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid element kind: %q (valid: Person, SoftwareSystem, Container, Component)", s)
}

// Tags is an ordered set of tag strings. Order of first insertion is kept
// so that serialized output is stable.
type Tags []string

// ParseTags splits a comma separated tag list into Tags.
func ParseTags(s string) Tags {
	var tags Tags
	tags.Add(strings.Split(s, ",")...)
	return tags
}

// Add appends tags that are not already present. Surrounding whitespace is
// trimmed and empty tags are dropped.
func (t *Tags) Add(tags ...string) {
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || t.Contains(tag) {
			continue
		}
		*t = append(*t, tag)
	}
}

// Contains reports whether tag is in the set.
func (t Tags) Contains(tag string) bool {
	for _, existing := range t {
		if existing == tag {
			return true
		}
	}
	return false
}

// String returns the tags joined by commas.
func (t Tags) String() string {
	return strings.Join(t, ",")
}

// ElementBase holds the fields shared by every element kind.
type ElementBase struct {
	// ID is unique within the owning Model and assigned on creation.
	ID string

	// Name identifies the element among its siblings.
	Name string

	Description string

	// Technology is meaningful for containers and components only.
	Technology string

	Tags Tags
}

// Element is implemented by *Person, *SoftwareSystem, *Container and
// *Component only. The unexported method keeps the set closed so that a
// switch over Kind() is exhaustive.
type Element interface {
	Kind() ElementKind
	Base() *ElementBase
	sealed()
}

// Person is a named actor. People have no children.
type Person struct {
	ElementBase
}

// Kind returns KindPerson.
func (p *Person) Kind() ElementKind { return KindPerson }

// Base returns the shared element fields.
func (p *Person) Base() *ElementBase { return &p.ElementBase }

func (p *Person) sealed() {}

// SoftwareSystem is a top-level system that owns containers.
type SoftwareSystem struct {
	ElementBase

	model      *Model
	containers []*Container
}

// Kind returns KindSoftwareSystem.
func (s *SoftwareSystem) Kind() ElementKind { return KindSoftwareSystem }

// Base returns the shared element fields.
func (s *SoftwareSystem) Base() *ElementBase { return &s.ElementBase }

func (s *SoftwareSystem) sealed() {}

// Containers returns the containers owned by this system in creation order.
func (s *SoftwareSystem) Containers() []*Container {
	return s.containers
}

// ContainerWithName returns the directly owned container named name, or nil.
func (s *SoftwareSystem) ContainerWithName(name string) *Container {
	for _, c := range s.containers {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddContainer creates a container inside this system.
// Returns ErrDuplicateName if a container with that name already exists.
func (s *SoftwareSystem) AddContainer(name, description, technology string) (*Container, error) {
	if s.ContainerWithName(name) != nil {
		return nil, fmt.Errorf("container %q in software system %q: %w", name, s.Name, ErrDuplicateName)
	}
	c := &Container{
		ElementBase: ElementBase{Name: name, Description: description, Technology: technology},
		system:      s,
	}
	s.model.register(c)
	s.containers = append(s.containers, c)
	return c, nil
}

// Container is a deployable unit owned by exactly one software system.
type Container struct {
	ElementBase

	system     *SoftwareSystem
	components []*Component
}

// Kind returns KindContainer.
func (c *Container) Kind() ElementKind { return KindContainer }

// Base returns the shared element fields.
func (c *Container) Base() *ElementBase { return &c.ElementBase }

func (c *Container) sealed() {}

// SoftwareSystem returns the owning system.
func (c *Container) SoftwareSystem() *SoftwareSystem {
	return c.system
}

// Components returns the components owned by this container in creation order.
func (c *Container) Components() []*Component {
	return c.components
}

// ComponentWithName returns the directly owned component named name, or nil.
func (c *Container) ComponentWithName(name string) *Component {
	for _, comp := range c.components {
		if comp.Name == name {
			return comp
		}
	}
	return nil
}

// AddComponent creates a component inside this container.
// Returns ErrDuplicateName if a component with that name already exists.
func (c *Container) AddComponent(name, description, technology string) (*Component, error) {
	if c.ComponentWithName(name) != nil {
		return nil, fmt.Errorf("component %q in container %q: %w", name, c.Name, ErrDuplicateName)
	}
	comp := &Component{
		ElementBase: ElementBase{Name: name, Description: description, Technology: technology},
		container:   c,
	}
	c.system.model.register(comp)
	c.components = append(c.components, comp)
	return comp, nil
}

// Component is the leaf of the containment hierarchy.
type Component struct {
	ElementBase

	container *Container
}

// Kind returns KindComponent.
func (c *Component) Kind() ElementKind { return KindComponent }

// Base returns the shared element fields.
func (c *Component) Base() *ElementBase { return &c.ElementBase }

func (c *Component) sealed() {}

// Container returns the owning container.
func (c *Component) Container() *Container {
	return c.container
}

// RelationshipKind distinguishes a person-delivery edge from a usage edge.
type RelationshipKind string

const (
	// RelationshipUses points at a software system, container or component.
	RelationshipUses RelationshipKind = "uses"

	// RelationshipDelivers points at a person.
	RelationshipDelivers RelationshipKind = "delivers"
)

// String returns the string representation of RelationshipKind.
func (k RelationshipKind) String() string {
	return string(k)
}

// Relationship is a directed edge between two elements of the same Model.
type Relationship struct {
	ID          string
	Kind        RelationshipKind
	Source      Element
	Destination Element
	Description string
	Technology  string
	Tags        Tags
}

// Model is the mutable architecture graph. The zero value is not usable;
// create models with NewModel.
type Model struct {
	people        []*Person
	systems       []*SoftwareSystem
	relationships []*Relationship

	elements map[string]Element
	lastID   int
}

// NewModel returns an empty Model.
func NewModel() *Model {
	return &Model{elements: make(map[string]Element)}
}

// nextID hands out model-unique identifiers shared by elements and
// relationships, the same way a single sequence numbers everything in a
// workspace file.
func (m *Model) nextID() string {
	m.lastID++
	return strconv.Itoa(m.lastID)
}

func (m *Model) register(e Element) {
	id := m.nextID()
	e.Base().ID = id
	m.elements[id] = e
}

// People returns all people in creation order.
func (m *Model) People() []*Person {
	return m.people
}

// SoftwareSystems returns all software systems in creation order.
func (m *Model) SoftwareSystems() []*SoftwareSystem {
	return m.systems
}

// Relationships returns all relationships in creation order.
func (m *Model) Relationships() []*Relationship {
	return m.relationships
}

// ElementWithID returns the element with the given model ID, or nil.
func (m *Model) ElementWithID(id string) Element {
	return m.elements[id]
}

// Elements returns every element depth first: people, then each system
// followed by its containers and their components.
func (m *Model) Elements() []Element {
	result := make([]Element, 0, len(m.elements))
	for _, p := range m.people {
		result = append(result, p)
	}
	for _, s := range m.systems {
		result = append(result, s)
		for _, c := range s.containers {
			result = append(result, c)
			for _, comp := range c.components {
				result = append(result, comp)
			}
		}
	}
	return result
}

// PersonWithName returns the person named name, or nil.
func (m *Model) PersonWithName(name string) *Person {
	for _, p := range m.people {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// SoftwareSystemWithName returns the software system named name, or nil.
func (m *Model) SoftwareSystemWithName(name string) *SoftwareSystem {
	for _, s := range m.systems {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// AddPerson creates a person. Returns ErrDuplicateName if the name is taken.
func (m *Model) AddPerson(name, description string) (*Person, error) {
	if m.PersonWithName(name) != nil {
		return nil, fmt.Errorf("person %q: %w", name, ErrDuplicateName)
	}
	p := &Person{ElementBase: ElementBase{Name: name, Description: description}}
	m.register(p)
	m.people = append(m.people, p)
	return p, nil
}

// AddSoftwareSystem creates a software system. Returns ErrDuplicateName if
// the name is taken.
func (m *Model) AddSoftwareSystem(name, description string) (*SoftwareSystem, error) {
	if m.SoftwareSystemWithName(name) != nil {
		return nil, fmt.Errorf("software system %q: %w", name, ErrDuplicateName)
	}
	s := &SoftwareSystem{
		ElementBase: ElementBase{Name: name, Description: description},
		model:       m,
	}
	m.register(s)
	m.systems = append(m.systems, s)
	return s, nil
}

// HasEfferentRelationship reports whether source already has a relationship
// pointing at destination. Description and tags are not compared.
func (m *Model) HasEfferentRelationship(source, destination Element) bool {
	for _, r := range m.relationships {
		if r.Source == source && r.Destination == destination {
			return true
		}
	}
	return false
}

// AddRelationship connects source to destination. The relationship kind is
// derived from the destination: people are delivered to, everything else is
// used. Returns ErrRelationshipExists if the pair is already connected.
func (m *Model) AddRelationship(source, destination Element, description, technology string) (*Relationship, error) {
	var kind RelationshipKind
	switch destination.Kind() {
	case KindPerson:
		kind = RelationshipDelivers
	case KindSoftwareSystem, KindContainer, KindComponent:
		kind = RelationshipUses
	default:
		return nil, fmt.Errorf("relationship destination %q: %w", destination.Kind(), ErrUnsupportedKind)
	}

	if m.HasEfferentRelationship(source, destination) {
		return nil, fmt.Errorf("%s -> %s: %w", source.Base().Name, destination.Base().Name, ErrRelationshipExists)
	}

	r := &Relationship{
		ID:          m.nextID(),
		Kind:        kind,
		Source:      source,
		Destination: destination,
		Description: description,
		Technology:  technology,
	}
	m.relationships = append(m.relationships, r)
	return r, nil
}

// Document is one fully loaded source model. It is read-only input to a
// merge run.
type Document struct {
	// Name is the optional workspace name, used as the "[Name] " prefix.
	Name string

	Description string

	// Location is the URL or path the document was loaded from.
	Location string

	Model *Model
}
