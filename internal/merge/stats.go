package merge

// ElementCounts tallies what happened to the elements of one kind.
type ElementCounts struct {
	// Created elements did not exist in the target by name.
	Created int `json:"created"`

	// Updated elements existed and had at least one empty field filled in
	// or a tag added.
	Updated int `json:"updated"`

	// Unchanged elements existed and already carried everything the source had.
	Unchanged int `json:"unchanged"`

	// Skipped elements were excluded by the include filter.
	Skipped int `json:"skipped"`
}

func (c *ElementCounts) add(other ElementCounts) {
	c.Created += other.Created
	c.Updated += other.Updated
	c.Unchanged += other.Unchanged
	c.Skipped += other.Skipped
}

// record counts an element that passed the filter.
func (c *ElementCounts) record(created, changed bool) {
	switch {
	case created:
		c.Created++
	case changed:
		c.Updated++
	default:
		c.Unchanged++
	}
}

// RelationshipCounts tallies relationship cloning outcomes.
type RelationshipCounts struct {
	Cloned     int `json:"cloned"`
	Duplicate  int `json:"duplicate"`
	Unresolved int `json:"unresolved"`
}

// Stats summarises a merge run. Counts are per element occurrence, so an
// element present in two documents is counted twice.
type Stats struct {
	// Documents is the number of documents processed.
	Documents int `json:"documents"`

	// Failed is the number of documents during which an unexpected error
	// was logged. Their remaining elements were still merged.
	Failed int `json:"failed"`

	People          ElementCounts      `json:"people"`
	SoftwareSystems ElementCounts      `json:"softwareSystems"`
	Containers      ElementCounts      `json:"containers"`
	Components      ElementCounts      `json:"components"`
	Relationships   RelationshipCounts `json:"relationships"`
}

// Add accumulates other into s.
func (s *Stats) Add(other *Stats) {
	if other == nil {
		return
	}
	s.Documents += other.Documents
	s.Failed += other.Failed
	s.People.add(other.People)
	s.SoftwareSystems.add(other.SoftwareSystems)
	s.Containers.add(other.Containers)
	s.Components.add(other.Components)
	s.Relationships.Cloned += other.Relationships.Cloned
	s.Relationships.Duplicate += other.Relationships.Duplicate
	s.Relationships.Unresolved += other.Relationships.Unresolved
}
