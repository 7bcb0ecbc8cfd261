// Package workspace reads, writes, validates and discovers architecture
// workspace documents.
//
// A workspace document is JSON (comments allowed, stripped with
// github.com/tidwall/jsonc) or YAML (gopkg.in/yaml.v3) holding a named
// model of people, software systems, containers, components and
// relationships. Decoding turns a document into a model.Document; encoding
// writes a model back out with generated IDs.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/archmerge/internal/merge"
	"github.com/shinji-kodama/archmerge/internal/model"
)

// Format is the serialization of a workspace document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// String returns the string representation of Format.
func (f Format) String() string {
	return string(f)
}

// ParseFormat converts a format name to a Format. "yml" and "jsonc" are
// accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "jsonc":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid format: %q (valid: json, yaml)", s)
	}
}

// FormatOf derives the Format from the file extension of location.
// The second result is false for extensions that are not workspace documents.
func FormatOf(location string) (Format, bool) {
	switch strings.ToLower(path.Ext(location)) {
	case ".json", ".jsonc":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// RawWorkspace is the on-disk shape of a workspace document.
type RawWorkspace struct {
	// Name is the workspace name, used as the "[Name] " prefix when
	// prefixing is enabled.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Model RawModel `json:"model" yaml:"model"`
}

// RawModel holds the element tree and the relationships.
type RawModel struct {
	People          []RawElement        `json:"people,omitempty" yaml:"people,omitempty"`
	SoftwareSystems []RawSoftwareSystem `json:"softwareSystems,omitempty" yaml:"softwareSystems,omitempty"`
	Relationships   []RawRelationship   `json:"relationships,omitempty" yaml:"relationships,omitempty"`
}

// RawElement holds the fields shared by every element.
//
// Tags may be written as a list or as one comma separated string, so the
// field is decoded into interface{} and normalized with tagsOf.
type RawElement struct {
	// ID is optional and only used to reference the element from
	// relationships in the same document.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Technology  string      `json:"technology,omitempty" yaml:"technology,omitempty"`
	Tags        interface{} `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// RawSoftwareSystem is a software system and its containers.
type RawSoftwareSystem struct {
	RawElement `yaml:",inline"`

	Containers []RawContainer `json:"containers,omitempty" yaml:"containers,omitempty"`
}

// RawContainer is a container and its components.
type RawContainer struct {
	RawElement `yaml:",inline"`

	Components []RawElement `json:"components,omitempty" yaml:"components,omitempty"`
}

// RawRelationship references its endpoints by element ID, or by element
// name when no ID in the document matches.
type RawRelationship struct {
	Source      string      `json:"source" yaml:"source"`
	Destination string      `json:"destination" yaml:"destination"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Technology  string      `json:"technology,omitempty" yaml:"technology,omitempty"`
	Tags        interface{} `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Unmarshal parses document bytes in the given format. JSON input may
// contain comments and trailing commas.
func Unmarshal(data []byte, format Format) (*RawWorkspace, error) {
	var raw RawWorkspace
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON workspace: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML workspace: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported workspace format %q", format)
	}
	return &raw, nil
}

// Decode parses a workspace document and builds its model. location is
// recorded on the Document for diagnostics.
//
// Documents with validation errors (empty or duplicate sibling names,
// duplicate IDs, dangling relationship references) are rejected as a whole.
// Warnings do not prevent decoding. When two relationships join the same
// pair of elements the first is kept and the later ones are dropped.
func Decode(data []byte, format Format, location string) (*model.Document, error) {
	raw, err := Unmarshal(data, format)
	if err != nil {
		return nil, err
	}
	if errs := Errors(Validate(raw)); len(errs) > 0 {
		return nil, fmt.Errorf("invalid workspace %s: %w", location, errs[0])
	}
	m, err := raw.build()
	if err != nil {
		return nil, fmt.Errorf("invalid workspace %s: %w", location, err)
	}
	return &model.Document{
		Name:        raw.Name,
		Description: raw.Description,
		Location:    location,
		Model:       m,
	}, nil
}

// build turns the raw tree into a model.Model.
func (raw *RawWorkspace) build() (*model.Model, error) {
	m := model.NewModel()
	byID := make(map[string]model.Element)
	remember := func(id string, e model.Element) {
		if id != "" {
			byID[id] = e
		}
	}

	for _, rp := range raw.Model.People {
		p, err := m.AddPerson(rp.Name, rp.Description)
		if err != nil {
			return nil, err
		}
		p.Tags.Add(tagsOf(rp.Tags)...)
		remember(rp.ID, p)
	}

	for _, rs := range raw.Model.SoftwareSystems {
		s, err := m.AddSoftwareSystem(rs.Name, rs.Description)
		if err != nil {
			return nil, err
		}
		s.Technology = rs.Technology
		s.Tags.Add(tagsOf(rs.Tags)...)
		remember(rs.ID, s)

		for _, rc := range rs.Containers {
			c, err := s.AddContainer(rc.Name, rc.Description, rc.Technology)
			if err != nil {
				return nil, err
			}
			c.Tags.Add(tagsOf(rc.Tags)...)
			remember(rc.ID, c)

			for _, rcomp := range rc.Components {
				comp, err := c.AddComponent(rcomp.Name, rcomp.Description, rcomp.Technology)
				if err != nil {
					return nil, err
				}
				comp.Tags.Add(tagsOf(rcomp.Tags)...)
				remember(rcomp.ID, comp)
			}
		}
	}

	lookup := func(ref string) model.Element {
		if e, ok := byID[ref]; ok {
			return e
		}
		return merge.Resolve(m, ref, "")
	}

	for i, rr := range raw.Model.Relationships {
		source, destination := lookup(rr.Source), lookup(rr.Destination)
		if source == nil || destination == nil {
			return nil, fmt.Errorf("relationship %d: unknown endpoint %q -> %q", i, rr.Source, rr.Destination)
		}
		r, err := m.AddRelationship(source, destination, rr.Description, rr.Technology)
		if errors.Is(err, model.ErrRelationshipExists) {
			// The first relationship of a pair wins; later ones only
			// contribute their tags.
			if first := relationshipBetween(m, source, destination); first != nil {
				first.Tags.Add(tagsOf(rr.Tags)...)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("relationship %d: %w", i, err)
		}
		r.Tags.Add(tagsOf(rr.Tags)...)
	}

	return m, nil
}

// relationshipBetween returns the relationship from source to destination,
// or nil.
func relationshipBetween(m *model.Model, source, destination model.Element) *model.Relationship {
	for _, r := range m.Relationships() {
		if r.Source == source && r.Destination == destination {
			return r
		}
	}
	return nil
}

// tagsOf normalizes the tags field, which can be a comma separated string
// or a list of strings. Anything else yields no tags.
func tagsOf(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return model.ParseTags(t)
	case []string:
		return t
	case []interface{}:
		tags := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}
