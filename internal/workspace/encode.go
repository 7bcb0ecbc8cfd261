// encode.go writes a model back out as a workspace document.
//
// Encoding is the inverse of Decode for everything the model keeps: element
// IDs are the model's generated IDs, and relationships reference their
// endpoints by those IDs so that names shared across levels stay unambiguous.
package workspace

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/archmerge/internal/model"
)

// Encode serializes doc in the given format. JSON output is indented with
// two spaces; YAML output carries a generated-file header comment. Both end
// with a trailing newline.
func Encode(doc *model.Document, format Format) ([]byte, error) {
	if doc == nil || doc.Model == nil {
		return nil, fmt.Errorf("cannot encode an empty workspace")
	}
	raw := toRaw(doc)

	switch format {
	case FormatJSON:
		result, err := json.MarshalIndent(raw, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to serialize workspace as JSON: %w", err)
		}
		return append(result, '\n'), nil

	case FormatYAML:
		result, err := yaml.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize workspace as YAML: %w", err)
		}
		header := fmt.Sprintf("# Generated by archmerge for workspace %q\n", doc.Name)
		return []byte(header + string(result)), nil

	default:
		return nil, fmt.Errorf("unsupported workspace format %q", format)
	}
}

// toRaw converts the model tree into its on-disk shape.
func toRaw(doc *model.Document) *RawWorkspace {
	m := doc.Model
	raw := &RawWorkspace{
		Name:        doc.Name,
		Description: doc.Description,
	}

	for _, p := range m.People() {
		raw.Model.People = append(raw.Model.People, rawElement(&p.ElementBase))
	}

	for _, s := range m.SoftwareSystems() {
		rs := RawSoftwareSystem{RawElement: rawElement(&s.ElementBase)}
		for _, c := range s.Containers() {
			rc := RawContainer{RawElement: rawElement(&c.ElementBase)}
			for _, comp := range c.Components() {
				rc.Components = append(rc.Components, rawElement(&comp.ElementBase))
			}
			rs.Containers = append(rs.Containers, rc)
		}
		raw.Model.SoftwareSystems = append(raw.Model.SoftwareSystems, rs)
	}

	for _, r := range m.Relationships() {
		raw.Model.Relationships = append(raw.Model.Relationships, RawRelationship{
			Source:      r.Source.Base().ID,
			Destination: r.Destination.Base().ID,
			Description: r.Description,
			Technology:  r.Technology,
			Tags:        tagList(r.Tags),
		})
	}

	return raw
}

func rawElement(b *model.ElementBase) RawElement {
	return RawElement{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Technology:  b.Technology,
		Tags:        tagList(b.Tags),
	}
}

// tagList returns nil for no tags so that omitempty drops the field.
func tagList(tags model.Tags) interface{} {
	if len(tags) == 0 {
		return nil
	}
	return []string(tags)
}
