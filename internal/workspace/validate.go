// validate.go checks a parsed workspace document before its model is built.
//
// Errors make a document unusable as an import source: the model cannot be
// built without ambiguity. Warnings describe documents that import fine but
// may merge in surprising ways, such as a container sharing its name with a
// software system (the name resolver always prefers the system).
package workspace

import (
	"fmt"
	"sort"
	"strings"
)

// Severity classifies a ValidationError.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError represents a specific validation failure in a workspace document.
type ValidationError struct {
	// Field is the path of the offending value (e.g., "model.softwareSystems[0].containers[1].name").
	Field string `json:"field"`

	// Message describes what's wrong with the value.
	Message string `json:"message"`

	Severity Severity `json:"severity"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("workspace validation %s: %s: %s", e.Severity, e.Field, e.Message)
}

// Errors returns the error-severity entries of issues.
func Errors(issues []ValidationError) []*ValidationError {
	var errs []*ValidationError
	for i := range issues {
		if issues[i].Severity == SeverityError {
			errs = append(errs, &issues[i])
		}
	}
	return errs
}

// Validate performs consistency checks on a parsed workspace document.
// It returns every issue found (empty list = valid document).
//
// Checks performed:
//   - Names: every element has a non-blank name
//   - Siblings: names are unique among people, among systems, among the
//     containers of a system and among the components of a container
//   - IDs: element IDs are unique within the document
//   - Relationships: both endpoints reference an existing ID or name, and
//     a pair is related once (repeats are warnings)
//   - Collisions: the same name at two levels of the hierarchy (warning)
func Validate(raw *RawWorkspace) []ValidationError {
	v := &validator{
		ids:   make(map[string]string),
		names: make(map[string][]string),
	}

	// Check 1: the workspace name becomes the import prefix.
	if strings.TrimSpace(raw.Name) == "" {
		v.warn("name", "name is recommended; unnamed workspaces cannot be prefixed on import")
	}

	// Checks 2 and 3: element names and IDs, level by level.
	people := make(map[string]bool)
	for i, p := range raw.Model.People {
		field := fmt.Sprintf("model.people[%d]", i)
		v.element(field, "person", p, people)
	}

	systems := make(map[string]bool)
	for i, s := range raw.Model.SoftwareSystems {
		field := fmt.Sprintf("model.softwareSystems[%d]", i)
		v.element(field, "softwareSystem", s.RawElement, systems)

		containers := make(map[string]bool)
		for j, c := range s.Containers {
			cfield := fmt.Sprintf("%s.containers[%d]", field, j)
			v.element(cfield, "container", c.RawElement, containers)

			components := make(map[string]bool)
			for k, comp := range c.Components {
				v.element(fmt.Sprintf("%s.components[%d]", cfield, k), "component", comp, components)
			}
		}
	}

	// Check 4: relationship endpoints. A second relationship between the
	// same pair is kept out of the model, so it only earns a warning.
	pairs := make(map[[2]string]string)
	for i, r := range raw.Model.Relationships {
		field := fmt.Sprintf("model.relationships[%d]", i)
		if !v.known(r.Source) {
			v.fail(field+".source", fmt.Sprintf("unknown element %q", r.Source))
		}
		if !v.known(r.Destination) {
			v.fail(field+".destination", fmt.Sprintf("unknown element %q", r.Destination))
		}

		pair := [2]string{r.Source, r.Destination}
		if first, dup := pairs[pair]; dup {
			v.warn(field, fmt.Sprintf("%q -> %q is already related at %s; only the first relationship is imported",
				r.Source, r.Destination, first))
		} else {
			pairs[pair] = field
		}
	}

	// Check 5: names used at more than one level.
	for _, name := range v.order {
		levels := uniqueLevels(v.names[name])
		if len(levels) > 1 {
			v.warn("model", fmt.Sprintf("name %q is used by more than one kind of element (%s); references resolve to the %s",
				name, strings.Join(levels, ", "), levels[0]))
		}
	}

	return v.issues
}

// validator accumulates issues and the names seen while walking a document.
type validator struct {
	issues []ValidationError
	ids    map[string]string   // id -> field
	names  map[string][]string // name -> levels, in walk order
	order  []string
}

func (v *validator) fail(field, message string) {
	v.issues = append(v.issues, ValidationError{Field: field, Message: message, Severity: SeverityError})
}

func (v *validator) warn(field, message string) {
	v.issues = append(v.issues, ValidationError{Field: field, Message: message, Severity: SeverityWarning})
}

// element checks one element against its siblings and records its ID and
// name for the later checks.
func (v *validator) element(field, level string, e RawElement, siblings map[string]bool) {
	name := e.Name
	if strings.TrimSpace(name) == "" {
		v.fail(field+".name", "name must not be empty")
	} else {
		if siblings[name] {
			v.fail(field+".name", fmt.Sprintf("duplicate %s name %q", level, name))
		}
		siblings[name] = true
		if _, seen := v.names[name]; !seen {
			v.order = append(v.order, name)
		}
		v.names[name] = append(v.names[name], level)
	}

	if e.ID != "" {
		if prev, dup := v.ids[e.ID]; dup {
			v.fail(field+".id", fmt.Sprintf("duplicate id %q (first used at %s)", e.ID, prev))
		} else {
			v.ids[e.ID] = field
		}
	}
}

// known reports whether ref matches an element ID or name.
func (v *validator) known(ref string) bool {
	if _, ok := v.ids[ref]; ok {
		return true
	}
	_, ok := v.names[ref]
	return ok
}

// levelRank is the order in which the name resolver searches levels.
var levelRank = map[string]int{
	"softwareSystem": 0,
	"person":         1,
	"container":      2,
	"component":      3,
}

// uniqueLevels returns the distinct levels in resolver order.
func uniqueLevels(levels []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range levels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return levelRank[out[i]] < levelRank[out[j]] })
	return out
}
