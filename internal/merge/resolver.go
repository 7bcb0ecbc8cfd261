package merge

import "github.com/shinji-kodama/archmerge/internal/model"

// Resolve finds the element of target that a name from a source document
// refers to. The search order is fixed and the first hit wins:
//
//  1. a software system named name
//  2. a person named name
//  3. in model order, a container named prefix+name in any system
//  4. in model order, a component named prefix+name in any container
//
// System and person lookups never use the prefix. When the same name
// exists at two levels the higher level wins, even if the source element
// was of the lower kind. Returns nil when nothing matches.
func Resolve(target *model.Model, name, prefix string) model.Element {
	if s := target.SoftwareSystemWithName(name); s != nil {
		return s
	}
	if p := target.PersonWithName(name); p != nil {
		return p
	}

	scoped := prefix + name
	for _, s := range target.SoftwareSystems() {
		if c := s.ContainerWithName(scoped); c != nil {
			return c
		}
	}
	for _, s := range target.SoftwareSystems() {
		for _, c := range s.Containers() {
			if comp := c.ComponentWithName(scoped); comp != nil {
				return comp
			}
		}
	}
	return nil
}
