package merge

import (
	"go.uber.org/zap"

	"github.com/shinji-kodama/archmerge/internal/filter"
	"github.com/shinji-kodama/archmerge/internal/model"
)

// MergeSoftwareSystem brings one software system of doc, with its included
// containers and components, into target.
//
// Each level is resolved by name inside its parent in the target and created
// when missing; containers and components use the document prefix when
// prefixing is enabled. Existing elements only get their empty fields
// filled in and the source tags added, populated fields are never
// overwritten. A system rejected by the filter is skipped together with
// everything below it; a rejected container takes its components with it.
//
// The returned Stats describe this call only. Work done before an error is
// kept in target.
func MergeSoftwareSystem(doc *model.Document, system *model.SoftwareSystem, target *model.Model, opts Options) (*Stats, error) {
	stats := &Stats{}
	f := opts.filter()
	log := opts.logger().With(zap.String("document", doc.Name))
	prefix := Prefix(doc, opts.UsePrefix)

	// Step 1: The system-level filter decides for the whole subtree. A
	// system that is not included takes its containers and components
	// with it, whatever the lower-level tokens say.
	if allowed := f.AllowSet(filter.LevelSoftwareSystem); !allowed.Contains(system.Name) {
		log.Info("skipping system, not included",
			zap.String("system", system.Name), zap.Stringer("included", allowed))
		stats.SoftwareSystems.Skipped++
		return stats, nil
	}

	// Step 2: Resolve the system in the target by its plain name. Systems
	// are never prefixed, so every document contributing to "Orders"
	// lands in the same system.
	log.Info("cloning system", zap.String("system", system.Name))
	targetSystem := target.SoftwareSystemWithName(system.Name)
	created := targetSystem == nil
	if created {
		var err error
		if targetSystem, err = target.AddSoftwareSystem(system.Name, ""); err != nil {
			return stats, err
		}
	}
	stats.SoftwareSystems.record(created, fillIn(&targetSystem.ElementBase, &system.ElementBase, false))

	// Allow sets are computed once per level and reused for every
	// container and component of this system.
	containers := f.AllowSet(filter.LevelContainer)
	components := f.AllowSet(filter.LevelComponent)

	// Step 3: Containers. The lookup uses the prefixed name, so a second
	// import of the same document finds what the first one created
	// instead of adding "[Doc] API" again.

	for _, container := range system.Containers() {
		if !containers.Contains(container.Name) {
			log.Info("skipping container, not included",
				zap.String("container", container.Name), zap.Stringer("included", containers))
			stats.Containers.Skipped++
			continue
		}

		name := prefix + container.Name
		log.Info("cloning container", zap.String("container", name))
		targetContainer := targetSystem.ContainerWithName(name)
		created := targetContainer == nil
		if created {
			var err error
			if targetContainer, err = targetSystem.AddContainer(name, "", ""); err != nil {
				return stats, err
			}
		}
		stats.Containers.record(created, fillIn(&targetContainer.ElementBase, &container.ElementBase, true))

		// Step 4: Components of an included container, resolved inside
		// the target container with the same prefix rule.

		for _, component := range container.Components() {
			if !components.Contains(component.Name) {
				log.Info("skipping component, not included",
					zap.String("component", component.Name), zap.Stringer("included", components))
				stats.Components.Skipped++
				continue
			}

			name := prefix + component.Name
			log.Info("cloning component", zap.String("component", name))
			targetComponent := targetContainer.ComponentWithName(name)
			created := targetComponent == nil
			if created {
				var err error
				if targetComponent, err = targetContainer.AddComponent(name, "", ""); err != nil {
					return stats, err
				}
			}
			stats.Components.record(created, fillIn(&targetComponent.ElementBase, &component.ElementBase, true))
		}
	}

	return stats, nil
}

// MergePerson brings one person of doc into target with the same
// resolve-or-create and fill-in rules as software systems. People are
// filtered at the person level and never prefixed.
func MergePerson(doc *model.Document, person *model.Person, target *model.Model, opts Options) (*Stats, error) {
	stats := &Stats{}
	log := opts.logger().With(zap.String("document", doc.Name))

	if allowed := opts.filter().AllowSet(filter.LevelPerson); !allowed.Contains(person.Name) {
		log.Info("skipping person, not included",
			zap.String("person", person.Name), zap.Stringer("included", allowed))
		stats.People.Skipped++
		return stats, nil
	}

	log.Info("cloning person", zap.String("person", person.Name))
	targetPerson := target.PersonWithName(person.Name)
	created := targetPerson == nil
	if created {
		var err error
		if targetPerson, err = target.AddPerson(person.Name, ""); err != nil {
			return stats, err
		}
	}
	stats.People.record(created, fillIn(&targetPerson.ElementBase, &person.ElementBase, false))
	return stats, nil
}

// fillIn copies description (and technology when withTechnology is set)
// from src into dst where dst is empty, and adds src's tags to dst.
// Reports whether dst changed.
func fillIn(dst, src *model.ElementBase, withTechnology bool) bool {
	changed := false
	if dst.Description == "" && src.Description != "" {
		dst.Description = src.Description
		changed = true
	}
	if withTechnology && dst.Technology == "" && src.Technology != "" {
		dst.Technology = src.Technology
		changed = true
	}
	before := len(dst.Tags)
	dst.Tags.Add(src.Tags...)
	return changed || len(dst.Tags) != before
}
