package merge

import (
	"go.uber.org/zap"

	"github.com/shinji-kodama/archmerge/internal/model"
)

// CloneOutcome tells what CloneRelationship did with a source relationship.
type CloneOutcome int

const (
	// Cloned means a new relationship was added to the target.
	Cloned CloneOutcome = iota

	// Duplicate means the resolved endpoints were already connected.
	Duplicate

	// Unresolved means at least one endpoint has no counterpart in the target.
	Unresolved
)

// String returns the outcome name used in diagnostics.
func (o CloneOutcome) String() string {
	switch o {
	case Cloned:
		return "cloned"
	case Duplicate:
		return "duplicate"
	case Unresolved:
		return "unresolved"
	default:
		return "unknown"
	}
}

// CloneRelationship re-creates rel from doc between the matching elements of
// target. Both endpoints are looked up by name with Resolve, using the
// document prefix for containers and components.
//
// Nothing is created when an endpoint cannot be resolved or when the
// resolved source already has a relationship to the resolved destination;
// neither case is an error. A new relationship copies the description and
// technology of rel and then receives its tags.
func CloneRelationship(doc *model.Document, rel *model.Relationship, target *model.Model, opts Options) (*model.Relationship, CloneOutcome, error) {
	log := opts.logger().With(zap.String("document", doc.Name))
	prefix := Prefix(doc, opts.UsePrefix)

	sourceName := rel.Source.Base().Name
	destinationName := rel.Destination.Base().Name

	source := Resolve(target, sourceName, prefix)
	destination := Resolve(target, destinationName, prefix)
	if source == nil || destination == nil {
		log.Debug("relationship endpoint not found in target",
			zap.String("source", sourceName), zap.Bool("sourceFound", source != nil),
			zap.String("destination", destinationName), zap.Bool("destinationFound", destination != nil))
		return nil, Unresolved, nil
	}

	if target.HasEfferentRelationship(source, destination) {
		log.Debug("relationship already exists",
			zap.String("source", source.Base().Name), zap.String("destination", destination.Base().Name))
		return nil, Duplicate, nil
	}

	log.Info("cloning relationship",
		zap.String("source", source.Base().Name), zap.String("destination", destination.Base().Name))
	cloned, err := target.AddRelationship(source, destination, rel.Description, rel.Technology)
	if err != nil {
		return nil, Unresolved, err
	}
	cloned.Tags.Add(rel.Tags...)
	return cloned, Cloned, nil
}
