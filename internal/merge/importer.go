package merge

import (
	"errors"

	"go.uber.org/zap"

	"github.com/shinji-kodama/archmerge/internal/model"
)

// Importer merges a sequence of documents into one target model.
type Importer struct {
	opts Options
}

// NewImporter returns an Importer configured by opts.
func NewImporter(opts Options) *Importer {
	return &Importer{opts: opts}
}

// Run merges docs into target one at a time, in the order given. For each
// document every software system is merged first (people too when
// IncludePeople is set), then every relationship is cloned, so relationships
// can bind to elements created by the same or any earlier document.
//
// Errors inside a document are logged and counted in Stats.Failed; they
// never stop the run. With no documents Run logs that fact and returns
// empty Stats.
func (i *Importer) Run(target *model.Model, docs []*model.Document) (*Stats, error) {
	if target == nil {
		return nil, errors.New("merge target model is nil")
	}

	log := i.opts.logger()
	stats := &Stats{}

	log.Info("importing workspaces",
		zap.Int("documents", len(docs)),
		zap.Strings("include", i.opts.filter().Tokens()),
		zap.Bool("ccprefix", i.opts.UsePrefix))

	if len(docs) == 0 {
		log.Info("no workspaces found")
		return stats, nil
	}

	for _, doc := range docs {
		stats.Add(i.importDocument(target, doc))
	}
	return stats, nil
}

func (i *Importer) importDocument(target *model.Model, doc *model.Document) *Stats {
	log := i.opts.logger().With(zap.String("document", doc.Name), zap.String("location", doc.Location))
	log.Info("importing workspace")

	stats := &Stats{Documents: 1}
	failed := false
	fail := func(msg string, err error, fields ...zap.Field) {
		failed = true
		log.Error(msg, append(fields, zap.Error(err))...)
	}

	if i.opts.IncludePeople {
		for _, person := range doc.Model.People() {
			delta, err := MergePerson(doc, person, target, i.opts)
			stats.Add(delta)
			if err != nil {
				fail("failed to merge person", err, zap.String("person", person.Name))
			}
		}
	}

	for _, system := range doc.Model.SoftwareSystems() {
		delta, err := MergeSoftwareSystem(doc, system, target, i.opts)
		stats.Add(delta)
		if err != nil {
			fail("failed to merge system", err, zap.String("system", system.Name))
		}
	}

	for _, rel := range doc.Model.Relationships() {
		_, outcome, err := CloneRelationship(doc, rel, target, i.opts)
		if err != nil {
			fail("failed to clone relationship", err,
				zap.String("source", rel.Source.Base().Name),
				zap.String("destination", rel.Destination.Base().Name))
			continue
		}
		switch outcome {
		case Cloned:
			stats.Relationships.Cloned++
		case Duplicate:
			stats.Relationships.Duplicate++
		case Unresolved:
			stats.Relationships.Unresolved++
		}
	}

	if failed {
		stats.Failed = 1
	}
	return stats
}
