package merge

import (
	"go.uber.org/zap"

	"github.com/shinji-kodama/archmerge/internal/filter"
	"github.com/shinji-kodama/archmerge/internal/model"
)

// Options configures a merge run.
type Options struct {
	// Filter selects which elements are brought in. Nil means everything.
	Filter *filter.Filter

	// UsePrefix enables "[<document-name>] " prefixing of container and
	// component names.
	UsePrefix bool

	// IncludePeople also merges the people of each document.
	IncludePeople bool

	// Logger receives progress and skip diagnostics. Nil means no output.
	Logger *zap.Logger
}

func (o Options) filter() *filter.Filter {
	if o.Filter == nil {
		return filter.Everything()
	}
	return o.Filter
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Prefix returns the name prefix applied to containers and components of
// doc: empty when prefixing is disabled or the document has no name.
func Prefix(doc *model.Document, usePrefix bool) string {
	if !usePrefix || doc == nil || doc.Name == "" {
		return ""
	}
	return "[" + doc.Name + "] "
}
