// discover.go turns the paths parameter of an import into the ordered list
// of source documents.
//
// Each token of the parameter names a directory or a file. Directories
// contribute every document file directly inside them (no recursion). The
// target workspace itself is always excluded, so a directory holding the
// target can be imported into it.
package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/viant/afs/url"
	"go.uber.org/zap"

	"github.com/shinji-kodama/archmerge/internal/model"
)

// pathSeparators splits the paths parameter on commas and whitespace.
var pathSeparators = regexp.MustCompile(`[,\s]+`)

// SplitPaths splits a paths parameter into its non-empty tokens.
func SplitPaths(paths string) []string {
	var tokens []string
	for _, token := range pathSeparators.Split(paths, -1) {
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

// Discoverer locates and loads the source documents of an import.
type Discoverer struct {
	store   *Store
	logger  *zap.Logger
	exclude map[string]bool
}

// NewDiscoverer creates a Discoverer reading through store. A nil logger
// disables logging.
func NewDiscoverer(store *Store, logger *zap.Logger) *Discoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{store: store, logger: logger, exclude: make(map[string]bool)}
}

// Exclude keeps locations out of every later discovery, in addition to the
// target. An import that writes its result next to its sources excludes the
// output this way.
func (d *Discoverer) Exclude(locations ...string) *Discoverer {
	for _, location := range locations {
		if location != "" {
			d.exclude[Canonical(location)] = true
		}
	}
	return d
}

// Locate resolves paths against baseDir and returns the canonical locations
// of every document to import, sorted lexicographically. self is the target
// workspace location and never appears in the result. Missing paths are
// logged and skipped.
func (d *Discoverer) Locate(ctx context.Context, baseDir, paths, self string) ([]string, error) {
	selfKey := ""
	if self != "" {
		selfKey = Canonical(self)
	}

	// add records a candidate once, under its canonical spelling. The
	// target and excluded locations are dropped here, so "." or the
	// target's own directory can be named safely.
	seen := make(map[string]bool)
	var found []string
	add := func(location string) {
		key := Canonical(location)
		if key == selfKey {
			d.logger.Debug("skipping target workspace", zap.String("location", key))
			return
		}
		if d.exclude[key] {
			d.logger.Debug("skipping excluded workspace", zap.String("location", key))
			return
		}
		if seen[key] {
			return
		}
		seen[key] = true
		found = append(found, key)
	}

	for _, token := range SplitPaths(paths) {
		// Step 1: Resolve the token against the target's directory.
		// Absolute paths and URLs pass through unchanged.
		location := ResolvePath(baseDir, token)

		// Step 2: A missing path is a user typo, not a failure of the
		// whole import. Warn and carry on with the other tokens.

		ok, err := d.store.fs.Exists(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("failed to check path %s: %w", location, err)
		}
		if !ok {
			d.logger.Warn("workspace path not found", zap.String("path", token), zap.String("location", location))
			continue
		}

		// Step 3: A file is taken as is when its extension names a
		// supported format.
		object, err := d.store.fs.Object(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path %s: %w", location, err)
		}

		if !object.IsDir() {
			if _, ok := FormatOf(location); !ok {
				d.logger.Warn("skipping file with unrecognized extension", zap.String("location", location))
				continue
			}
			add(location)
			continue
		}

		// Step 4: A directory contributes the supported files directly
		// inside it. Subdirectories are not descended into.
		objects, err := d.store.fs.List(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("failed to list directory %s: %w", location, err)
		}
		for _, o := range objects {
			// List reports the directory itself along with its entries.
			if o.IsDir() {
				continue
			}
			if _, ok := FormatOf(o.Name()); !ok {
				continue
			}
			add(o.URL())
		}
	}

	// Step 5: Canonical locations sort the same way on every run, which
	// fixes the merge order independently of listing order.
	sort.Strings(found)
	return found, nil
}

// Discover locates the documents named by paths and loads them in order.
//
// A document whose bytes are identical to an earlier one is skipped. A
// document that cannot be read or decoded is logged and skipped; the
// remaining documents are still returned.
func (d *Discoverer) Discover(ctx context.Context, baseDir, paths, self string) ([]*model.Document, error) {
	locations, err := d.Locate(ctx, baseDir, paths, self)
	if err != nil {
		return nil, err
	}

	// Fingerprints dedupe sources against each other only. A copy of the
	// target at another path is still a source: with prefixing on, merging
	// it adds "[<name>] " elements.
	fingerprints := make(map[string]string)

	docs := make([]*model.Document, 0, len(locations))
	for _, location := range locations {
		data, err := d.store.Read(ctx, location)
		if err != nil {
			d.logger.Warn("skipping unreadable workspace", zap.String("location", location), zap.Error(err))
			continue
		}

		fp, err := Fingerprint(data)
		if err != nil {
			return nil, err
		}
		if first, dup := fingerprints[fp]; dup {
			d.logger.Info("skipping duplicate workspace",
				zap.String("location", location),
				zap.String("duplicateOf", first))
			continue
		}
		fingerprints[fp] = location

		format, _ := FormatOf(location)
		doc, err := Decode(data, format, location)
		if err != nil {
			d.logger.Warn("skipping invalid workspace", zap.String("location", location), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}

	d.logger.Debug("discovered workspaces", zap.Int("count", len(docs)), zap.Strings("locations", locations))
	return docs, nil
}

// ResolvePath makes token absolute against baseDir. Absolute paths and URLs are
// returned unchanged.
func ResolvePath(baseDir, token string) string {
	if strings.Contains(token, "://") || filepath.IsAbs(token) {
		return token
	}
	if strings.Contains(baseDir, "://") {
		return url.Join(baseDir, token)
	}
	return filepath.Join(baseDir, token)
}
