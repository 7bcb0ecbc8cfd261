package workspace

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minio/highwayhash"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/shinji-kodama/archmerge/internal/model"
)

// fingerprintKey is the fixed HighwayHash key. Fingerprints only need to be
// stable within one run, not secret.
var fingerprintKey = []byte("archmerge-workspace-fingerprint!")

// Fingerprint returns a hex digest of the document bytes. Two documents
// with the same fingerprint are treated as copies of each other.
func Fingerprint(data []byte) (string, error) {
	hash, err := highwayhash.New64(fingerprintKey)
	if err != nil {
		return "", err
	}
	if _, err := hash.Write(data); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", hash.Sum64()), nil
}

// Store reads and writes workspace documents through an afs.Service, so
// locations can be local paths or any URL scheme afs supports.
type Store struct {
	fs afs.Service
}

// NewStore returns a Store backed by afs.New().
func NewStore() *Store {
	return &Store{fs: afs.New()}
}

// Read returns the raw bytes stored at location.
func (s *Store) Read(ctx context.Context, location string) ([]byte, error) {
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read workspace %s: %w", location, err)
	}
	return data, nil
}

// Exists reports whether location exists.
func (s *Store) Exists(ctx context.Context, location string) (bool, error) {
	return s.fs.Exists(ctx, location)
}

// Load reads and decodes the document at location. The format is derived
// from the file extension.
func (s *Store) Load(ctx context.Context, location string) (*model.Document, error) {
	format, ok := FormatOf(location)
	if !ok {
		return nil, fmt.Errorf("unrecognized workspace extension %q (valid: .json, .jsonc, .yaml, .yml)", filepath.Ext(location))
	}
	data, err := s.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	return Decode(data, format, location)
}

// LoadOrCreate loads the document at location, or returns an empty document
// when nothing exists there yet. A new document is named after the file.
func (s *Store) LoadOrCreate(ctx context.Context, location string) (*model.Document, error) {
	ok, err := s.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check workspace %s: %w", location, err)
	}
	if ok {
		return s.Load(ctx, location)
	}
	name := strings.TrimSuffix(filepath.Base(url.Path(location)), filepath.Ext(location))
	return &model.Document{Name: name, Location: location, Model: model.NewModel()}, nil
}

// Save encodes doc in the given format and writes it to location.
func (s *Store) Save(ctx context.Context, location string, doc *model.Document, format Format) error {
	data, err := Encode(doc, format)
	if err != nil {
		return err
	}
	if err := s.fs.Upload(ctx, location, 0o644, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write workspace %s: %w", location, err)
	}
	return nil
}

// Canonical returns the form of location used to compare documents: local
// paths and file URLs become absolute cleaned paths, other URLs are kept.
func Canonical(location string) string {
	if url.Scheme(location, file.Scheme) != file.Scheme {
		return location
	}
	p := location
	if strings.Contains(location, "://") {
		p = url.Path(location)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.Clean(p)
}
