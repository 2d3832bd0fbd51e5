// Package storage persists analysis artifacts as one JSON file per
// package under <data_dir>/analyzed/<ecosystem>/<name>.json, and reads
// them back for the work queue's staleness classification.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkgrisk/analyzer/internal/model"
)

// Store reads and writes analysis artifacts under a data directory.
type Store struct {
	dataDir string
}

func New(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// Save writes a as <data_dir>/analyzed/<ecosystem>/<sanitized-name>.json,
// writing to a temp file first and renaming over the destination so a
// crash mid-write never leaves a truncated artifact behind.
func (s *Store) Save(a model.Analysis) error {
	path := s.path(a.Package.Ecosystem, a.Package.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("storage: creating directory for %s: %w", a.Package, err)
	}

	raw, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshaling %s: %w", a.Package, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("storage: writing %s: %w", a.Package, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: finalizing %s: %w", a.Package, err)
	}
	return nil
}

// Load reads a previously persisted artifact. The second return value
// is false when no artifact exists yet for this package.
func (s *Store) Load(ref model.PackageRef) (model.Analysis, bool, error) {
	raw, err := os.ReadFile(s.path(ref.Ecosystem, ref.Name))
	if err != nil {
		if os.IsNotExist(err) {
			return model.Analysis{}, false, nil
		}
		return model.Analysis{}, false, fmt.Errorf("storage: reading %s: %w", ref, err)
	}
	var a model.Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return model.Analysis{}, false, fmt.Errorf("storage: decoding %s: %w", ref, err)
	}
	return a, true, nil
}

// AnalyzedAt returns the persisted analysis timestamp for ref, or the
// zero time if no artifact exists yet — callers treat a zero time as
// "never analyzed", which sorts first in the stale queue.
func (s *Store) AnalyzedAt(ref model.PackageRef) time.Time {
	a, ok, err := s.Load(ref)
	if err != nil || !ok {
		return time.Time{}
	}
	return a.Timestamps.AnalyzedAt
}

// List returns every package name with a persisted artifact under the
// given ecosystem.
func (s *Store) List(ecosystem model.Ecosystem) ([]string, error) {
	dir := filepath.Join(s.dataDir, "analyzed", string(ecosystem))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: listing %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, unsanitize(strings.TrimSuffix(e.Name(), ".json")))
	}
	return names, nil
}

func (s *Store) path(ecosystem model.Ecosystem, name string) string {
	return filepath.Join(s.dataDir, "analyzed", string(ecosystem), sanitize(name)+".json")
}

// sanitize replaces the path separator in scoped npm names ("@scope/name")
// with a double-underscore so one package maps to exactly one file,
// never a subdirectory.
func sanitize(name string) string {
	return strings.ReplaceAll(name, "/", "__")
}

func unsanitize(name string) string {
	return strings.ReplaceAll(name, "__", "/")
}
