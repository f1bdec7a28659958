// Package state persists the record of installed files across runs.
// The on-disk format is a schema-versioned JSON document; writes are
// atomic (temp file + rename) so a crash never leaves a torn file.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mcpax/mcpax-cli/internal/modrinth"
)

// SchemaVersion is the current on-disk schema. Files with a higher
// version fail fast rather than being guessed at.
const SchemaVersion = 1

// FileName is the state file kept in the minecraft directory.
const FileName = ".mcpax-state.json"

// InstalledFile records one verified, placed artifact.
type InstalledFile struct {
	Slug          string               `json:"slug"`
	ProjectType   modrinth.ProjectType `json:"project_type"`
	Filename      string               `json:"filename"`
	VersionID     string               `json:"version_id"`
	VersionNumber string               `json:"version_number"`
	SHA512        string               `json:"sha512"`
	InstalledAt   time.Time            `json:"installed_at"`
	FilePath      string               `json:"file_path"`
}

// Snapshot is the full persisted state held in memory for one run.
type Snapshot struct {
	Version int                      `json:"version"`
	Files   map[string]InstalledFile `json:"files"`
}

// NewSnapshot returns an empty snapshot at the current schema version.
func NewSnapshot() *Snapshot {
	return &Snapshot{Version: SchemaVersion, Files: map[string]InstalledFile{}}
}

// Orphans returns state entries whose slug is not in tracked, sorted
// for stable reporting. Orphans are flagged to the user, never dropped.
func (s *Snapshot) Orphans(tracked map[string]bool) []InstalledFile {
	var out []InstalledFile
	for slug, f := range s.Files {
		if !tracked[slug] {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// CorruptError indicates the persisted state cannot be trusted: either
// unparseable or written by a newer schema. Callers must surface it,
// never silently reset.
type CorruptError struct {
	Path   string
	Reason string
	Cause  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("state file %s is unusable: %s", e.Path, e.Reason)
}

func (e *CorruptError) Unwrap() error { return e.Cause }

// Store loads and saves snapshots at a fixed path.
type Store struct {
	path string
}

// New returns a store persisting at dir/.mcpax-state.json.
func New(dir string) *Store {
	return &Store{path: filepath.Join(dir, FileName)}
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Load reads the snapshot. A missing file is an empty snapshot, not an
// error; a malformed or future-schema file is a CorruptError.
func (s *Store) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewSnapshot(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &CorruptError{Path: s.path, Reason: "invalid JSON", Cause: err}
	}
	if snap.Version > SchemaVersion {
		return nil, &CorruptError{
			Path:   s.path,
			Reason: fmt.Sprintf("schema version %d is newer than supported %d", snap.Version, SchemaVersion),
		}
	}
	// Every snapshot we ever wrote carries a version. A valid JSON file
	// without one was not written by us and must not be adopted.
	if snap.Version < 1 {
		return nil, &CorruptError{Path: s.path, Reason: "missing schema version"}
	}
	if snap.Files == nil {
		snap.Files = map[string]InstalledFile{}
	}
	return &snap, nil
}

// Save writes the snapshot atomically: full marshal to a temp file in
// the same directory, then rename over the old state.
func (s *Store) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
