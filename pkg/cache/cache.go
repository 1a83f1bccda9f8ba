// Package cache persists index snapshots so repeated runs on an
// unchanged tree skip the parse phase entirely.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/go-testsight/pkg/types"
)

// snapshotVersion is bumped whenever the record encoding changes; old
// snapshots are treated as misses.
const snapshotVersion = 1

// ErrNoSnapshot is returned by Read when no snapshot file exists.
var ErrNoSnapshot = errors.New("no snapshot")

// snapshot is the on-disk envelope around the record set.
type snapshot struct {
	Version int                   `msgpack:"version"`
	Key     string                `msgpack:"key"`
	SavedAt time.Time             `msgpack:"saved_at"`
	Records []*types.ModuleRecord `msgpack:"records"`
}

// Store is a single-slot snapshot store backed by one msgpack file. It
// satisfies the indexer's cache interface: a Load with a stale key is a
// miss, and the next Store overwrites the slot.
type Store struct {
	path string
}

// NewStore creates a store writing to dir/index.msgpack.
func NewStore(dir string) *Store {
	return &Store{path: filepath.Join(dir, "index.msgpack")}
}

// Path returns the snapshot file location.
func (s *Store) Path() string { return s.path }

// Load returns the cached records when the stored fingerprint matches.
func (s *Store) Load(key string) ([]*types.ModuleRecord, bool) {
	snap, err := s.read()
	if err != nil {
		return nil, false
	}
	if snap.Version != snapshotVersion || snap.Key != key {
		return nil, false
	}
	return snap.Records, true
}

// Store writes the records under the given fingerprint. The file is
// written to a temp path and renamed so a crash never leaves a torn
// snapshot behind.
func (s *Store) Store(key string, records []*types.ModuleRecord) error {
	data, err := msgpack.Marshal(snapshot{
		Version: snapshotVersion,
		Key:     key,
		SavedAt: time.Now().UTC(),
		Records: records,
	})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Clear removes the snapshot file if present.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}

func (s *Store) read() (*snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	var snap snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}
