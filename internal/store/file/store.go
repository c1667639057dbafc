// Package file implements the snapshot store over a single local JSON
// document. This is the default backend and its on-disk format matches
// the data files written by earlier versions of the tracker.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/tally/internal/domain"
)

// quarantineTimeFormat is the timestamp suffix used when a corrupt data
// file is moved aside.
const quarantineTimeFormat = "20060102150405"

// Store persists snapshots to one JSON file.
type Store struct {
	path   string
	logger zerolog.Logger
	clock  func() time.Time
}

// New creates a file-backed snapshot store at the given path. The file
// is created on first Load if it does not exist.
func New(path string, logger zerolog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.With().Str("store", "file").Str("path", path).Logger(),
		clock:  time.Now,
	}
}

// Load reads the snapshot from disk.
//
// An absent file yields a fresh empty snapshot, persisted immediately so
// a file exists for subsequent runs. A file that does not parse is
// renamed to a timestamped .bak quarantine file and likewise replaced by
// a fresh snapshot; the data loss is a warning, not an error. Only an
// unreadable path with no sensible fallback returns an error, and even
// then callers are expected to continue on an in-memory snapshot.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Msg("data file not found, initializing a new one")
		return s.initFresh(ctx), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	var wire wireSnapshot
	if err := json.Unmarshal(raw, &wire); err != nil {
		s.quarantine(err)
		return s.initFresh(ctx), nil
	}

	snap := decodeSnapshot(&wire)
	snap.Normalize()
	return snap, nil
}

// Save writes the full snapshot, replacing prior content.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	data, err := json.MarshalIndent(encodeSnapshot(snap), "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return nil
}

// Close implements the store contract; a file store holds no resources.
func (s *Store) Close() error {
	return nil
}

// initFresh installs an empty snapshot and persists it. A failed write
// here is logged and swallowed: the process continues in memory.
func (s *Store) initFresh(ctx context.Context) *domain.Snapshot {
	snap := domain.NewSnapshot()
	if err := s.Save(ctx, snap); err != nil {
		s.logger.Warn().Err(err).Msg("could not persist fresh data file, continuing in memory")
	}
	return snap
}

// quarantine moves the unparsable data file aside so its bytes survive
// for inspection. The rename is the only filesystem mutation Load makes.
func (s *Store) quarantine(parseErr error) {
	backup := fmt.Sprintf("%s.%s.bak", s.path, s.clock().Format(quarantineTimeFormat))
	if err := os.Rename(s.path, backup); err != nil {
		s.logger.Error().Err(err).Msg("failed to quarantine corrupted data file")
		return
	}
	s.logger.Warn().
		Err(parseErr).
		Str("backup", backup).
		Msg("data file corrupted, quarantined and starting fresh")
}
