// Package store defines snapshot persistence for Tally.
//
// A SnapshotStore reads and writes the entire store state as one unit;
// there is no partial or incremental persistence. Implementations exist
// for a local JSON file (the default), SQLite, and PostgreSQL, so the
// facade never cares which backend holds the data.
package store

import (
	"context"

	"github.com/prn-tf/tally/internal/domain"
)

// SnapshotStore is the persistence adapter contract.
type SnapshotStore interface {
	// Load reads the persisted snapshot. When no prior state exists, it
	// returns a fresh empty snapshot and persists it so state exists for
	// subsequent runs. Unreadable state is quarantined, reported as a
	// warning-level log event, and replaced by a fresh snapshot; Load
	// never propagates corruption as a fatal error.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Save writes the full snapshot, overwriting prior content. A failed
	// save is non-fatal to the process: the in-memory snapshot stays
	// authoritative and the caller keeps operating on it.
	Save(ctx context.Context, snap *domain.Snapshot) error

	// Close releases backend resources.
	Close() error
}
