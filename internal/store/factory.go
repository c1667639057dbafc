package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/tally/internal/config"
	"github.com/prn-tf/tally/internal/store/file"
	"github.com/prn-tf/tally/internal/store/postgres"
	"github.com/prn-tf/tally/internal/store/sqlite"
)

// Compile-time interface checks for the concrete backends.
var (
	_ SnapshotStore = (*file.Store)(nil)
	_ SnapshotStore = (*sqlite.Store)(nil)
	_ SnapshotStore = (*postgres.Store)(nil)
)

// Open creates the snapshot store selected by the configuration.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (SnapshotStore, error) {
	switch cfg.Storage.Driver {
	case "file":
		return file.New(cfg.Storage.Path, logger), nil
	case "sqlite":
		return sqlite.New(ctx, sqlite.DefaultConfig(cfg.Storage.Path), logger)
	case "postgres":
		return postgres.New(ctx, cfg.Database, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
