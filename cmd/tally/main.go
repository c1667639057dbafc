// Package main is the entry point for the Tally personal finance
// tracker. It wires the configured snapshot store to the tracker facade
// and runs the interactive menu.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/prn-tf/tally/internal/config"
	"github.com/prn-tf/tally/internal/lockout"
	"github.com/prn-tf/tally/internal/service"
	"github.com/prn-tf/tally/internal/store"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Tally %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
		return
	}

	cfg := config.MustLoad(*configPath)
	logger := newLogger(cfg.Logging)
	log.Logger = logger

	logger.Info().
		Str("version", Version).
		Str("driver", cfg.Storage.Driver).
		Msg("starting tally")

	ctx := context.Background()

	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open snapshot store")
	}
	defer st.Close()

	policy := lockout.Policy{
		MaxAttempts: cfg.Auth.MaxAttempts,
		Cooldown:    cfg.Auth.Cooldown,
	}
	tracker := service.NewTrackerService(ctx, st,
		lockout.NewTracker(policy, logger),
		cfg.Auth.BcryptCost,
		logger,
	)

	app := newApp(tracker, os.Stdin, os.Stdout)
	app.run(ctx)
}

// newLogger builds the process logger from config. The console format is
// the default for the interactive session; json suits log collection.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(os.Stderr)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
