package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/tally/internal/config"
	"github.com/prn-tf/tally/internal/domain"
)

// schema is applied on open. The snapshot model keeps the schema small
// enough that versioned migrations would be overhead.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    email TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    name TEXT NOT NULL,
    age INTEGER NOT NULL,
    budget DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY,
    user_email TEXT NOT NULL REFERENCES users(email) ON DELETE CASCADE,
    kind TEXT NOT NULL CHECK (kind IN ('income', 'expense')),
    label TEXT NOT NULL,
    amount DOUBLE PRECISION NOT NULL,
    position INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_user_kind ON entries (user_email, kind, position);

CREATE TABLE IF NOT EXISTS failed_attempts (
    identifier TEXT PRIMARY KEY,
    count INTEGER NOT NULL,
    last_failure TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS session (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    current_user_email TEXT
);
`

// Store persists snapshots to PostgreSQL. Like the other backends, every
// Save replaces the full snapshot inside one transaction.
type Store struct {
	db     *DB
	logger zerolog.Logger
}

// New opens a PostgreSQL-backed snapshot store and ensures the schema.
func New(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*Store, error) {
	db, err := NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if _, err := db.Pool.Exec(ctx, schema); err != nil {
		db.Pool.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With().Str("store", "postgres").Logger(),
	}, nil
}

// Load assembles the snapshot from the normalized tables.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := domain.NewSnapshot()

	rows, err := s.db.Pool.Query(ctx, `
		SELECT email, username, password_hash, name, age, budget
		FROM users
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var email, username, passwordHash, name string
		var age int
		var budget float64
		if err := rows.Scan(&email, &username, &passwordHash, &name, &age, &budget); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		acc := domain.NewAccount(email, username, name, age, passwordHash)
		acc.Budget = budget
		snap.Accounts[email] = acc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	rows.Close()

	if err := s.loadEntries(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadLockouts(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.loadSession(ctx, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func (s *Store) loadEntries(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, user_email, kind, label, amount
		FROM entries
		ORDER BY user_email, kind, position
	`)
	if err != nil {
		return fmt.Errorf("failed to load entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, userEmail, kind, label string
		var amount float64
		if err := rows.Scan(&id, &userEmail, &kind, &label, &amount); err != nil {
			return fmt.Errorf("failed to scan entry: %w", err)
		}
		acc, ok := snap.Accounts[userEmail]
		if !ok {
			continue
		}
		entry := domain.Entry{ID: id, Label: label, Amount: amount}
		if kind == "income" {
			acc.AppendIncome(entry)
		} else {
			acc.AppendExpense(entry)
		}
	}
	return rows.Err()
}

func (s *Store) loadLockouts(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT identifier, count, last_failure
		FROM failed_attempts
	`)
	if err != nil {
		return fmt.Errorf("failed to load lockout records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var identifier string
		var count int
		var lastFailure time.Time
		if err := rows.Scan(&identifier, &count, &lastFailure); err != nil {
			return fmt.Errorf("failed to scan lockout record: %w", err)
		}
		snap.Lockouts[identifier] = domain.LockoutRecord{Count: count, LastFailure: lastFailure}
	}
	return rows.Err()
}

func (s *Store) loadSession(ctx context.Context, snap *domain.Snapshot) error {
	var current *string
	err := s.db.Pool.QueryRow(ctx, `SELECT current_user_email FROM session WHERE id = 1`).Scan(&current)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil
		}
		return fmt.Errorf("failed to load session: %w", err)
	}
	if current != nil {
		snap.CurrentUserID = *current
	}
	return nil
}

// Save replaces the persisted snapshot inside one transaction.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM entries`,
			`DELETE FROM users`,
			`DELETE FROM failed_attempts`,
			`DELETE FROM session`,
		} {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to clear table: %w", err)
			}
		}

		for id, acc := range snap.Accounts {
			_, err := tx.Exec(ctx, `
				INSERT INTO users (email, username, password_hash, name, age, budget)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, id, acc.Username, acc.SecretHash, acc.DisplayName, acc.Age, acc.Budget)
			if err != nil {
				return fmt.Errorf("failed to insert user: %w", err)
			}

			if err := insertEntries(ctx, tx, id, "expense", acc.Expenses); err != nil {
				return err
			}
			if err := insertEntries(ctx, tx, id, "income", acc.Income); err != nil {
				return err
			}
		}

		for key, rec := range snap.Lockouts {
			_, err := tx.Exec(ctx, `
				INSERT INTO failed_attempts (identifier, count, last_failure)
				VALUES ($1, $2, $3)
			`, key, rec.Count, rec.LastFailure.UTC())
			if err != nil {
				return fmt.Errorf("failed to insert lockout record: %w", err)
			}
		}

		var current *string
		if snap.CurrentUserID != "" {
			current = &snap.CurrentUserID
		}
		if _, err := tx.Exec(ctx, `INSERT INTO session (id, current_user_email) VALUES (1, $1)`, current); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		return nil
	})
}

func insertEntries(ctx context.Context, tx pgx.Tx, userEmail, kind string, entries []domain.Entry) error {
	for i, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO entries (id, user_email, kind, label, amount, position)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.ID, userEmail, kind, e.Label, e.Amount, i)
		if err != nil {
			return fmt.Errorf("failed to insert %s entry: %w", kind, err)
		}
	}
	return nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}
