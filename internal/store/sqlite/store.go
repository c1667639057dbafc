package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/tally/internal/domain"
)

// Store persists snapshots to SQLite. The snapshot stays the unit of
// persistence: every Save replaces the full contents inside one
// transaction, so the database always holds exactly one snapshot.
type Store struct {
	db     *DB
	logger zerolog.Logger
}

// New opens a SQLite-backed snapshot store.
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (*Store, error) {
	db, err := NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:     db,
		logger: logger.With().Str("store", "sqlite").Logger(),
	}, nil
}

// Load assembles the snapshot from the normalized tables. An empty
// database yields a fresh empty snapshot.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := domain.NewSnapshot()

	rows, err := s.db.QueryContext(ctx, `
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
	rows, err := s.db.QueryContext(ctx, `
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, count, last_failure
		FROM failed_attempts
	`)
	if err != nil {
		return fmt.Errorf("failed to load lockout records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var identifier, lastFailure string
		var count int
		if err := rows.Scan(&identifier, &count, &lastFailure); err != nil {
			return fmt.Errorf("failed to scan lockout record: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, lastFailure)
		if err != nil {
			return fmt.Errorf("failed to parse lockout timestamp: %w", err)
		}
		snap.Lockouts[identifier] = domain.LockoutRecord{Count: count, LastFailure: t}
	}
	return rows.Err()
}

func (s *Store) loadSession(ctx context.Context, snap *domain.Snapshot) error {
	rows, err := s.db.QueryContext(ctx, `SELECT current_user FROM session WHERE id = 1`)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		var current sql.NullString
		if err := rows.Scan(&current); err != nil {
			return fmt.Errorf("failed to scan session: %w", err)
		}
		if current.Valid {
			snap.CurrentUserID = current.String
		}
	}
	return rows.Err()
}

// Save replaces the persisted snapshot inside one transaction.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM entries`,
			`DELETE FROM users`,
			`DELETE FROM failed_attempts`,
			`DELETE FROM session`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to clear table: %w", err)
			}
		}

		for id, acc := range snap.Accounts {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO users (email, username, password_hash, name, age, budget)
				VALUES (?, ?, ?, ?, ?, ?)
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
			_, err := tx.ExecContext(ctx, `
				INSERT INTO failed_attempts (identifier, count, last_failure)
				VALUES (?, ?, ?)
			`, key, rec.Count, rec.LastFailure.UTC().Format(time.RFC3339Nano))
			if err != nil {
				return fmt.Errorf("failed to insert lockout record: %w", err)
			}
		}

		var current interface{}
		if snap.CurrentUserID != "" {
			current = snap.CurrentUserID
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO session (id, current_user) VALUES (1, ?)`, current); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		return nil
	})
}

func insertEntries(ctx context.Context, tx *sql.Tx, userEmail, kind string, entries []domain.Entry) error {
	for i, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entries (id, user_email, kind, label, amount, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, e.ID, userEmail, kind, e.Label, e.Amount, i)
		if err != nil {
			return fmt.Errorf("failed to insert %s entry: %w", kind, err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
