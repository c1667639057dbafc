// Package service provides the business logic facade for Tally.
package service

import (
	"context"

	"github.com/prn-tf/tally/internal/domain"
)

// RegisterInput contains the data needed to register an account.
type RegisterInput struct {
	// Email is the account's primary identity.
	Email string

	// Password is the plaintext password; it is hashed immediately and
	// never stored.
	Password string

	// Name is the user's display name.
	Name string

	// Age must be within [18, 100].
	Age int

	// Username is optional; when empty it defaults to the local part of
	// the email address.
	Username string
}

// Tracker is the capability surface consumed by the presentation layer.
// Any concrete store implements it: the default file-backed one, or an
// in-memory fake in tests, without the callers changing.
type Tracker interface {
	// Register creates a new account. Validation failures come back in a
	// fixed precedence: empty fields, weak password, duplicate email,
	// malformed email, invalid age, duplicate username.
	Register(ctx context.Context, input RegisterInput) error

	// Login authenticates by account ID or username. A throttled
	// identifier fails with a LockedOutError before credentials are
	// examined; any other failure is the generic ErrInvalidCredentials.
	Login(ctx context.Context, identifier, password string) error

	// Logout clears the current session. It always succeeds.
	Logout(ctx context.Context) error

	// AddExpense appends an expense entry for the logged-in account.
	AddExpense(ctx context.Context, category string, amount float64) error

	// AddIncome appends an income entry for the logged-in account.
	AddIncome(ctx context.Context, source string, amount float64) error

	// SetBudget replaces the logged-in account's budget.
	SetBudget(ctx context.Context, amount float64) error

	// ViewReport computes the aggregate report for the logged-in account.
	ViewReport(ctx context.Context) (domain.Report, error)

	// CurrentUser returns the ID of the active session, or the empty
	// string when nobody is logged in. It never fails.
	CurrentUser() string

	// UserExists reports whether an identifier matches an account ID or
	// username.
	UserExists(identifier string) bool
}
