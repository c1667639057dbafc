// Package domain contains the core business entities for Tally.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (filesystem, database).
// All of them are recoverable: nothing here may terminate the process.

var (
	// ===========================================
	// Validation Errors
	// ===========================================

	// ErrEmptyFields indicates a required registration field was empty.
	ErrEmptyFields = errors.New("email, name, age, and password cannot be empty")

	// ErrWeakPassword indicates the password fails the acceptance policy.
	ErrWeakPassword = errors.New("password must be at least 8 characters long and contain at least one number")

	// ErrInvalidEmail indicates the identifier is not email-shaped.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidAge indicates the age is outside the accepted range.
	ErrInvalidAge = errors.New("invalid age: must be between 18 and 100")

	// ErrInvalidAmount indicates a ledger or budget amount was not positive.
	ErrInvalidAmount = errors.New("amount must be greater than 0")

	// ===========================================
	// Conflict Errors
	// ===========================================

	// ErrAccountExists indicates an account with the same ID exists.
	ErrAccountExists = errors.New("email already exists")

	// ErrUsernameExists indicates another account claims the username.
	ErrUsernameExists = errors.New("username already exists")

	// ===========================================
	// Authentication / Session Errors
	// ===========================================

	// ErrInvalidCredentials indicates authentication failed. It is
	// deliberately generic: callers cannot tell an unknown identifier
	// from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrLockedOut indicates the identifier is throttled after repeated
	// failures. Returned wrapped in a LockedOutError carrying the
	// remaining cooldown.
	ErrLockedOut = errors.New("too many failed login attempts")

	// ErrNotLoggedIn indicates an operation that requires an active
	// session was called without one.
	ErrNotLoggedIn = errors.New("you need to log in first")
)

// LockedOutError reports a throttled login attempt together with how long
// the caller has to wait before the next attempt will be considered.
type LockedOutError struct {
	// Remaining is the cooldown time left.
	Remaining time.Duration
}

// Error implements the error interface.
func (e *LockedOutError) Error() string {
	return fmt.Sprintf("too many failed login attempts: try again in %d seconds", int(e.Remaining.Seconds()))
}

// Unwrap makes errors.Is(err, ErrLockedOut) work.
func (e *LockedOutError) Unwrap() error {
	return ErrLockedOut
}

// NewLockedOutError creates a LockedOutError with the remaining cooldown.
func NewLockedOutError(remaining time.Duration) *LockedOutError {
	return &LockedOutError{Remaining: remaining}
}
