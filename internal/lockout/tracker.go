// Package lockout implements the failed-login throttling state machine.
//
// Each lockout key moves through three states: clear (no record),
// accumulating (some failures, below the attempt limit), and locked
// (limit reached, cooldown running). Lock expiry is evaluated lazily on
// the next attempt; there is no background timer.
package lockout

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/tally/internal/domain"
)

// Policy holds the throttling constants.
type Policy struct {
	// MaxAttempts is the number of consecutive failures after which the
	// key is locked.
	MaxAttempts int

	// Cooldown is how long a locked key stays locked, measured from the
	// most recent failure.
	Cooldown time.Duration
}

// DefaultPolicy returns the stock policy: 3 attempts, 60 second cooldown.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		Cooldown:    60 * time.Second,
	}
}

// Tracker evaluates the lockout state machine over a snapshot's lockout
// map. The tracker itself is stateless; all records live in the snapshot
// so they persist with it.
type Tracker struct {
	policy Policy
	logger zerolog.Logger
	clock  func() time.Time
}

// NewTracker creates a tracker with the given policy.
func NewTracker(policy Policy, logger zerolog.Logger) *Tracker {
	if policy.MaxAttempts <= 0 {
		policy = DefaultPolicy()
	}
	return &Tracker{
		policy: policy,
		logger: logger.With().Str("component", "lockout").Logger(),
		clock:  time.Now,
	}
}

// WithClock substitutes the time source. Used by tests to step through
// the cooldown window without sleeping.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.clock = clock
	return t
}

// Check reports whether the key is currently locked and, if so, the
// remaining cooldown. An expired lock is cleared here, on the attempt
// that first observes the expiry.
func (t *Tracker) Check(records map[string]domain.LockoutRecord, key string) (time.Duration, bool) {
	rec, ok := records[key]
	if !ok || rec.Count < t.policy.MaxAttempts {
		return 0, false
	}

	elapsed := t.clock().Sub(rec.LastFailure)
	if elapsed < t.policy.Cooldown {
		return t.policy.Cooldown - elapsed, true
	}

	// Cooldown elapsed: locked -> clear.
	delete(records, key)
	t.logger.Debug().Str("key", key).Msg("lockout expired, record cleared")
	return 0, false
}

// RecordFailure notes one failed attempt for the key, creating the record
// on first failure.
func (t *Tracker) RecordFailure(records map[string]domain.LockoutRecord, key string) {
	rec := records[key]
	rec.Count++
	rec.LastFailure = t.clock()
	records[key] = rec

	if rec.Count >= t.policy.MaxAttempts {
		t.logger.Warn().
			Str("key", key).
			Int("failures", rec.Count).
			Dur("cooldown", t.policy.Cooldown).
			Msg("lockout threshold reached")
	}
}

// Clear resets the key after a successful verification, regardless of
// prior state.
func (t *Tracker) Clear(records map[string]domain.LockoutRecord, key string) {
	delete(records, key)
}
