package domain

import "time"

// LockoutRecord tracks failed login attempts for one identifier.
// Records are created on the first failure, cleared on success, and left
// in place otherwise; a stale record becomes inert once the cooldown
// window has elapsed.
type LockoutRecord struct {
	// Count is the number of consecutive failed attempts.
	Count int `json:"count"`

	// LastFailure is the time of the most recent failed attempt.
	LastFailure time.Time `json:"time"`
}

// Snapshot is the complete persisted state of the store at one point in
// time. It is the unit of both mutation and persistence: every
// state-changing operation flushes the whole snapshot.
type Snapshot struct {
	// Accounts maps account ID to account.
	Accounts map[string]*Account

	// CurrentUserID is the ID of the logged-in account, or empty when no
	// session is active. At most one account is current per store instance.
	CurrentUserID string

	// Lockouts maps lockout key (resolved account ID when the login
	// identifier resolved, raw identifier otherwise) to its record.
	Lockouts map[string]LockoutRecord
}

// NewSnapshot returns an empty snapshot with initialized maps.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Accounts: make(map[string]*Account),
		Lockouts: make(map[string]LockoutRecord),
	}
}

// Normalize repairs nil maps after deserialization so callers can index
// without nil checks. Missing sections of a persisted file (an older file
// without a lockout map, say) default to empty.
func (s *Snapshot) Normalize() {
	if s.Accounts == nil {
		s.Accounts = make(map[string]*Account)
	}
	if s.Lockouts == nil {
		s.Lockouts = make(map[string]LockoutRecord)
	}
}

// FindByIdentifier resolves an account by exact ID match first, then by
// scanning for a matching username. Returns nil when nothing matches.
func (s *Snapshot) FindByIdentifier(identifier string) *Account {
	if acc, ok := s.Accounts[identifier]; ok {
		return acc
	}
	for _, acc := range s.Accounts {
		if acc.Username == identifier {
			return acc
		}
	}
	return nil
}

// HasUsername reports whether any account already claims the username.
func (s *Snapshot) HasUsername(username string) bool {
	for _, acc := range s.Accounts {
		if acc.Username == username {
			return true
		}
	}
	return false
}

// CurrentAccount returns the logged-in account, or nil when there is no
// active session or the session points at a missing account.
func (s *Snapshot) CurrentAccount() *Account {
	if s.CurrentUserID == "" {
		return nil
	}
	return s.Accounts[s.CurrentUserID]
}
