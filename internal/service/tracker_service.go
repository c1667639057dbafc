package service

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/prn-tf/tally/internal/domain"
	"github.com/prn-tf/tally/internal/lockout"
	"github.com/prn-tf/tally/internal/pkg/crypto"
	"github.com/prn-tf/tally/internal/store"
)

// minPasswordLength is the password acceptance floor; a password must
// also contain at least one decimal digit.
const minPasswordLength = 8

// TrackerService is the account and ledger store facade. It exclusively
// owns the in-memory snapshot and flushes the whole of it to the store
// after every mutation; there is no write batching.
//
// The mutex serializes the read-mutate-persist sequence of each
// operation so the uniqueness and lockout invariants hold even when the
// service is shared between goroutines.
type TrackerService struct {
	mu       sync.Mutex
	snap     *domain.Snapshot
	store    store.SnapshotStore
	lockouts *lockout.Tracker
	cost     int
	logger   zerolog.Logger
}

var _ Tracker = (*TrackerService)(nil)

// NewTrackerService loads the snapshot and constructs the facade. A load
// failure is not fatal: the service logs it and starts on a fresh
// in-memory snapshot rather than abort.
func NewTrackerService(ctx context.Context, st store.SnapshotStore, lockouts *lockout.Tracker, bcryptCost int, logger zerolog.Logger) *TrackerService {
	s := &TrackerService{
		store:    st,
		lockouts: lockouts,
		cost:     bcryptCost,
		logger:   logger.With().Str("service", "tracker").Logger(),
	}

	snap, err := st.Load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load snapshot, continuing with empty in-memory state")
		snap = domain.NewSnapshot()
	}
	snap.Normalize()
	s.snap = snap
	return s
}

// Register creates a new account, persists, and returns nil on success.
// The validation order is fixed so callers see deterministic error
// precedence.
func (s *TrackerService) Register(ctx context.Context, input RegisterInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.Email == "" || input.Password == "" || input.Name == "" || input.Age == 0 {
		return domain.ErrEmptyFields
	}
	if !passwordAcceptable(input.Password) {
		return domain.ErrWeakPassword
	}
	if _, exists := s.snap.Accounts[input.Email]; exists {
		return domain.ErrAccountExists
	}
	if !emailShaped(input.Email) {
		return domain.ErrInvalidEmail
	}
	if input.Age < domain.MinAge || input.Age > domain.MaxAge {
		return domain.ErrInvalidAge
	}

	username := input.Username
	if username == "" {
		username = input.Email[:strings.Index(input.Email, "@")]
	}
	if s.snap.HasUsername(username) {
		return domain.ErrUsernameExists
	}

	hash, err := crypto.HashPassword(input.Password, s.cost)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return err
	}

	s.snap.Accounts[input.Email] = domain.NewAccount(input.Email, username, input.Name, input.Age, hash)
	s.persist(ctx)

	s.logger.Info().
		Str("account", input.Email).
		Str("username", username).
		Msg("account registered")
	return nil
}

// Login authenticates by account ID or username.
//
// The lockout gate keys by the resolved account ID when the identifier
// resolves and by the raw identifier otherwise, so a locked account
// cannot be hammered through its alternate identifier. Resolution is a
// map scan; no hashing work happens before the gate.
func (s *TrackerService) Login(ctx context.Context, identifier, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.snap.FindByIdentifier(identifier)
	key := identifier
	if acc != nil {
		key = acc.ID
	}

	if remaining, locked := s.lockouts.Check(s.snap.Lockouts, key); locked {
		return domain.NewLockedOutError(remaining)
	}

	if acc == nil || !crypto.VerifyPassword(password, acc.SecretHash) {
		s.lockouts.RecordFailure(s.snap.Lockouts, key)
		s.persist(ctx)
		// Generic on purpose: do not reveal whether the identifier exists.
		return domain.ErrInvalidCredentials
	}

	s.lockouts.Clear(s.snap.Lockouts, key)
	s.snap.CurrentUserID = acc.ID
	s.persist(ctx)

	s.logger.Info().Str("account", acc.ID).Msg("login successful")
	return nil
}

// Logout clears the current session. It always succeeds.
func (s *TrackerService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.CurrentUserID = ""
	s.persist(ctx)
	return nil
}

// AddExpense appends an expense entry for the logged-in account.
func (s *TrackerService) AddExpense(ctx context.Context, category string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.requireSession()
	if err != nil {
		return err
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	acc.AppendExpense(domain.NewEntry(category, amount))
	s.persist(ctx)
	return nil
}

// AddIncome appends an income entry for the logged-in account.
func (s *TrackerService) AddIncome(ctx context.Context, source string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.requireSession()
	if err != nil {
		return err
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	acc.AppendIncome(domain.NewEntry(source, amount))
	s.persist(ctx)
	return nil
}

// SetBudget replaces the logged-in account's budget.
func (s *TrackerService) SetBudget(ctx context.Context, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.requireSession()
	if err != nil {
		return err
	}
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}

	acc.Budget = amount
	s.persist(ctx)
	return nil
}

// ViewReport computes the aggregate report for the logged-in account.
// It reads state only; nothing is persisted.
func (s *TrackerService) ViewReport(ctx context.Context) (domain.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, err := s.requireSession()
	if err != nil {
		return domain.Report{}, err
	}
	return acc.ComputeReport(), nil
}

// CurrentUser returns the ID of the active session, or "" when nobody is
// logged in.
func (s *TrackerService) CurrentUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.CurrentUserID
}

// UserExists reports whether an identifier matches an account ID or
// username.
func (s *TrackerService) UserExists(identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.FindByIdentifier(identifier) != nil
}

// requireSession returns the logged-in account or ErrNotLoggedIn.
// Callers must hold the mutex.
func (s *TrackerService) requireSession() (*domain.Account, error) {
	acc := s.snap.CurrentAccount()
	if acc == nil {
		return nil, domain.ErrNotLoggedIn
	}
	return acc, nil
}

// persist flushes the snapshot. A failed save degrades to a warning: the
// in-memory snapshot stays authoritative for the rest of the process.
// Callers must hold the mutex.
func (s *TrackerService) persist(ctx context.Context) {
	if err := s.store.Save(ctx, s.snap); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist snapshot, in-memory state is now unsaved")
	}
}

// passwordAcceptable enforces the acceptance policy: minimum length and
// at least one decimal digit.
func passwordAcceptable(password string) bool {
	if len(password) < minPasswordLength {
		return false
	}
	for _, r := range password {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// emailShaped reports whether the identifier looks like an email:
// it contains an @ with a dot somewhere after the last one.
func emailShaped(identifier string) bool {
	at := strings.LastIndex(identifier, "@")
	if at <= 0 {
		return false
	}
	return strings.Contains(identifier[at+1:], ".")
}
