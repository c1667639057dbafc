package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prn-tf/tally/internal/domain"
	"github.com/prn-tf/tally/internal/lockout"
)

// =============================================================================
// Fakes
// =============================================================================

// memoryStore is a map-backed snapshot store for tests.
type memoryStore struct {
	snap    *domain.Snapshot
	saves   int
	loadErr error
}

func (m *memoryStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snap == nil {
		return domain.NewSnapshot(), nil
	}
	return m.snap, nil
}

func (m *memoryStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	m.snap = snap
	m.saves++
	return nil
}

func (m *memoryStore) Close() error { return nil }

// mockStore injects persistence failures.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Snapshot), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// =============================================================================
// Fixtures
// =============================================================================

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*TrackerService, *memoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	st := &memoryStore{}
	tracker := lockout.NewTracker(
		lockout.Policy{MaxAttempts: 3, Cooldown: 60 * time.Second},
		zerolog.Nop(),
	).WithClock(clock.Now)
	svc := NewTrackerService(context.Background(), st, tracker, bcrypt.MinCost, zerolog.Nop())
	return svc, st, clock
}

func registerAlice(t *testing.T, svc *TrackerService) {
	t.Helper()
	err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@b.com",
		Password: "pass1234",
		Name:     "Alice",
		Age:      25,
		Username: "alice",
	})
	require.NoError(t, err)
}

// =============================================================================
// Registration
// =============================================================================

func TestRegisterSuccess(t *testing.T) {
	svc, st, _ := newTestService(t)
	registerAlice(t, svc)

	assert.True(t, svc.UserExists("a@b.com"))
	assert.True(t, svc.UserExists("alice"))
	assert.Equal(t, 1, st.saves)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)

	err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@b.com",
		Password: "other5678",
		Name:     "Impostor",
		Age:      40,
		Username: "impostor",
	})
	require.ErrorIs(t, err, domain.ErrAccountExists)

	// The first account's data is unchanged: the original password
	// still works and the impostor's username never landed.
	require.NoError(t, svc.Login(context.Background(), "a@b.com", "pass1234"))
	assert.False(t, svc.UserExists("impostor"))
}

func TestRegisterEmptyFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, input := range []RegisterInput{
		{Email: "", Password: "pass1234", Name: "Alice", Age: 25},
		{Email: "a@b.com", Password: "", Name: "Alice", Age: 25},
		{Email: "a@b.com", Password: "pass1234", Name: "", Age: 25},
		{Email: "a@b.com", Password: "pass1234", Name: "Alice", Age: 0},
	} {
		assert.ErrorIs(t, svc.Register(ctx, input), domain.ErrEmptyFields)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// 7 chars with a digit, and 8 chars without one: both rejected.
	err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "abcdef1", Name: "Alice", Age: 25})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)
	err = svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "abcdefgh", Name: "Alice", Age: 25})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	// 8 chars with a digit is accepted.
	err = svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "abcdefg1", Name: "Alice", Age: 25})
	assert.NoError(t, err)
}

func TestRegisterMalformedEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, email := range []string{"nodomain", "a@nodot", "@b.com", "a.b.com"} {
		err := svc.Register(ctx, RegisterInput{Email: email, Password: "pass1234", Name: "Alice", Age: 25})
		assert.ErrorIs(t, err, domain.ErrInvalidEmail, "email %q", email)
	}
}

func TestRegisterInvalidAge(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, age := range []int{17, 101} {
		err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "pass1234", Name: "Alice", Age: age})
		assert.ErrorIs(t, err, domain.ErrInvalidAge, "age %d", age)
	}

	for _, age := range []int{18, 100} {
		input := RegisterInput{Email: "a@b.com", Password: "pass1234", Name: "Alice", Age: age}
		if age == 100 {
			input.Email = "c@d.com"
			input.Username = "carol"
		}
		assert.NoError(t, svc.Register(ctx, input), "age %d", age)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)

	err := svc.Register(context.Background(), RegisterInput{
		Email:    "other@b.com",
		Password: "pass1234",
		Name:     "Other",
		Age:      30,
		Username: "alice",
	})
	assert.ErrorIs(t, err, domain.ErrUsernameExists)
}

func TestRegisterDefaultsUsernameToLocalPart(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.Register(context.Background(), RegisterInput{
		Email:    "carol@b.com",
		Password: "pass1234",
		Name:     "Carol",
		Age:      30,
	})
	require.NoError(t, err)
	assert.True(t, svc.UserExists("carol"))
}

func TestRegisterErrorPrecedence(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	// Weak password beats duplicate email.
	err := svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "short", Name: "X", Age: 25})
	assert.ErrorIs(t, err, domain.ErrWeakPassword)

	// Duplicate email beats invalid age.
	err = svc.Register(ctx, RegisterInput{Email: "a@b.com", Password: "pass1234", Name: "X", Age: 5})
	assert.ErrorIs(t, err, domain.ErrAccountExists)

	// Invalid age beats duplicate username.
	err = svc.Register(ctx, RegisterInput{Email: "x@y.com", Password: "pass1234", Name: "X", Age: 5, Username: "alice"})
	assert.ErrorIs(t, err, domain.ErrInvalidAge)
}

// =============================================================================
// Login, session, lockout
// =============================================================================

func TestLoginByEmailAndUsername(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "a@b.com", "pass1234"))
	assert.Equal(t, "a@b.com", svc.CurrentUser())

	require.NoError(t, svc.Logout(ctx))
	assert.Empty(t, svc.CurrentUser())

	// Username resolves to the same account id.
	require.NoError(t, svc.Login(ctx, "alice", "pass1234"))
	assert.Equal(t, "a@b.com", svc.CurrentUser())
}

func TestLoginFailureIsGeneric(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	wrongPassword := svc.Login(ctx, "a@b.com", "wrong1234")
	unknownUser := svc.Login(ctx, "ghost@b.com", "pass1234")

	// Callers cannot tell an unknown identifier from a wrong password.
	assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Empty(t, svc.CurrentUser())
}

func TestLoginLockoutAfterMaxAttempts(t *testing.T) {
	svc, _, clock := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := svc.Login(ctx, "a@b.com", "wrong1234")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}

	// Locked even with the correct password.
	err := svc.Login(ctx, "a@b.com", "pass1234")
	require.ErrorIs(t, err, domain.ErrLockedOut)

	var lockedOut *domain.LockedOutError
	require.ErrorAs(t, err, &lockedOut)
	assert.Equal(t, 60*time.Second, lockedOut.Remaining)

	// After the cooldown elapses the correct password succeeds.
	clock.Advance(60 * time.Second)
	require.NoError(t, svc.Login(ctx, "a@b.com", "pass1234"))
	assert.Equal(t, "a@b.com", svc.CurrentUser())
}

func TestLockoutCoversBothIdentifiers(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	// Lock via the email identifier, then try the username: same
	// account, same lockout key.
	for i := 0; i < 3; i++ {
		_ = svc.Login(ctx, "a@b.com", "wrong1234")
	}
	err := svc.Login(ctx, "alice", "pass1234")
	assert.ErrorIs(t, err, domain.ErrLockedOut)
}

func TestLockoutForUnknownIdentifier(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = svc.Login(ctx, "ghost", "whatever1")
	}
	err := svc.Login(ctx, "ghost", "whatever1")
	assert.ErrorIs(t, err, domain.ErrLockedOut)
}

func TestSuccessfulLoginClearsLockoutCounter(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()

	// Two failures, then a success: the counter resets, so two more
	// failures still leave headroom before the lock.
	_ = svc.Login(ctx, "a@b.com", "wrong1234")
	_ = svc.Login(ctx, "a@b.com", "wrong1234")
	require.NoError(t, svc.Login(ctx, "a@b.com", "pass1234"))
	require.NoError(t, svc.Logout(ctx))

	_ = svc.Login(ctx, "a@b.com", "wrong1234")
	_ = svc.Login(ctx, "a@b.com", "wrong1234")
	require.NoError(t, svc.Login(ctx, "a@b.com", "pass1234"))
}

// =============================================================================
// Ledger operations
// =============================================================================

func TestLedgerOperationsRequireSession(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddExpense(ctx, "food", 10), domain.ErrNotLoggedIn)
	assert.ErrorIs(t, svc.AddIncome(ctx, "salary", 10), domain.ErrNotLoggedIn)
	assert.ErrorIs(t, svc.SetBudget(ctx, 10), domain.ErrNotLoggedIn)
	_, err := svc.ViewReport(ctx)
	assert.ErrorIs(t, err, domain.ErrNotLoggedIn)
}

func TestAddExpenseValidatesAmount(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()
	require.NoError(t, svc.Login(ctx, "a@b.com", "pass1234"))

	assert.ErrorIs(t, svc.AddExpense(ctx, "food", -5), domain.ErrInvalidAmount)
	assert.ErrorIs(t, svc.AddExpense(ctx, "food", 0), domain.ErrInvalidAmount)

	require.NoError(t, svc.AddExpense(ctx, "food", 12.50))
	rep, err := svc.ViewReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.50, rep.TotalExpenses)
}

func TestAddIncomeValidatesAmount(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()
	require.NoError(t, svc.Login(ctx, "a@b.com", "pass1234"))

	assert.ErrorIs(t, svc.AddIncome(ctx, "salary", 0), domain.ErrInvalidAmount)
	require.NoError(t, svc.AddIncome(ctx, "salary", 100))
}

func TestSetBudgetReplaces(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()
	require.NoError(t, svc.Login(ctx, "a@b.com", "pass1234"))

	assert.ErrorIs(t, svc.SetBudget(ctx, -1), domain.ErrInvalidAmount)

	require.NoError(t, svc.SetBudget(ctx, 300))
	require.NoError(t, svc.SetBudget(ctx, 500))
	rep, err := svc.ViewReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500.0, rep.Budget)
}

func TestViewReportIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)
	ctx := context.Background()
	require.NoError(t, svc.Login(ctx, "a@b.com", "pass1234"))
	require.NoError(t, svc.AddIncome(ctx, "salary", 100))

	first, err := svc.ViewReport(ctx)
	require.NoError(t, err)
	second, err := svc.ViewReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// =============================================================================
// End to end
// =============================================================================

func TestEndToEndFlow(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, RegisterInput{
		Email:    "a@b.com",
		Password: "pass1234",
		Name:     "Alice",
		Age:      25,
	}))
	require.NoError(t, svc.Login(ctx, "a@b.com", "pass1234"))
	assert.Equal(t, "a@b.com", svc.CurrentUser())

	require.NoError(t, svc.SetBudget(ctx, 500))
	require.NoError(t, svc.AddIncome(ctx, "salary", 1000))
	require.NoError(t, svc.AddExpense(ctx, "rent", 400))

	rep, err := svc.ViewReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Report{
		TotalIncome:   1000,
		TotalExpenses: 400,
		Budget:        500,
		Remaining:     100,
	}, rep)

	// Every mutation flushed the snapshot: register, login, budget,
	// income, expense.
	assert.Equal(t, 5, st.saves)

	// A second service over the same store sees the persisted state.
	tracker := lockout.NewTracker(lockout.DefaultPolicy(), zerolog.Nop())
	reloaded := NewTrackerService(ctx, st, tracker, bcrypt.MinCost, zerolog.Nop())
	assert.Equal(t, "a@b.com", reloaded.CurrentUser())
}

// =============================================================================
// Degraded persistence
// =============================================================================

func TestOperationsSurviveSaveFailure(t *testing.T) {
	st := &mockStore{}
	st.On("Load", mock.Anything).Return(domain.NewSnapshot(), nil)
	st.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	tracker := lockout.NewTracker(lockout.DefaultPolicy(), zerolog.Nop())
	svc := NewTrackerService(context.Background(), st, tracker, bcrypt.MinCost, zerolog.Nop())
	ctx := context.Background()

	// Mutations succeed against the in-memory snapshot even though
	// every save fails.
	require.NoError(t, svc.Register(ctx, RegisterInput{
		Email: "a@b.com", Password: "pass1234", Name: "Alice", Age: 25,
	}))
	require.NoError(t, svc.Login(ctx, "a@b.com", "pass1234"))
	require.NoError(t, svc.SetBudget(ctx, 100))

	rep, err := svc.ViewReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100.0, rep.Budget)

	st.AssertExpectations(t)
}

func TestLoadFailureFallsBackToEmptyState(t *testing.T) {
	st := &mockStore{}
	st.On("Load", mock.Anything).Return(nil, errors.New("unreadable path"))
	st.On("Save", mock.Anything, mock.Anything).Return(nil)

	tracker := lockout.NewTracker(lockout.DefaultPolicy(), zerolog.Nop())
	svc := NewTrackerService(context.Background(), st, tracker, bcrypt.MinCost, zerolog.Nop())

	// The facade keeps operating on a fresh in-memory snapshot.
	assert.Empty(t, svc.CurrentUser())
	require.NoError(t, svc.Register(context.Background(), RegisterInput{
		Email: "a@b.com", Password: "pass1234", Name: "Alice", Age: 25,
	}))
}
