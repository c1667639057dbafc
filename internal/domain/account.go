// Package domain contains the core business entities for Tally.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the personal finance tracker.
package domain

import (
	"github.com/google/uuid"
)

// Age bounds enforced at registration time.
const (
	MinAge = 18
	MaxAge = 100
)

// Entry is a single ledger line: an income or expense amount with a label
// (income source or expense category). Entries are append-only; there is
// no operation that removes or edits one.
type Entry struct {
	// ID is a stable unique identifier for the entry, assigned when the
	// entry is appended. Database-backed stores use it as the row key.
	ID string `json:"id"`

	// Label is the expense category or income source.
	Label string `json:"label"`

	// Amount is the entry value. Always > 0; validated at the operation
	// boundary before the entry is constructed.
	Amount float64 `json:"amount"`
}

// NewEntry creates a ledger entry with a fresh ID.
func NewEntry(label string, amount float64) Entry {
	return Entry{
		ID:     uuid.NewString(),
		Label:  label,
		Amount: amount,
	}
}

// Account represents a registered user together with their ledgers.
type Account struct {
	// ID is the stable primary key: the email address, or the username
	// when no email-shaped identity was given. Immutable after creation.
	ID string `json:"id"`

	// Username is the secondary, human-chosen identity. Unique across
	// all accounts.
	Username string `json:"username"`

	// DisplayName is the user's full name as entered at registration.
	DisplayName string `json:"name"`

	// Age is the user's age, constrained to [MinAge, MaxAge].
	Age int `json:"age"`

	// SecretHash is the bcrypt hash of the user's password.
	// Plaintext passwords are never stored or logged.
	SecretHash string `json:"-"`

	// Budget is the current budget amount. Replaced, never accumulated.
	Budget float64 `json:"budget"`

	// Income and Expenses are append-only, insertion-ordered ledgers.
	Income   []Entry `json:"income"`
	Expenses []Entry `json:"expenses"`
}

// NewAccount creates an account with empty ledgers and a zero budget.
func NewAccount(id, username, displayName string, age int, secretHash string) *Account {
	return &Account{
		ID:          id,
		Username:    username,
		DisplayName: displayName,
		Age:         age,
		SecretHash:  secretHash,
		Income:      []Entry{},
		Expenses:    []Entry{},
	}
}

// AppendIncome adds an income entry. Amount validation happens at the
// operation boundary, not here.
func (a *Account) AppendIncome(e Entry) {
	a.Income = append(a.Income, e)
}

// AppendExpense adds an expense entry.
func (a *Account) AppendExpense(e Entry) {
	a.Expenses = append(a.Expenses, e)
}

// Report is the aggregate view of one account's ledgers.
type Report struct {
	TotalIncome   float64 `json:"total_income"`
	TotalExpenses float64 `json:"total_expenses"`
	Budget        float64 `json:"budget"`
	Remaining     float64 `json:"remaining"`
}

// ComputeReport sums the ledgers. Pure function of the account's current
// state; calling it repeatedly without intervening mutations yields
// identical results.
func (a *Account) ComputeReport() Report {
	var income, expenses float64
	for _, e := range a.Income {
		income += e.Amount
	}
	for _, e := range a.Expenses {
		expenses += e.Amount
	}
	return Report{
		TotalIncome:   income,
		TotalExpenses: expenses,
		Budget:        a.Budget,
		Remaining:     a.Budget - expenses,
	}
}
