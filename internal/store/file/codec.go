package file

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/tally/internal/domain"
)

// Wire types mirror the persisted JSON document. Field names are a stable
// contract: `users`, `currentUser`, `failedAttempts`, and the per-account
// fields below. Unknown extra fields are ignored on read, and absent
// optional sections default to empty.

type wireSnapshot struct {
	Users          map[string]*wireAccount `json:"users"`
	CurrentUser    *string                 `json:"currentUser"`
	FailedAttempts map[string]wireLockout  `json:"failedAttempts"`
}

type wireAccount struct {
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Age      wireAge     `json:"age"`
	Expenses []wireEntry `json:"expenses"`
	Income   []wireEntry `json:"income"`
	Budget   float64     `json:"budget"`
}

// wireAge accepts both the legacy string form ("25") and a plain number,
// and always writes back a number.
type wireAge int

func (a *wireAge) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*a = wireAge(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("age must be a number or numeric string: %s", data)
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("age is not numeric: %q", s)
	}
	*a = wireAge(n)
	return nil
}

// wireEntry covers both ledgers: expenses label their entries `category`,
// income labels them `source`. Entries written before IDs existed have no
// `id`; one is assigned on load.
type wireEntry struct {
	ID       string  `json:"id,omitempty"`
	Category string  `json:"category,omitempty"`
	Source   string  `json:"source,omitempty"`
	Amount   float64 `json:"amount"`
}

func (e wireEntry) toDomain() domain.Entry {
	label := e.Category
	if label == "" {
		label = e.Source
	}
	id := e.ID
	if id == "" {
		id = uuid.NewString()
	}
	return domain.Entry{ID: id, Label: label, Amount: e.Amount}
}

// wireLockout stores the failure time as unix seconds, the representation
// the original data files carry.
type wireLockout struct {
	Count int     `json:"count"`
	Time  float64 `json:"time"`
}

func encodeSnapshot(snap *domain.Snapshot) *wireSnapshot {
	w := &wireSnapshot{
		Users:          make(map[string]*wireAccount, len(snap.Accounts)),
		FailedAttempts: make(map[string]wireLockout, len(snap.Lockouts)),
	}

	for id, acc := range snap.Accounts {
		wa := &wireAccount{
			Username: acc.Username,
			Email:    acc.ID,
			Password: acc.SecretHash,
			Name:     acc.DisplayName,
			Age:      wireAge(acc.Age),
			Expenses: make([]wireEntry, 0, len(acc.Expenses)),
			Income:   make([]wireEntry, 0, len(acc.Income)),
			Budget:   acc.Budget,
		}
		for _, e := range acc.Expenses {
			wa.Expenses = append(wa.Expenses, wireEntry{ID: e.ID, Category: e.Label, Amount: e.Amount})
		}
		for _, e := range acc.Income {
			wa.Income = append(wa.Income, wireEntry{ID: e.ID, Source: e.Label, Amount: e.Amount})
		}
		w.Users[id] = wa
	}

	if snap.CurrentUserID != "" {
		current := snap.CurrentUserID
		w.CurrentUser = &current
	}

	for key, rec := range snap.Lockouts {
		w.FailedAttempts[key] = wireLockout{
			Count: rec.Count,
			Time:  float64(rec.LastFailure.UnixNano()) / float64(time.Second),
		}
	}

	return w
}

func decodeSnapshot(w *wireSnapshot) *domain.Snapshot {
	snap := domain.NewSnapshot()

	for id, wa := range w.Users {
		if id == "" {
			id = wa.Email
		}
		acc := domain.NewAccount(id, wa.Username, wa.Name, int(wa.Age), wa.Password)
		acc.Budget = wa.Budget
		for _, e := range wa.Expenses {
			acc.AppendExpense(e.toDomain())
		}
		for _, e := range wa.Income {
			acc.AppendIncome(e.toDomain())
		}
		snap.Accounts[id] = acc
	}

	if w.CurrentUser != nil {
		snap.CurrentUserID = *w.CurrentUser
	}

	for key, wl := range w.FailedAttempts {
		sec, frac := math.Modf(wl.Time)
		snap.Lockouts[key] = domain.LockoutRecord{
			Count:       wl.Count,
			LastFailure: time.Unix(int64(sec), int64(frac*float64(time.Second))),
		}
	}

	return snap
}
