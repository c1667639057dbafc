package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeReport(t *testing.T) {
	acc := NewAccount("a@b.com", "a", "Alice", 25, "hash")
	acc.Budget = 500
	acc.AppendIncome(NewEntry("salary", 1000))
	acc.AppendExpense(NewEntry("rent", 400))
	acc.AppendExpense(NewEntry("food", 100))

	rep := acc.ComputeReport()
	assert.Equal(t, 1000.0, rep.TotalIncome)
	assert.Equal(t, 500.0, rep.TotalExpenses)
	assert.Equal(t, 500.0, rep.Budget)
	assert.Equal(t, 0.0, rep.Remaining)
}

func TestComputeReportEmptyLedgers(t *testing.T) {
	acc := NewAccount("a@b.com", "a", "Alice", 25, "hash")

	rep := acc.ComputeReport()
	assert.Equal(t, 0.0, rep.TotalIncome)
	assert.Equal(t, 0.0, rep.TotalExpenses)
	assert.Equal(t, 0.0, rep.Remaining)
}

func TestComputeReportIdempotent(t *testing.T) {
	acc := NewAccount("a@b.com", "a", "Alice", 25, "hash")
	acc.Budget = 200
	acc.AppendExpense(NewEntry("food", 12.50))

	first := acc.ComputeReport()
	second := acc.ComputeReport()
	assert.Equal(t, first, second)
}

func TestNewEntryAssignsUniqueIDs(t *testing.T) {
	a := NewEntry("salary", 100)
	b := NewEntry("salary", 100)
	require.NotEmpty(t, a.ID)
	require.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestFindByIdentifier(t *testing.T) {
	snap := NewSnapshot()
	snap.Accounts["a@b.com"] = NewAccount("a@b.com", "alice", "Alice", 25, "hash")

	assert.NotNil(t, snap.FindByIdentifier("a@b.com"))
	assert.NotNil(t, snap.FindByIdentifier("alice"))
	assert.Nil(t, snap.FindByIdentifier("bob"))
}

func TestNormalizeRepairsNilMaps(t *testing.T) {
	snap := &Snapshot{}
	snap.Normalize()
	require.NotNil(t, snap.Accounts)
	require.NotNil(t, snap.Lockouts)
}

func TestCurrentAccount(t *testing.T) {
	snap := NewSnapshot()
	snap.Accounts["a@b.com"] = NewAccount("a@b.com", "alice", "Alice", 25, "hash")

	assert.Nil(t, snap.CurrentAccount())

	snap.CurrentUserID = "a@b.com"
	require.NotNil(t, snap.CurrentAccount())
	assert.Equal(t, "alice", snap.CurrentAccount().Username)

	snap.CurrentUserID = "gone@b.com"
	assert.Nil(t, snap.CurrentAccount())
}
