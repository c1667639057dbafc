package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordIsSalted(t *testing.T) {
	first, err := HashPassword("pass1234", bcrypt.MinCost)
	require.NoError(t, err)
	second, err := HashPassword("pass1234", bcrypt.MinCost)
	require.NoError(t, err)

	// Two hashes of the same plaintext differ, yet both verify.
	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword("pass1234", first))
	assert.True(t, VerifyPassword("pass1234", second))
}

func TestVerifyPasswordRejectsWrongPassword(t *testing.T) {
	hash, err := HashPassword("pass1234", bcrypt.MinCost)
	require.NoError(t, err)

	assert.False(t, VerifyPassword("pass12345", hash))
	assert.False(t, VerifyPassword("", hash))
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	// A malformed stored hash must verify as false, not fail.
	assert.False(t, VerifyPassword("pass1234", "not-a-bcrypt-hash"))
	assert.False(t, VerifyPassword("pass1234", ""))
}

func TestHashPasswordDefaultCost(t *testing.T) {
	hash, err := HashPassword("pass1234", 0)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
