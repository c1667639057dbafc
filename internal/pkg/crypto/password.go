// Package crypto provides password hashing utilities for Tally.
package crypto

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when no cost is configured.
const DefaultCost = bcrypt.DefaultCost

// HashPassword derives a salted bcrypt hash from a plaintext password.
// The salt is generated per call, so hashing the same plaintext twice
// yields different hashes; both verify against the plaintext.
func HashPassword(plaintext string, cost int) (string, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext matches the stored hash.
// bcrypt's comparison runs in time independent of where a mismatch occurs.
// A malformed stored hash verifies as false rather than erroring; callers
// treat it the same as a wrong password.
func VerifyPassword(plaintext, secretHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(plaintext)) == nil
}
