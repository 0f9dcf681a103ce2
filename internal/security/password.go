package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured. Raise it as
// hardware gets faster; stored hashes carry their own cost and keep verifying.
const DefaultBcryptCost = 12

func HashPassword(password string) ([]byte, error) {
	return HashPasswordWithCost(password, DefaultBcryptCost)
}

func HashPasswordWithCost(password string, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword compares password with a bcrypt hash in constant time. A mismatch is
// (false, nil); a malformed hash is an error.
func VerifyPassword(password string, encodedHash []byte) (bool, error) {
	err := bcrypt.CompareHashAndPassword(encodedHash, []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("compare password: %w", err)
}
