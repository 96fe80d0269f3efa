package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost keeps login latency tolerable while staying above the
// library default floor.
const bcryptCost = 10

// HashPassword derives the stored bcrypt hash for an account password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword checks a plaintext password against its stored hash.
// Returns a non-nil error on mismatch.
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
