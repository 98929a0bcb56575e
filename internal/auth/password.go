package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordLen is bcrypt's input limit. Longer passwords are refused
// rather than truncated.
const MaxPasswordLen = 72

// hashCost is the bcrypt work factor for new password hashes.
const hashCost = bcrypt.DefaultCost

// hashPassword returns the value stored in users.password_hash, or
// ErrInvalidPassword when password is empty or over MaxPasswordLen bytes.
func hashPassword(password string) ([]byte, error) {
	if password == "" || len(password) > MaxPasswordLen {
		return nil, ErrInvalidPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// checkPassword returns ErrInvalidCredentials unless password matches the
// stored hash. A corrupt hash is reported as its own error.
func checkPassword(hash []byte, password string) error {
	err := bcrypt.CompareHashAndPassword(hash, []byte(password))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("check password: %w", err)
	}
}
