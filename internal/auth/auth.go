// Package auth registers users and checks their credentials against the
// credential store. Passwords are hashed with bcrypt; plaintext is never
// stored or logged. Establishing the session after a successful login is
// the job of the session package.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

const (
	// ErrInvalidCredentials is returned when the user does not exist or the
	// password does not match. The two cases are deliberately identical.
	ErrInvalidCredentials Error = "Invalid username or password"
	// ErrDuplicateUsername is returned when registering a taken username.
	ErrDuplicateUsername Error = "Username already taken"
	// ErrInvalidUsername is returned when the username is blank.
	ErrInvalidUsername Error = "Username cannot be empty"
	// ErrInvalidPassword is returned when the password is empty or longer
	// than MaxPasswordLen bytes.
	ErrInvalidPassword Error = "Password must be between 1 and 72 bytes"
)

// Error is an authentication failure shown to the user as-is.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }

// dummyHash is compared against when a username is unknown so that a
// failed lookup costs as much as a failed password check.
var dummyHash, _ = hashPassword("not-a-real-password")

// Service authenticates users against a credential store.
type Service struct {
	users  storage.Users
	logger *slog.Logger
}

// New returns a Service backed by users.
func New(users storage.Users, logger *slog.Logger) *Service {
	return &Service{users: users, logger: logger}
}

// Register creates a user with a bcrypt hash of password.
func (s *Service) Register(ctx context.Context, username, password string) (types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return types.User{}, ErrInvalidUsername
	}
	hash, err := hashPassword(password)
	if err != nil {
		return types.User{}, err
	}

	switch _, err := s.users.GetUserByName(ctx, username); {
	case err == nil:
		return types.User{}, ErrDuplicateUsername
	case !errors.Is(err, storage.ErrNotFound):
		return types.User{}, fmt.Errorf("Register: lookup: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, hash)
	if errors.Is(err, storage.ErrDuplicateUsername) {
		return types.User{}, ErrDuplicateUsername
	}
	if err != nil {
		return types.User{}, fmt.Errorf("Register: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}

// Authenticate returns the user matching username and password, or
// ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (types.User, error) {
	user, err := s.users.GetUserByName(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_ = checkPassword(dummyHash, password)
		return types.User{}, ErrInvalidCredentials
	case err != nil:
		return types.User{}, fmt.Errorf("Authenticate: lookup: %w", err)
	}

	switch err := checkPassword(user.PasswordHash, password); {
	case errors.Is(err, ErrInvalidCredentials):
		s.logger.InfoContext(ctx, "login rejected", slog.String("username", user.Username))
		return types.User{}, ErrInvalidCredentials
	case err != nil:
		return types.User{}, fmt.Errorf("Authenticate: %w", err)
	}
	return user, nil
}
