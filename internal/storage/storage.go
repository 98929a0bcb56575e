// Package storage defines the contracts any database backend must satisfy.
//
// Handlers and services depend only on these interfaces. The write methods
// of [Students] take a [validation.Record], which only the validation
// package can produce, so unvalidated input has no path to the database.
// No method accepts query text: implementations bind every value as a
// statement parameter.
package storage

import (
	"context"

	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/validation"
)

const (
	// ErrNotFound is returned when a student, user or session does not exist.
	ErrNotFound Error = "not found"
	// ErrDuplicateUsername is returned when inserting a username that is taken.
	ErrDuplicateUsername Error = "Username already taken"
)

// Error is an error type returned by storage implementations.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }

// Students is the student store. It performs no validation of its own.
type Students interface {
	// ListStudents returns every student in primary-key order. The slice is
	// empty, not nil, when there are none.
	ListStudents(ctx context.Context) ([]types.Student, error)
	// GetStudent returns the student with id or ErrNotFound.
	GetStudent(ctx context.Context, id int64) (types.Student, error)
	// CreateStudent inserts rec and returns the stored row.
	CreateStudent(ctx context.Context, rec validation.Record) (types.Student, error)
	// UpdateStudent replaces every field of the student with id, returning
	// the stored row or ErrNotFound.
	UpdateStudent(ctx context.Context, id int64, rec validation.Record) (types.Student, error)
	// DeleteStudent removes the student with id, or returns ErrNotFound.
	DeleteStudent(ctx context.Context, id int64) error
}

// Users is the credential store.
type Users interface {
	// GetUserByName returns the user with username or ErrNotFound.
	GetUserByName(ctx context.Context, username string) (types.User, error)
	// CreateUser inserts a user, returning ErrDuplicateUsername if the name
	// is already in use.
	CreateUser(ctx context.Context, username string, passwordHash []byte) (types.User, error)
}

// Sessions holds the server side of login sessions.
type Sessions interface {
	// CreateSession stores sess.
	CreateSession(ctx context.Context, sess types.Session) error
	// GetSession returns the session with id or ErrNotFound. Expired
	// sessions are returned as-is; callers decide what expiry means.
	GetSession(ctx context.Context, id string) (types.Session, error)
	// DeleteSession removes the session with id. Deleting a missing session
	// is not an error.
	DeleteSession(ctx context.Context, id string) error
}

// Store combines every repository.
type Store interface {
	Students
	Users
	Sessions
	// Close releases the underlying database handle.
	Close() error
}
