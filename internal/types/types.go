// Package types holds the shared data structures used across the
// application. Keeping them in one place prevents import cycles:
// handlers, storage, validation and auth can all import types without
// depending on each other.
package types

import "time"

// Grade is a student's letter grade.
type Grade string

// The fixed set of grades a student may hold.
const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
	GradeF Grade = "F"
)

// Grades lists every valid grade in display order.
var Grades = []Grade{GradeA, GradeB, GradeC, GradeD, GradeE, GradeF}

// Student is a persisted student record.
type Student struct {
	ID    int64
	Name  string
	Age   int
	Grade Grade
}

// StudentForm is the untrusted input of the add and edit forms, exactly as
// submitted. Age stays a string until validation has parsed it.
type StudentForm struct {
	Name  string
	Age   string
	Grade string
}

// User is a registered account. PasswordHash is a bcrypt hash; the
// plaintext password never leaves the auth package.
type User struct {
	ID           int64
	Username     string
	PasswordHash []byte
}

// Session binds an opaque session id to a user until ExpiresAt.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
