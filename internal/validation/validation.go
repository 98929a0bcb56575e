// Package validation is the single gate between untrusted form input and
// the student store.
//
// Every add and edit runs two passes over the submitted fields:
//
//  1. Sanitize strips markup from the free-text fields (name, grade).
//  2. The checks below run in a fixed order and stop at the first failure.
//
// The result of a successful pass is a [Record]. Its fields are unexported
// and it can only be built by [Validate], so the store's write methods,
// which accept nothing but a Record, cannot be reached with unchecked data.
package validation

import (
	"html"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/aanand-mishra/student-records/internal/types"
)

const (
	// ErrEmptyName is returned when the name is empty after trimming.
	ErrEmptyName Error = "Name cannot be empty or whitespace"
	// ErrInvalidNameChars is returned when the name contains a forbidden character.
	ErrInvalidNameChars Error = "Name contains invalid characters"
	// ErrInvalidAge is returned when the age is not an integer in [MinAge, MaxAge].
	ErrInvalidAge Error = "Age must be a valid number between 1 and 120"
	// ErrInvalidGrade is returned when the grade is not one of [types.Grades].
	ErrInvalidGrade Error = "Grade must be one of A,B,C,D,E,F"
	// ErrUnvalidated is returned by stores handed a Record that did not come
	// out of Validate.
	ErrUnvalidated Error = "record has not been validated"
)

// Age bounds, inclusive.
const (
	MinAge = 1
	MaxAge = 120
)

// ForbiddenNameChars may not appear anywhere in a student name.
const ForbiddenNameChars = `'";=%`

// sanitizeRounds bounds the sanitize/unescape loop.
const sanitizeRounds = 4

// Error is a validation failure. Its text is shown to the client as-is.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }

var (
	validate = validator.New(validator.WithRequiredStructEnabled())
	policy   = bluemonday.StrictPolicy()

	nameRules  = "excludesall=" + ForbiddenNameChars
	ageRules   = "min=" + strconv.Itoa(MinAge) + ",max=" + strconv.Itoa(MaxAge)
	gradeRules = "required,oneof=" + gradeList(" ")
)

// Record is a sanitized, validated student ready to be persisted.
type Record struct {
	name  string
	age   int
	grade types.Grade
	valid bool
}

// Name returns the sanitized, trimmed name.
func (r Record) Name() string { return r.name }

// Age returns the parsed age.
func (r Record) Age() int { return r.age }

// Grade returns the grade.
func (r Record) Grade() types.Grade { return r.grade }

// Valid reports whether r was produced by Validate. The zero Record is not
// valid.
func (r Record) Valid() bool { return r.valid }

// Sanitize returns form with markup removed from the name and grade. The
// age is numeric and left untouched.
func Sanitize(form types.StudentForm) types.StudentForm {
	return types.StudentForm{
		Name:  StripMarkup(form.Name),
		Age:   form.Age,
		Grade: StripMarkup(form.Grade),
	}
}

// StripMarkup removes every HTML element from s, dropping the contents of
// script and style elements, and returns plain text. The policy emits
// escaped HTML, which is unescaped again; this repeats until the text is
// stable so entity-encoded tags such as "&lt;script&gt;" are removed too.
//
// Text that opens a tag or comment is parsed as one, so everything from the
// "<" onward is lost: "a<b" becomes "a" and "x<!--" becomes "x".
func StripMarkup(s string) string {
	for range sanitizeRounds {
		clean := html.UnescapeString(policy.Sanitize(s))
		if clean == s {
			break
		}
		s = clean
	}
	return s
}

// Validate sanitizes form and checks it, returning the first failure in
// this order: ErrEmptyName, ErrInvalidNameChars, ErrInvalidAge,
// ErrInvalidGrade.
func Validate(form types.StudentForm) (Record, error) {
	form = Sanitize(form)

	name := strings.TrimSpace(form.Name)
	if validate.Var(name, "required") != nil {
		return Record{}, ErrEmptyName
	}
	if validate.Var(name, nameRules) != nil {
		return Record{}, ErrInvalidNameChars
	}

	age, err := parseAge(form.Age)
	if err != nil {
		return Record{}, err
	}

	if validate.Var(form.Grade, gradeRules) != nil {
		return Record{}, ErrInvalidGrade
	}

	return Record{
		name:  name,
		age:   age,
		grade: types.Grade(form.Grade),
		valid: true,
	}, nil
}

// parseAge accepts only plain ASCII digits: no sign, spaces or decimals.
func parseAge(raw string) (int, error) {
	if validate.Var(raw, "required,number") != nil {
		return 0, ErrInvalidAge
	}
	age, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrInvalidAge
	}
	if validate.Var(age, ageRules) != nil {
		return 0, ErrInvalidAge
	}
	return age, nil
}

func gradeList(sep string) string {
	names := make([]string, len(types.Grades))
	for i, g := range types.Grades {
		names[i] = string(g)
	}
	return strings.Join(names, sep)
}
