// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface using Go's standard database/sql package.
//
// Every statement is prepared with ? placeholders and executed with the
// values passed separately, so user input is only ever data, never SQL.
// The schema is owned by the versioned migrations embedded below and is
// brought up to date every time the database is opened.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/validation"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const dsnParams = "_foreign_keys=on&_busy_timeout=5000"

// SQLite is the concrete implementation of storage.Store.
type SQLite struct {
	Db *sql.DB
}

// New opens the SQLite database at path, creating the file and its parent
// directory if needed, and migrates it to the current schema.
func New(ctx context.Context, path string, logger *slog.Logger) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite.New: empty storage path")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("sqlite.New: create parent dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}
	// One connection: SQLite has a single writer, and an in-memory database
	// only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: ping: %w", err)
	}
	if err := migrate(ctx, db, logger.With(slog.String("db", path))); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{Db: db}, nil
}

func dsn(path string) string {
	if strings.ContainsRune(path, '?') {
		return path + "&" + dsnParams
	}
	return path + "?" + dsnParams
}

func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("sqlite.New: migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("sqlite.New: migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("sqlite.New: migrate: %w", err)
	}
	for _, res := range results {
		logger.DebugContext(ctx, "applied migration",
			slog.Int64("version", res.Source.Version),
			slog.Duration("took", res.Duration),
		)
	}
	return nil
}

// Close satisfies the storage.Store interface.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

// CreateStudent inserts a new row into the student table.
func (s *SQLite) CreateStudent(ctx context.Context, rec validation.Record) (types.Student, error) {
	if !rec.Valid() {
		return types.Student{}, validation.ErrUnvalidated
	}

	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO student (name, age, grade) VALUES (?, ?, ?)",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, rec.Name(), rec.Age(), string(rec.Grade()))
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: exec: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return types.Student{}, fmt.Errorf("CreateStudent: last insert id: %w", err)
	}

	return types.Student{
		ID:    id,
		Name:  rec.Name(),
		Age:   rec.Age(),
		Grade: rec.Grade(),
	}, nil
}

// GetStudent fetches exactly one student row matched by primary key.
func (s *SQLite) GetStudent(ctx context.Context, id int64) (types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, name, age, grade FROM student WHERE id = ? LIMIT 1",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudent: prepare: %w", err)
	}
	defer stmt.Close()

	var student types.Student
	err = stmt.QueryRowContext(ctx, id).Scan(
		&student.ID,
		&student.Name,
		&student.Age,
		&student.Grade,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Student{}, storage.ErrNotFound
	}
	if err != nil {
		return types.Student{}, fmt.Errorf("GetStudent: scan: %w", err)
	}

	return student, nil
}

// ListStudents returns all student rows in insertion order.
func (s *SQLite) ListStudents(ctx context.Context) ([]types.Student, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, name, age, grade FROM student ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("ListStudents: prepare: %w", err)
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListStudents: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		var student types.Student
		if err := rows.Scan(
			&student.ID,
			&student.Name,
			&student.Age,
			&student.Grade,
		); err != nil {
			return nil, fmt.Errorf("ListStudents: scan row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListStudents: rows iteration: %w", err)
	}

	return students, nil
}

// UpdateStudent replaces a student's data in place.
func (s *SQLite) UpdateStudent(ctx context.Context, id int64, rec validation.Record) (types.Student, error) {
	if !rec.Valid() {
		return types.Student{}, validation.ErrUnvalidated
	}

	stmt, err := s.Db.PrepareContext(ctx,
		"UPDATE student SET name = ?, age = ?, grade = ? WHERE id = ?",
	)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, rec.Name(), rec.Age(), string(rec.Grade()), id)
	if err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: exec: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return types.Student{}, fmt.Errorf("UpdateStudent: %w", err)
	}

	return types.Student{
		ID:    id,
		Name:  rec.Name(),
		Age:   rec.Age(),
		Grade: rec.Grade(),
	}, nil
}

// DeleteStudent removes a student row by primary key.
func (s *SQLite) DeleteStudent(ctx context.Context, id int64) error {
	stmt, err := s.Db.PrepareContext(ctx, "DELETE FROM student WHERE id = ?")
	if err != nil {
		return fmt.Errorf("DeleteStudent: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("DeleteStudent: exec: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return fmt.Errorf("DeleteStudent: %w", err)
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Users
// ─────────────────────────────────────────────────────────────────────────────

// GetUserByName looks a user up by the unique username index.
func (s *SQLite) GetUserByName(ctx context.Context, username string) (types.User, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"SELECT id, username, password FROM user WHERE username = ? LIMIT 1",
	)
	if err != nil {
		return types.User{}, fmt.Errorf("GetUserByName: prepare: %w", err)
	}
	defer stmt.Close()

	var (
		user types.User
		hash string
	)
	err = stmt.QueryRowContext(ctx, username).Scan(&user.ID, &user.Username, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, storage.ErrNotFound
	}
	if err != nil {
		return types.User{}, fmt.Errorf("GetUserByName: scan: %w", err)
	}
	user.PasswordHash = []byte(hash)

	return user, nil
}

// CreateUser inserts a user. The unique index on username turns a
// concurrent duplicate into ErrDuplicateUsername as well.
func (s *SQLite) CreateUser(ctx context.Context, username string, passwordHash []byte) (types.User, error) {
	stmt, err := s.Db.PrepareContext(ctx,
		"INSERT INTO user (username, password) VALUES (?, ?)",
	)
	if err != nil {
		return types.User{}, fmt.Errorf("CreateUser: prepare: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, username, string(passwordHash))
	if isUniqueViolation(err) {
		return types.User{}, storage.ErrDuplicateUsername
	}
	if err != nil {
		return types.User{}, fmt.Errorf("CreateUser: exec: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return types.User{}, fmt.Errorf("CreateUser: last insert id: %w", err)
	}

	return types.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Sessions
// ─────────────────────────────────────────────────────────────────────────────

// CreateSession stores a login session.
func (s *SQLite) CreateSession(ctx context.Context, sess types.Session) error {
	_, err := s.Db.ExecContext(ctx,
		"INSERT INTO session (id, user_id, expires_at) VALUES (?, ?, ?)",
		sess.ID, sess.UserID, sess.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("CreateSession: exec: %w", err)
	}
	return nil
}

// GetSession loads a session by id.
func (s *SQLite) GetSession(ctx context.Context, id string) (types.Session, error) {
	var (
		sess    types.Session
		expires int64
	)
	err := s.Db.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at FROM session WHERE id = ? LIMIT 1", id,
	).Scan(&sess.ID, &sess.UserID, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Session{}, storage.ErrNotFound
	}
	if err != nil {
		return types.Session{}, fmt.Errorf("GetSession: scan: %w", err)
	}
	sess.ExpiresAt = time.Unix(expires, 0).UTC()
	return sess, nil
}

// DeleteSession removes a session. Missing sessions are ignored.
func (s *SQLite) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.Db.ExecContext(ctx, "DELETE FROM session WHERE id = ?", id); err != nil {
		return fmt.Errorf("DeleteSession: exec: %w", err)
	}
	return nil
}

func expectOneRow(result sql.Result) error {
	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if count == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

var _ storage.Store = (*SQLite)(nil)
