// Package student contains the HTTP handlers for the student records.
//
// Every handler is built by a factory that receives its dependencies once,
// at route registration, and returns the http.HandlerFunc the router calls
// on each request:
//
//	router.Handle("POST /add", student.Add(store))
//
// All routes in this package sit behind middleware.RequireSession. Writes
// follow the same path: parse form → validation.Sanitize → validation.Validate
// → store → redirect to "/". Only a validation.Record reaches the store.
package student

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aanand-mishra/student-records/internal/http/views"
	"github.com/aanand-mishra/student-records/internal/session"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
	"github.com/aanand-mishra/student-records/internal/validation"
)

// ─────────────────────────────────────────────────────────────────────────────
// List handles GET /
// Renders every student in store order together with the add form and any
// pending flash notice.
// ─────────────────────────────────────────────────────────────────────────────
func List(store storage.Students, sessions *session.Manager, pages *views.Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		students, err := store.ListStudents(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "error listing students", slog.Any("error", err))
			response.WriteError(w, err)
			return
		}

		page := views.Page{Title: "Students", LoggedIn: true, Students: students}
		if f, ok := sessions.PopFlash(w, r); ok {
			page.Flash = &f
		}
		render(w, r, pages, http.StatusOK, views.Index, page)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Add handles POST /add
//
// Form fields: name, age, grade
//
//	303 See Other → /      student created
//	400 Bad Request        validation failed; body is the plain-text message
//	500 Internal           database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Add(store storage.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		record, err := validation.Validate(readForm(r))
		if err != nil {
			slog.InfoContext(ctx, "rejected student", slog.String("reason", err.Error()))
			response.WriteError(w, err)
			return
		}

		student, err := store.CreateStudent(ctx, record)
		if err != nil {
			slog.ErrorContext(ctx, "error creating student", slog.Any("error", err))
			response.WriteError(w, err)
			return
		}

		slog.InfoContext(ctx, "student created", slog.Int64("id", student.ID))
		response.Redirect(w, r, "/")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// EditForm handles GET /edit/{id}
// Renders the edit form pre-filled with the stored values.
//
//	404 Not Found    id is not a positive integer or no such student
//
// ─────────────────────────────────────────────────────────────────────────────
func EditForm(store storage.Students, pages *views.Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			response.NotFound(w)
			return
		}

		student, err := store.GetStudent(r.Context(), id)
		if err != nil {
			logStoreError(r, "error getting student", id, err)
			response.WriteError(w, err)
			return
		}

		render(w, r, pages, http.StatusOK, views.Edit, views.Page{
			Title:    "Edit " + student.Name,
			LoggedIn: true,
			Student:  &student,
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles POST /edit/{id}
// Replaces every field of an existing student. The submission is validated
// before the store is consulted, so invalid input is a 400 even for an id
// that does not exist.
//
//	303 See Other → /      student updated
//	400 Bad Request        validation failed
//	404 Not Found          bad id or no such student
//	500 Internal           database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, ok := pathID(r)
		if !ok {
			response.NotFound(w)
			return
		}

		record, err := validation.Validate(readForm(r))
		if err != nil {
			slog.InfoContext(ctx, "rejected student update",
				slog.Int64("id", id),
				slog.String("reason", err.Error()),
			)
			response.WriteError(w, err)
			return
		}

		if _, err := store.UpdateStudent(ctx, id, record); err != nil {
			logStoreError(r, "error updating student", id, err)
			response.WriteError(w, err)
			return
		}

		slog.InfoContext(ctx, "student updated", slog.Int64("id", id))
		response.Redirect(w, r, "/")
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles GET /delete/{id}
// Permanently removes a student record.
//
//	303 See Other → /      student deleted
//	404 Not Found          bad id or no such student (including a second delete)
//	500 Internal           database error
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			response.NotFound(w)
			return
		}

		if err := store.DeleteStudent(r.Context(), id); err != nil {
			logStoreError(r, "error deleting student", id, err)
			response.WriteError(w, err)
			return
		}

		slog.InfoContext(r.Context(), "student deleted", slog.Int64("id", id))
		response.Redirect(w, r, "/")
	}
}

// readForm collects the raw student fields from a urlencoded or multipart
// body. Missing fields read as empty and fail validation.
func readForm(r *http.Request) types.StudentForm {
	return types.StudentForm{
		Name:  r.PostFormValue("name"),
		Age:   r.PostFormValue("age"),
		Grade: r.PostFormValue("grade"),
	}
}

// pathID parses the {id} path segment. Anything but a positive integer
// names no student.
func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func logStoreError(r *http.Request, msg string, id int64, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	slog.ErrorContext(r.Context(), msg, slog.Int64("id", id), slog.Any("error", err))
}

func render(w http.ResponseWriter, r *http.Request, pages *views.Views, status int, name string, page views.Page) {
	if err := pages.Render(r.Context(), w, status, name, page); err != nil {
		slog.ErrorContext(r.Context(), "error rendering page", slog.String("page", name), slog.Any("error", err))
		response.WriteError(w, err)
	}
}
