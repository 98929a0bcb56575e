// Package response provides helpers for writing consistent HTTP responses.
//
// Pages are rendered by the views package; everything else a handler sends
// back (validation failures, not-found, redirects) goes through here so the
// status codes and bodies stay the same across handlers.
package response

import (
	"errors"
	"net/http"

	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/validation"
)

// NotFoundMessage is the body of every not-found response.
const NotFoundMessage = "student not found"

// WriteText writes msg as a plain-text body with the given status.
func WriteText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

// StatusFor maps an error from the validation or storage layers to the
// HTTP status the client should see.
//
//	validation.Error    → 400 Bad Request
//	storage.ErrNotFound → 404 Not Found
//	anything else       → 500 Internal Server Error
func StatusFor(err error) int {
	var verr validation.Error
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err with the status from StatusFor and returns that
// status. Internal errors are replaced by a generic message so database
// details never reach the client.
func WriteError(w http.ResponseWriter, err error) int {
	status := StatusFor(err)
	switch status {
	case http.StatusNotFound:
		WriteText(w, status, NotFoundMessage)
	case http.StatusInternalServerError:
		WriteText(w, status, http.StatusText(status))
	default:
		WriteText(w, status, err.Error())
	}
	return status
}

// NotFound writes the standard not-found response.
func NotFound(w http.ResponseWriter) {
	WriteText(w, http.StatusNotFound, NotFoundMessage)
}

// Redirect sends the client to url with 303 See Other, so a POST is
// followed by a GET.
func Redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}
