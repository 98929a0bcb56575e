// Package account contains the login, registration and logout handlers.
// These are the only routes reachable without a session.
package account

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-records/internal/auth"
	"github.com/aanand-mishra/student-records/internal/http/views"
	"github.com/aanand-mishra/student-records/internal/session"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

// Flash messages shown after a redirect.
const (
	LoginSuccess    = "Login successful"
	RegisterSuccess = "Registration successful! You can now log in."
	LogoutSuccess   = "Logged out successfully"
)

// LoginForm handles GET /login.
func LoginForm(sessions *session.Manager, pages *views.Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, pages, http.StatusOK, views.Login, withFlash(w, r, sessions, views.Page{Title: "Log in"}))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Login handles POST /login
//
// Form fields: username, password
//
//	303 See Other → /      session started, "Login successful" flashed
//	401 Unauthorized       login page re-rendered with the failure message
//	500 Internal           store or session error
//
// ─────────────────────────────────────────────────────────────────────────────
func Login(authn *auth.Service, sessions *session.Manager, pages *views.Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		username := r.PostFormValue("username")

		user, err := authn.Authenticate(ctx, username, r.PostFormValue("password"))
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.InfoContext(ctx, "failed login", slog.String("username", username))
			render(w, r, pages, http.StatusUnauthorized, views.Login, views.Page{
				Title:    "Log in",
				Error:    err.Error(),
				Username: username,
			})
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "error authenticating", slog.Any("error", err))
			response.WriteError(w, err)
			return
		}

		if _, err := sessions.Begin(ctx, w, user.ID); err != nil {
			slog.ErrorContext(ctx, "error starting session", slog.Any("error", err))
			response.WriteError(w, err)
			return
		}
		flash(w, r, sessions, session.Flash{Kind: session.FlashSuccess, Message: LoginSuccess})

		slog.InfoContext(ctx, "user logged in", slog.Int64("user_id", user.ID))
		response.Redirect(w, r, "/")
	}
}

// RegisterForm handles GET /register.
func RegisterForm(sessions *session.Manager, pages *views.Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, pages, http.StatusOK, views.Register, withFlash(w, r, sessions, views.Page{Title: "Register"}))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Register handles POST /register
//
// Form fields: username, password
//
//	303 See Other → /login  account created, success flashed
//	400 Bad Request         blank username or unusable password
//	409 Conflict            username already taken
//	500 Internal            store error
//
// ─────────────────────────────────────────────────────────────────────────────
func Register(authn *auth.Service, sessions *session.Manager, pages *views.Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		username := r.PostFormValue("username")

		user, err := authn.Register(ctx, username, r.PostFormValue("password"))
		if status, ok := registerStatus(err); ok {
			render(w, r, pages, status, views.Register, views.Page{
				Title:    "Register",
				Error:    err.Error(),
				Username: username,
			})
			return
		}
		if err != nil {
			slog.ErrorContext(ctx, "error registering user", slog.Any("error", err))
			response.WriteError(w, err)
			return
		}

		flash(w, r, sessions, session.Flash{Kind: session.FlashSuccess, Message: RegisterSuccess})

		slog.InfoContext(ctx, "user registered", slog.Int64("user_id", user.ID))
		response.Redirect(w, r, "/login")
	}
}

// Logout handles POST /logout. It succeeds whether or not a session exists.
func Logout(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := sessions.End(w, r); err != nil {
			slog.ErrorContext(r.Context(), "error ending session", slog.Any("error", err))
			response.WriteError(w, err)
			return
		}
		flash(w, r, sessions, session.Flash{Kind: session.FlashSuccess, Message: LogoutSuccess})
		response.Redirect(w, r, "/")
	}
}

// registerStatus maps a user-facing registration failure to its status.
func registerStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, auth.ErrDuplicateUsername):
		return http.StatusConflict, true
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
		return http.StatusBadRequest, true
	default:
		return 0, false
	}
}

func withFlash(w http.ResponseWriter, r *http.Request, sessions *session.Manager, page views.Page) views.Page {
	if f, ok := sessions.PopFlash(w, r); ok {
		page.Flash = &f
	}
	return page
}

// flash queues f. A failure is logged and the request carries on.
func flash(w http.ResponseWriter, r *http.Request, sessions *session.Manager, f session.Flash) {
	if err := sessions.SetFlash(w, f); err != nil {
		slog.WarnContext(r.Context(), "error setting flash", slog.Any("error", err))
	}
}

func render(w http.ResponseWriter, r *http.Request, pages *views.Views, status int, name string, page views.Page) {
	if err := pages.Render(r.Context(), w, status, name, page); err != nil {
		slog.ErrorContext(r.Context(), "error rendering page", slog.String("page", name), slog.Any("error", err))
		response.WriteError(w, err)
	}
}
