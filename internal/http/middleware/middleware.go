// Package middleware holds the http.Handler wrappers shared by every route.
package middleware

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/aanand-mishra/student-records/internal/session"
	"github.com/aanand-mishra/student-records/internal/utils/response"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/login"

// RequireSession lets a request through only when it carries an active
// session. The user id is stored in the request context for the handler;
// anything else is redirected to LoginPath, and a rejected session cookie
// is expired on the way.
func RequireSession(sessions *session.Manager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Current(r)
			switch {
			case errors.Is(err, session.ErrNoSession):
				sessions.Expire(w, r)
				response.Redirect(w, r, LoginPath)
				return
			case err != nil:
				logger.ErrorContext(r.Context(), "failed to resolve session",
					slog.String("path", r.URL.Path),
					slog.Any("error", err),
				)
				response.WriteText(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				return
			}

			next.ServeHTTP(w, r.WithContext(session.WithUserID(r.Context(), sess.UserID)))
		})
	}
}

// AccessLog writes one Apache combined-format line per request to out.
func AccessLog(out io.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return handlers.CombinedLoggingHandler(out, next)
	}
}

// Recover turns a handler panic into a 500 and logs it, with the stack,
// through logger.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)
}

// Chain applies mw to h so that the first one listed runs first.
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
