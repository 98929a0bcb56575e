// Package session implements the login session marker.
//
// A session is a random id stored server-side next to the user id it
// belongs to. The browser only ever holds the id sealed with
// XChaCha20-Poly1305 under a key derived from the configured secrets, so a
// cookie can be neither forged nor read. Rotating secrets works by
// prepending the new one: the first secret seals, all of them open.
//
// The same sealing carries one-shot flash notices between a redirect and
// the page it lands on.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

// ErrNoSession is returned when the request carries no usable session.
var ErrNoSession = errors.New("no active session")

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashDanger  = "danger"
)

const flashSep = "\x00"

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Kind    string
	Message string
}

// Manager creates, resolves and destroys sessions.
type Manager struct {
	store      storage.Sessions
	sealer     *sealer
	cookieName string
	flashName  string
	maxAge     time.Duration
	secure     bool
	logger     *slog.Logger

	now func() time.Time
}

// New returns a Manager storing sessions in store. Without configured
// secrets a random key is generated, which lasts for the life of the
// process: every restart logs all users out.
func New(cfg config.Session, store storage.Sessions, logger *slog.Logger) (*Manager, error) {
	secrets := make([][]byte, 0, len(cfg.Secrets))
	for _, s := range cfg.Secrets {
		secrets = append(secrets, []byte(s))
	}
	if len(secrets) == 0 {
		logger.Warn("no session secret configured, generating a process-lifetime key; sessions will not survive a restart")
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		secrets = append(secrets, secret)
	}

	sealer, err := newSealer(secrets)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:      store,
		sealer:     sealer,
		cookieName: cfg.CookieName,
		flashName:  cfg.CookieName + "_flash",
		maxAge:     cfg.MaxAge,
		secure:     cfg.Secure,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Begin starts a session for userID and sets its cookie on w.
func (m *Manager) Begin(ctx context.Context, w http.ResponseWriter, userID int64) (types.Session, error) {
	sess := types.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: m.now().Add(m.maxAge).UTC(),
	}
	value, err := m.sealer.seal([]byte(sess.ID), []byte(m.cookieName))
	if err != nil {
		return types.Session{}, fmt.Errorf("Begin: %w", err)
	}
	if err := m.store.CreateSession(ctx, sess); err != nil {
		return types.Session{}, fmt.Errorf("Begin: %w", err)
	}

	http.SetCookie(w, m.cookie(m.cookieName, value, int(m.maxAge.Seconds())))
	return sess, nil
}

// Current resolves the session carried by r, or returns ErrNoSession.
// Expired sessions are deleted on sight.
func (m *Manager) Current(r *http.Request) (types.Session, error) {
	id, err := m.sessionID(r)
	if err != nil {
		return types.Session{}, err
	}

	ctx := r.Context()
	sess, err := m.store.GetSession(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Session{}, ErrNoSession
	}
	if err != nil {
		return types.Session{}, fmt.Errorf("Current: %w", err)
	}

	if sess.Expired(m.now()) {
		if err := m.store.DeleteSession(ctx, sess.ID); err != nil {
			m.logger.WarnContext(ctx, "failed to delete expired session", slog.Any("error", err))
		}
		return types.Session{}, ErrNoSession
	}
	return sess, nil
}

// End destroys the session carried by r, if any, and expires the cookie.
// Ending an absent or already-ended session is not an error.
func (m *Manager) End(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, m.cookie(m.cookieName, "", -1))

	id, err := m.sessionID(r)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err := m.store.DeleteSession(r.Context(), id); err != nil {
		return fmt.Errorf("End: %w", err)
	}
	return nil
}

// Expire clears the session cookie carried by r, if any, without touching
// the store. It is used once Current has rejected the cookie.
func (m *Manager) Expire(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(m.cookieName); err != nil {
		return
	}
	http.SetCookie(w, m.cookie(m.cookieName, "", -1))
}

// SetFlash queues f for the next page rendered for this browser.
func (m *Manager) SetFlash(w http.ResponseWriter, f Flash) error {
	value, err := m.sealer.seal([]byte(f.Kind+flashSep+f.Message), []byte(m.flashName))
	if err != nil {
		return fmt.Errorf("SetFlash: %w", err)
	}
	http.SetCookie(w, m.cookie(m.flashName, value, 0))
	return nil
}

// PopFlash returns the pending flash, clearing it. ok is false when there
// is none or it does not authenticate.
func (m *Manager) PopFlash(w http.ResponseWriter, r *http.Request) (f Flash, ok bool) {
	c, err := r.Cookie(m.flashName)
	if err != nil {
		return Flash{}, false
	}
	http.SetCookie(w, m.cookie(m.flashName, "", -1))

	raw, err := m.sealer.open(c.Value, []byte(m.flashName))
	if err != nil {
		return Flash{}, false
	}
	kind, msg, found := strings.Cut(string(raw), flashSep)
	if !found {
		return Flash{}, false
	}
	return Flash{Kind: kind, Message: msg}, true
}

func (m *Manager) sessionID(r *http.Request) (string, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return "", ErrNoSession
	}
	raw, err := m.sealer.open(c.Value, []byte(m.cookieName))
	if err != nil {
		return "", ErrNoSession
	}
	return string(raw), nil
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

type userIDKey struct{}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated user id stored by WithUserID.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey{}).(int64)
	return id, ok
}
