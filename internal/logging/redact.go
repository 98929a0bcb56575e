package logging

import (
	"context"
	"log/slog"
	"slices"
	"strings"
)

// Redacted is logged in place of a credential value.
const Redacted = "[REDACTED]"

// credentialKeys name the attributes that never reach the log output: login
// form passwords, cookie secrets and session ids or cookies.
var credentialKeys = []string{"password", "secret", "secrets", "token", "session", "cookie"}

func isCredential(key string) bool {
	return slices.ContainsFunc(credentialKeys, func(k string) bool {
		return strings.EqualFold(k, key)
	})
}

// redactor masks credential attributes at any group depth, including those
// bound with Logger.With, before the embedded handler formats them.
type redactor struct {
	slog.Handler
}

func (h redactor) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(mask(a))
		return true
	})
	return h.Handler.Handle(ctx, out)
}

func (h redactor) WithAttrs(attrs []slog.Attr) slog.Handler {
	return redactor{h.Handler.WithAttrs(maskAll(attrs))}
}

func (h redactor) WithGroup(name string) slog.Handler {
	return redactor{h.Handler.WithGroup(name)}
}

func maskAll(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = mask(a)
	}
	return out
}

func mask(a slog.Attr) slog.Attr {
	if isCredential(a.Key) {
		return slog.String(a.Key, Redacted)
	}
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		a.Value = slog.GroupValue(maskAll(a.Value.Group())...)
	}
	return a
}
