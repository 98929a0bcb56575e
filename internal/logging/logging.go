// Package logging builds the application's slog logger from configuration.
//
// Development gets human-readable text at DEBUG level; staging gets JSON at
// DEBUG; production gets JSON at INFO. Log.Level overrides the level and
// Log.File sends output to a size-rotated file instead of stdout. Password,
// secret and session attributes are always logged as Redacted.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/aanand-mishra/student-records/internal/config"
)

// Setup returns the logger described by cfg and the writer it logs to, so
// the HTTP access log can share it. The caller closes the writer on exit.
func Setup(cfg *config.Config) (*slog.Logger, io.WriteCloser, error) {
	level, err := levelFor(cfg.Env, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}

	var out io.WriteCloser = stdout{os.Stdout}
	if cfg.Log.File != "" {
		if out, err = openLogFile(cfg.Log); err != nil {
			return nil, nil, err
		}
	}

	return New(out, cfg.Env, level), out, nil
}

// New returns a redacting logger writing to w, text in dev and JSON
// otherwise.
func New(w io.Writer, env string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch env {
	case "staging", "prod":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(redactor{handler})
}

func levelFor(env, override string) (slog.Level, error) {
	if override != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(override)); err != nil {
			return 0, fmt.Errorf("invalid log level %q: %w", override, err)
		}
		return level, nil
	}
	if env == "prod" {
		return slog.LevelInfo, nil
	}
	return slog.LevelDebug, nil
}

// openLogFile returns a writer appending to cfg.File that rolls over at
// cfg.MaxSizeMB and keeps cfg.MaxFiles old files beside it.
func openLogFile(cfg config.Log) (*lumberjack.Logger, error) {
	if cfg.MaxSizeMB <= 0 || cfg.MaxFiles <= 0 {
		return nil, fmt.Errorf("log file %s: size and file count must be positive", cfg.File)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o750); err != nil {
		return nil, fmt.Errorf("log file %s: %w", cfg.File, err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
	}, nil
}

// stdout is shared with the access log and outlives Setup's caller.
type stdout struct{ io.Writer }

func (stdout) Close() error { return nil }
