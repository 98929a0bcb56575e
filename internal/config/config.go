// Package config handles loading and validating application configuration.
//
// Values come from, in increasing priority:
//  1. env-default struct tags
//  2. a YAML file (path from --config or CONFIG_PATH), if one is given
//  3. environment variables, optionally seeded from a .env file
//
// The result is validated before it is returned, so callers can rely on
// every field being usable.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "CONFIG_PATH"

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-default:"dev" validate:"oneof=dev staging prod"`

	// StoragePath is the filesystem path to the SQLite .db file.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true" validate:"required"`

	HTTPServer `yaml:"http_server"`

	Session Session `yaml:"session"`
	Log     Log     `yaml:"log"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	Addr            string        `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_SERVER_READ_TIMEOUT" env-default:"10s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT" env-default:"10s" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_SERVER_IDLE_TIMEOUT" env-default:"60s" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SERVER_SHUTDOWN_TIMEOUT" env-default:"5s" validate:"gt=0"`
}

// Session configures the login session cookie.
//
// Secrets are tried in order when opening a cookie and the first one seals
// new cookies. To rotate, prepend a new secret and remove the old one after
// MaxAge has passed. With no secrets, a random key is generated at startup.
type Session struct {
	Secrets    []string      `yaml:"secrets" env:"SESSION_SECRETS" env-separator:"," validate:"dive,min=32"`
	CookieName string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"session" validate:"required,alphanum"`
	MaxAge     time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"24h" validate:"gt=0"`
	Secure     bool          `yaml:"secure" env:"SESSION_SECURE"`
}

// Log configures logging output.
type Log struct {
	// Level overrides the level implied by Env when set.
	Level string `yaml:"level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	// File, when set, receives logs through a size-rotated writer instead of stdout.
	File      string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"10" validate:"gt=0"`
	MaxFiles  int    `yaml:"max_files" env:"LOG_MAX_FILES" env-default:"5" validate:"gt=0"`
}

// Load reads the configuration at path. An empty path falls back to
// CONFIG_PATH; if that is empty too, only the environment is read.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(PathEnv)
	}

	var cfg Config
	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("cannot read config from environment: %w", err)
		}
	} else {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", path, err)
		}
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadDotEnv exports the variables in the .env file at path into the
// process environment without overriding variables already set. A missing
// file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot load env file %s: %w", path, err)
	}
	return nil
}
