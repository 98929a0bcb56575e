package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	secret := strings.Repeat("k", 32)

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "valid config",
			yaml: "env: prod\nstorage_path: students.db\nhttp_server:\n  address: localhost:8082\n",
		},
		{
			name: "valid session secrets",
			yaml: "storage_path: s.db\nhttp_server:\n  address: :8080\nsession:\n  secrets:\n    - " + secret + "\n",
		},
		{
			name:    "missing storage path",
			yaml:    "http_server:\n  address: localhost:8082\n",
			wantErr: "cannot read config",
		},
		{
			name:    "unknown env",
			yaml:    "env: qa\nstorage_path: s.db\nhttp_server:\n  address: :8080\n",
			wantErr: "config validation failed",
		},
		{
			name:    "short session secret",
			yaml:    "storage_path: s.db\nhttp_server:\n  address: :8080\nsession:\n  secrets: [short]\n",
			wantErr: "config validation failed",
		},
		{
			name:    "invalid yaml syntax",
			yaml:    `invalid: [yaml: content`,
			wantErr: "cannot read config",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			path := writeTestConfig(t, test.yaml)
			cfg, err := Load(path)

			if test.wantErr != "" {
				require.ErrorContains(t, err, test.wantErr)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	path := writeTestConfig(t, "storage_path: students.db\nhttp_server:\n  address: localhost:8082\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "students.db", cfg.StoragePath)
	assert.Equal(t, "localhost:8082", cfg.Addr)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "session", cfg.Session.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Session.MaxAge)
	assert.Empty(t, cfg.Session.Secrets)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
	assert.Equal(t, 5, cfg.Log.MaxFiles)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	t.Parallel()

	require.NoError(t, LoadDotEnv(""))
	require.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
