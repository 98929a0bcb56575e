package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/config"
)

func TestRunAndShutdown(t *testing.T) {
	t.Parallel()

	cfg := config.HTTPServer{
		Addr:            "127.0.0.1:0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		IdleTimeout:     time.Second,
		ShutdownTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	ln, err := Listen(ctx, cfg.Addr)
	require.NoError(t, err)

	srv := New(cfg, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	assert.Equal(t, time.Second, srv.srv.ReadTimeout)
	assert.Equal(t, time.Second, srv.grace)

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String())
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListenBadAddress(t *testing.T) {
	t.Parallel()

	_, err := Listen(t.Context(), "127.0.0.1:-1")
	require.ErrorContains(t, err, "listen on 127.0.0.1:-1")
}
