// Package server runs the HTTP server and shuts it down gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aanand-mishra/student-records/internal/config"
)

// Listen binds addr ahead of Run so the caller can log the real port when
// addr ends in ":0".
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	return ln, nil
}

// Server serves the app's handler with the configured timeouts.
type Server struct {
	srv   *http.Server
	grace time.Duration
}

// New returns a Server for handler.
func New(cfg config.HTTPServer, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		grace: cfg.ShutdownTimeout,
	}
}

// Run serves on ln until ctx is done or serving fails. In-flight requests
// then get the shutdown timeout to finish.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", ln.Addr(), err)
		}
		return nil
	})
	grp.Go(func() error {
		<-ctx.Done()
		drain, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.grace)
		defer cancel()
		return s.srv.Shutdown(drain)
	})
	return grp.Wait()
}
