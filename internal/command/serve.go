package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-records/internal/auth"
	"github.com/aanand-mishra/student-records/internal/http/router"
	"github.com/aanand-mishra/student-records/internal/http/views"
	"github.com/aanand-mishra/student-records/internal/server"
	"github.com/aanand-mishra/student-records/internal/session"
)

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the student records web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withState(cmd.Context(), func(rt *state) error {
				return serve(cmd.Context(), rt)
			})
		},
	}
}

// serve runs the web app until ctx is cancelled or the server fails.
func serve(ctx context.Context, rt *state) (runErr error) {
	store, err := openStore(ctx, rt)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}()
	rt.logger.InfoContext(ctx, "storage initialised", slog.String("path", rt.cfg.StoragePath))

	sessions, err := session.New(rt.cfg.Session, store, rt.logger)
	if err != nil {
		return err
	}
	pages, err := views.New()
	if err != nil {
		return err
	}

	handler := router.New(router.Deps{
		Students:  store,
		Auth:      auth.New(store, rt.logger),
		Sessions:  sessions,
		Views:     pages,
		Logger:    rt.logger,
		AccessLog: rt.logOut,
	})

	listener, err := server.Listen(ctx, rt.cfg.Addr)
	if err != nil {
		return err
	}

	rt.logger.InfoContext(ctx, "starting server...",
		slog.String("address", listener.Addr().String()),
		slog.String("env", rt.cfg.Env),
	)
	err = server.New(rt.cfg.HTTPServer, handler).Run(ctx, listener)
	rt.logger.InfoContext(ctx, "server stopped")
	return err
}
