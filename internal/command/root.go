// Package command contains the CLI command constructors.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/logging"
)

// RootCommand instantiates the root command, with all sub-commands bound.
func RootCommand() *cobra.Command {
	var configFilePath, envFilePath string

	cmd := &cobra.Command{
		Use:          "students-web [command] [flags]",
		Short:        "Student records web application",
		Version:      version(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFilePath); err != nil {
				return err
			}
			cfg, err := config.Load(configFilePath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger, out, err := logging.Setup(cfg)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			logger.DebugContext(cmd.Context(), "configuration loaded",
				slog.String("env", cfg.Env),
				slog.String("storage_path", cfg.StoragePath),
				slog.String("address", cfg.Addr),
			)

			cmd.SetContext(context.WithValue(cmd.Context(), stateKey{}, &state{
				cfg:    cfg,
				logger: logger,
				logOut: out,
			}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(
		&configFilePath,
		"config", "c",
		"",
		"path to the YAML configuration file (default $"+config.PathEnv+")",
	)
	cmd.PersistentFlags().StringVar(
		&envFilePath,
		"env-file",
		".env",
		"path to a .env file exported before reading configuration",
	)

	cmd.AddCommand(
		serveCommand(),
		userCommand(),
	)

	return cmd
}

type stateKey struct{}

// state is what PersistentPreRunE hands to sub-commands.
type state struct {
	cfg    *config.Config
	logger *slog.Logger
	logOut io.WriteCloser
}

// withState runs fn with the state PersistentPreRunE stored in ctx and
// closes the log output once fn returns, whether or not it failed.
func withState(ctx context.Context, fn func(rt *state) error) (runErr error) {
	rt, ok := ctx.Value(stateKey{}).(*state)
	if !ok {
		return errors.New("config file resolution failed")
	}
	defer func() {
		if err := rt.logOut.Close(); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}()
	return fn(rt)
}
