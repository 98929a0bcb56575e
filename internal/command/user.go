package command

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aanand-mishra/student-records/internal/auth"
)

func userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User commands",
	}
	cmd.AddCommand(
		userCreateCommand(),
	)
	return cmd
}

func userCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create user",
		Long: "Creates a login for the provided username. The password may be provided\n" +
			"via stdin or through the interactive prompt.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withState(cmd.Context(), func(rt *state) (runErr error) {
				store, err := openStore(cmd.Context(), rt)
				if err != nil {
					return err
				}
				defer func() {
					if err := store.Close(); err != nil {
						runErr = errors.Join(runErr, err)
					}
				}()

				passwd, err := prompt("password: ", true)
				if err != nil {
					return err
				}
				user, err := auth.New(store, rt.logger).Register(cmd.Context(), args[0], string(passwd))
				if err != nil {
					return err
				}

				rt.logger.InfoContext(cmd.Context(), "created user",
					slog.String("name", user.Username),
					slog.Int64("id", user.ID),
				)
				return nil
			})
		},
	}
}
