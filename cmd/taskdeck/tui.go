package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/tasks"
	"github.com/Joseda-hg/taskdeck/internal/tui"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI",
		Long: `Sign in and open the terminal UI.

The password is read from TASKDECK_PASSWORD or prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			prompt := newPrompter(cmd)
			if email == "" {
				if email, err = prompt.Line("Email: "); err != nil {
					return err
				}
			}
			password := os.Getenv("TASKDECK_PASSWORD")
			if password == "" {
				if password, err = prompt.Password("Password: "); err != nil {
					return err
				}
			}

			session, err := a.auth.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			reporter := notify.NewReporter(a.logger, notify.NewQueue(a.cfg.ToastTTL()))
			ws := tasks.OpenWorkspace(session.Client, reporter, tasks.Options{
				PageSize: a.cfg.UI.TasksPerPage,
				Logger:   a.logger.With("user", session.Email),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			runErr := tui.Run(ctx, ws, session.Email)

			ws.Close()
			a.auth.SignOut(session)
			return runErr
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}
