package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts, cmd.ErrOrStderr())
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
			password, err := prompt.Password("Password: ")
			if err != nil {
				return err
			}
			confirm, err := prompt.Password("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}

			session, err := a.auth.Register(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			a.auth.SignOut(session)
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s\n", session.Email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}
