package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/meetings-dashboard/internal/application"
)

func newUsersCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage dashboard accounts",
	}
	cmd.AddCommand(newUsersCreateCommand(root))
	return cmd
}

func newUsersCreateCommand(root *rootOptions) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register an account without going through the sign-up page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := openStorage(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer closeStorage(storage, root.logger)

			app, err := newApp(root.cfg, storage, false, root.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.auth.SignUp(cmd.Context(), application.SignUpParams{Email: email, Password: password})
			if err != nil {
				return describeSignUpError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// describeSignUpError flattens field errors into one line for the terminal.
func describeSignUpError(err error) error {
	var vErr *application.ValidationError
	if !errors.As(err, &vErr) {
		return err
	}
	parts := make([]string, 0, len(vErr.FieldErrors))
	for field, message := range vErr.FieldErrors {
		parts = append(parts, field+": "+message)
	}
	sort.Strings(parts)
	return fmt.Errorf("invalid account: %s", strings.Join(parts, "; "))
}
