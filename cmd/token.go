package cmd

import (
	"context"
	"fmt"

	"agora/api"
	"agora/bootstrap"

	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token for an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := app.Services.Users.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if user.IsBanned {
				warningColor.Fprintf(cmd.ErrOrStderr(), "warning: %s is banned; the token will be refused\n", user.Username)
			}

			token, err := api.GenerateToken(user, app.Config)
			if err != nil {
				return fmt.Errorf("failed to generate token: %w", err)
			}
			if outputJSON {
				return outputAsJSON(cmd.OutOrStdout(), map[string]string{"userId": user.ID, "token": token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newSecretCmd() *cobra.Command {
	var length int

	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate a random value for auth.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := bootstrap.GenerateSecret(length)
			if err != nil {
				return err
			}
			if !quiet {
				infoColor.Fprintln(cmd.ErrOrStderr(), "Set this as AGORA_JWT_SECRET:")
			}
			fmt.Fprintln(cmd.OutOrStdout(), secret)
			return nil
		},
	}

	cmd.Flags().IntVar(&length, "length", 48, "Secret length (minimum 32)")
	return cmd
}
