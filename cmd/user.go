package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"agora/api"
	"agora/core"

	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:     "user",
		Aliases: []string{"users"},
		Short:   "Manage user accounts",
	}
	userCmd.AddCommand(newUserCreateCmd())
	userCmd.AddCommand(newUserShowCmd())
	return userCmd
}

func newUserCreateCmd() *cobra.Command {
	var role string
	var withToken bool

	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := app.Services.Users.Create(ctx, args[0], core.Role(role))
			if err != nil {
				return err
			}

			var token string
			if withToken {
				if token, err = api.GenerateToken(user, app.Config); err != nil {
					return fmt.Errorf("user created but token generation failed: %w", err)
				}
			}

			w := cmd.OutOrStdout()
			if outputJSON {
				out := map[string]interface{}{"user": user}
				if token != "" {
					out["token"] = token
				}
				return outputAsJSON(w, out)
			}
			successColor.Fprintf(w, "✓ Created user %s\n", user.Username)
			printField(w, "ID", user.ID)
			printField(w, "Role", string(user.Role))
			if token != "" {
				printField(w, "Token", token)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", string(core.RoleUser), "Role: user or admin")
	cmd.Flags().BoolVar(&withToken, "token", false, "Also print a signed access token")
	return cmd
}

func newUserShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user profile with reputation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
			defer cancel()

			app, cleanup, err := initApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			profile, err := app.Services.Users.Profile(ctx, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if outputJSON {
				return outputAsJSON(w, profile)
			}
			u := profile.User
			headerColor.Fprintf(w, "  %s\n", u.Username)
			printField(w, "ID", u.ID)
			printField(w, "Role", string(u.Role))
			printField(w, "Reputation", strconv.Itoa(u.Reputation))
			printField(w, "Badges", strings.Join(u.Badges, ", "))
			printField(w, "Banned", strconv.FormatBool(u.IsBanned))
			printField(w, "Questions", strconv.FormatInt(profile.Stats.QuestionCount, 10))
			printField(w, "Answers", strconv.FormatInt(profile.Stats.AnswerCount, 10))
			printField(w, "Accepted answers", strconv.FormatInt(profile.Stats.AcceptedAnswerCount, 10))
			return nil
		},
	}
}
