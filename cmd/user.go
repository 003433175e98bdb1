package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"journalflow/internal/adapters/httpapi"
	"journalflow/internal/bootstrap"
	"journalflow/internal/bootstrap/logging"
	"journalflow/internal/errs"
	"journalflow/internal/usecase/editorial"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts, capabilities and API tokens",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a user account",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		caps, _ := cmd.Flags().GetStringSlice("capability")
		user, err := svc.RegisterUser(ctx, editorial.RegisterUserInput{
			Name:         name,
			Email:        email,
			Capabilities: caps,
		})
		if err != nil {
			logging.Error(ctx, "register user failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "register user")
		}
		return printf(cmd, "registered user: id=%d email=%s\n", user.UserID, user.Email)
	}),
}

var userGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Grant a capability (editor|manager|reviewer) to a user",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		userID, _ := cmd.Flags().GetUint64("user")
		capability, _ := cmd.Flags().GetString("capability")
		if err := svc.GrantCapability(ctx, userID, capability); err != nil {
			logging.Error(ctx, "grant capability failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "grant capability")
		}
		return printf(cmd, "granted %s to user %d\n", capability, userID)
	}),
}

var userRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a capability from a user",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		userID, _ := cmd.Flags().GetUint64("user")
		capability, _ := cmd.Flags().GetString("capability")
		if err := svc.RevokeCapability(ctx, userID, capability); err != nil {
			logging.Error(ctx, "revoke capability failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "revoke capability")
		}
		return printf(cmd, "revoked %s from user %d\n", capability, userID)
	}),
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered users",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		users, err := svc.ListUsers(ctx)
		if err != nil {
			logging.Error(ctx, "list users failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list users")
		}
		views := make([]editorial.UserView, 0, len(users))
		for _, u := range users {
			views = append(views, editorial.NewUserView(u))
		}
		return writeStructured(cmd, views, func(w io.Writer) error {
			if len(views) == 0 {
				_, err := fmt.Fprintln(w, "no users")
				return err
			}
			for _, v := range views {
				caps := strings.Join(v.Capabilities, ",")
				if caps == "" {
					caps = "-"
				}
				if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", v.ID, v.Name, v.Email, caps); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var userTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for a user",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *editorial.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		userID, _ := cmd.Flags().GetUint64("user")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		users, err := svc.ListUsers(ctx)
		if err != nil {
			return errs.Wrap(err, "list users")
		}
		found := false
		for _, u := range users {
			if u.UserID == userID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("user %d not found", userID)
		}

		token, err := httpapi.IssueToken(app.Config.HTTP.JWTSecret, userID, ttl, time.Now())
		if err != nil {
			logging.Error(ctx, "issue token failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "issue token")
		}
		return printf(cmd, "%s\n", token)
	}),
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userGrantCmd)
	userCmd.AddCommand(userRevokeCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userTokenCmd)

	userAddCmd.Flags().String("name", "", "Display name")
	userAddCmd.Flags().String("email", "", "Email address (unique)")
	userAddCmd.Flags().StringSlice("capability", nil, "Capabilities to grant (editor|manager|reviewer)")
	_ = userAddCmd.MarkFlagRequired("name")
	_ = userAddCmd.MarkFlagRequired("email")

	for _, c := range []*cobra.Command{userGrantCmd, userRevokeCmd} {
		c.Flags().Uint64("user", 0, "User id")
		c.Flags().String("capability", "", "Capability (editor|manager|reviewer)")
		_ = c.MarkFlagRequired("user")
		_ = c.MarkFlagRequired("capability")
	}

	userTokenCmd.Flags().Uint64("user", 0, "User id")
	userTokenCmd.Flags().Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = userTokenCmd.MarkFlagRequired("user")

	addOutputFlag(userListCmd)
}
