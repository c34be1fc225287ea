package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oshocks/bikeshop/internal/prompt"
	"github.com/oshocks/bikeshop/pkg/api"
)

// ask returns value, or prompts for it when empty.
func (a *app) ask(ctx context.Context, value, message string) (string, error) {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), nil
	}
	s, err := a.driver.Input(ctx, prompt.InputConfig{Message: message})
	return strings.TrimSpace(s), err
}

func (a *app) askSecret(ctx context.Context, message string) (string, error) {
	return a.driver.Password(ctx, prompt.InputConfig{Message: message})
}

func newLoginCmd(a *app) *cobra.Command {
	var emailFlag string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email, err := a.ask(ctx, emailFlag, "Email")
			if err != nil {
				return err
			}
			password, err := a.askSecret(ctx, "Password")
			if err != nil {
				return err
			}
			sess, err := a.client.Auth().Login(ctx, email, password)
			if err != nil {
				return err
			}
			if sess.User != nil {
				success(a.out, "Logged in as %s (%s)", sess.User.Name, roleList(sess.User))
			} else {
				success(a.out, "Logged in as %s", email)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&emailFlag, "email", "e", "", "account email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the saved token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.client.Auth().Logout(cmd.Context())
			if err != nil && !api.IsNetwork(err) {
				return err
			}
			success(a.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.client.Auth().Me(cmd.Context())
			if err != nil {
				return err
			}
			printUser(a.out, u)
			return nil
		},
	}
}

func newProfileCmd(a *app) *cobra.Command {
	var p api.ProfileUpdate
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update your name, email or phone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if p == (api.ProfileUpdate{}) {
				return fmt.Errorf("nothing to update: pass --name, --email or --phone")
			}
			u, err := a.client.Auth().UpdateProfile(cmd.Context(), p)
			if err != nil {
				return err
			}
			success(a.out, "Profile updated")
			printUser(a.out, u)
			return nil
		},
	}
	cmd.Flags().StringVar(&p.Name, "name", "", "full name")
	cmd.Flags().StringVar(&p.Email, "email", "", "email")
	cmd.Flags().StringVar(&p.Phone, "phone", "", "phone number")
	return cmd
}

func newPasswordCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Change or reset your password",
	}

	change := &cobra.Command{
		Use:   "change",
		Short: "Change the password of the logged in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			current, err := a.askSecret(ctx, "Current password")
			if err != nil {
				return err
			}
			next, confirm, err := a.askNewPassword(ctx)
			if err != nil {
				return err
			}
			if err := a.client.Auth().ChangePassword(ctx, current, next, confirm); err != nil {
				return err
			}
			success(a.out, "Password changed")
			return nil
		},
	}

	var forgotEmail string
	forgot := &cobra.Command{
		Use:   "forgot",
		Short: "Email a password reset link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email, err := a.ask(ctx, forgotEmail, "Email")
			if err != nil {
				return err
			}
			if err := a.client.Auth().ForgotPassword(ctx, email); err != nil {
				return err
			}
			success(a.out, "If %s has an account, a reset link is on its way", email)
			return nil
		},
	}
	forgot.Flags().StringVarP(&forgotEmail, "email", "e", "", "account email")

	var reset api.PasswordReset
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with the token from the reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var err error
			if reset.Email, err = a.ask(ctx, reset.Email, "Email"); err != nil {
				return err
			}
			if reset.Token, err = a.ask(ctx, reset.Token, "Reset token"); err != nil {
				return err
			}
			if reset.Password, reset.PasswordConfirmation, err = a.askNewPassword(ctx); err != nil {
				return err
			}
			if err := a.client.Auth().ResetPassword(ctx, reset); err != nil {
				return err
			}
			success(a.out, "Password reset, you can log in now")
			return nil
		},
	}
	resetCmd.Flags().StringVarP(&reset.Email, "email", "e", "", "account email")
	resetCmd.Flags().StringVar(&reset.Token, "token", "", "reset token")

	cmd.AddCommand(change, forgot, resetCmd)
	return cmd
}

func (a *app) askNewPassword(ctx context.Context) (string, string, error) {
	next, err := a.askSecret(ctx, "New password")
	if err != nil {
		return "", "", err
	}
	confirm, err := a.askSecret(ctx, "Confirm new password")
	if err != nil {
		return "", "", err
	}
	if next != confirm {
		return "", "", fmt.Errorf("passwords do not match")
	}
	if len(next) < 8 {
		return "", "", fmt.Errorf("password must be at least 8 characters")
	}
	return next, confirm, nil
}
