package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oshocks/bikeshop/internal/prompt"
	"github.com/oshocks/bikeshop/pkg/api"
	"github.com/oshocks/bikeshop/pkg/security"
)

var userStatuses = []string{security.StatusActive, security.StatusInactive, security.StatusSuspended}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage users, sellers and roles",
	}
	cmd.AddCommand(newAdminUsersCmd(a), newAdminSellersCmd(a), newAdminRoleCmd(a))
	return cmd
}

func newAdminUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List and manage user accounts",
	}

	var (
		filter api.UserFilter
		role   string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != "" {
				r, err := security.ParseRole(role)
				if err != nil {
					return err
				}
				filter.Role = r
			}
			users, err := a.client.Users().List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			rows := make([][]string, len(users))
			for i := range users {
				u := &users[i]
				rows[i] = []string{strconv.FormatInt(u.ID, 10), u.Name, u.Email, roleList(u), u.Status}
			}
			printTable(a.out, []string{"ID", "Name", "Email", "Roles", "Status"}, rows)
			return nil
		},
	}
	list.Flags().StringVar(&role, "role", "", "only users with this role")
	list.Flags().StringVar(&filter.Status, "status", "", "only users with this status")
	list.Flags().StringVarP(&filter.Search, "search", "s", "", "match name or email")
	list.Flags().IntVar(&filter.Page, "page", 0, "page number")
	list.Flags().IntVar(&filter.PerPage, "per-page", 0, "users per page")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.client.Users().Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printUser(a.out, u)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status <id> <active|inactive|suspended>",
		Short: "Set a user's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !slices.Contains(userStatuses, args[1]) {
				return fmt.Errorf("status must be one of %v", userStatuses)
			}
			if err := a.client.Users().UpdateStatus(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			success(a.out, "User %d is now %s", id, args[1])
			return nil
		},
	}

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := a.driver.Confirm(ctx, prompt.ConfirmConfig{Message: fmt.Sprintf("Delete user %d? This cannot be undone", id)})
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}
			if err := a.client.Users().Delete(ctx, id); err != nil {
				return err
			}
			success(a.out, "User %d deleted", id)
			return nil
		},
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	elevate := &cobra.Command{
		Use:   "elevate <id> <role>",
		Short: "Grant a user an additional role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, role, err := idAndRole(args)
			if err != nil {
				return err
			}
			if err := a.client.Users().Elevate(cmd.Context(), id, role); err != nil {
				return err
			}
			success(a.out, "User %d granted %s", id, role)
			return nil
		},
	}

	removeRole := &cobra.Command{
		Use:   "remove-role <id> <role>",
		Short: "Take a role away from a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, role, err := idAndRole(args)
			if err != nil {
				return err
			}
			if err := a.client.Users().RemoveRole(cmd.Context(), id, role); err != nil {
				return err
			}
			success(a.out, "Removed %s from user %d", role, id)
			return nil
		},
	}

	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Switch a user between active and inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.Users().ToggleStatus(cmd.Context(), id); err != nil {
				return err
			}
			success(a.out, "User %d status toggled", id)
			return nil
		},
	}

	cmd.AddCommand(list, show, status, del, elevate, removeRole, toggle)
	return cmd
}

func idAndRole(args []string) (int64, security.Role, error) {
	id, err := parseID(args[0])
	if err != nil {
		return 0, "", err
	}
	role, err := security.ParseRole(args[1])
	if err != nil {
		return 0, "", err
	}
	return id, role, nil
}

func newAdminSellersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sellers",
		Short: "Review seller applications",
	}

	pending := &cobra.Command{
		Use:   "pending",
		Short: "List applications waiting for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apps, err := a.client.SuperAdmin().PendingSellers(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, len(apps))
			for i, s := range apps {
				applicant := ""
				if s.User != nil {
					applicant = s.User.Email
				}
				rows[i] = []string{strconv.FormatInt(s.ID, 10), s.BusinessName, s.BusinessType, s.County, applicant, s.CreatedAt}
			}
			printTable(a.out, []string{"ID", "Business", "Type", "County", "Applicant", "Submitted"}, rows)
			return nil
		},
	}

	approve := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a seller application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.SuperAdmin().ApproveSeller(cmd.Context(), id); err != nil {
				return err
			}
			success(a.out, "Seller %d approved", id)
			return nil
		},
	}

	var reason string
	reject := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a seller application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r, err := a.ask(ctx, reason, "Reason for rejection")
			if err != nil {
				return err
			}
			if r == "" {
				return fmt.Errorf("a reason is required")
			}
			if err := a.client.SuperAdmin().RejectSeller(ctx, id, r); err != nil {
				return err
			}
			success(a.out, "Seller %d rejected", id)
			return nil
		},
	}
	reject.Flags().StringVarP(&reason, "reason", "r", "", "reason shown to the applicant")

	cmd.AddCommand(pending, approve, reject)
	return cmd
}

func newAdminRoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "role <id> <role>",
		Short: "Replace a user's primary role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, role, err := idAndRole(args)
			if err != nil {
				return err
			}
			if err := a.client.SuperAdmin().ChangeRole(cmd.Context(), id, role); err != nil {
				return err
			}
			success(a.out, "User %d is now %s", id, role)
			return nil
		},
	}
}
