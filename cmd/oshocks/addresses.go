package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oshocks/bikeshop/internal/prompt"
	"github.com/oshocks/bikeshop/pkg/api"
	"github.com/oshocks/bikeshop/pkg/flows"
	"github.com/oshocks/bikeshop/pkg/forms"
)

func newAddressesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "addresses",
		Aliases: []string{"address"},
		Short:   "Manage your delivery addresses",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addrs, err := a.client.Addresses().List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, len(addrs))
			for i, ad := range addrs {
				def := ""
				if ad.IsDefault {
					def = "✓"
				}
				rows[i] = []string{strconv.FormatInt(ad.ID, 10), ad.Label, ad.Recipient, ad.Phone, ad.Town + ", " + ad.County, def}
			}
			printTable(a.out, []string{"ID", "Label", "Recipient", "Phone", "Location", "Default"}, rows)
			return nil
		},
	}

	var in api.Address
	add := &cobra.Command{
		Use:   "add",
		Short: "Save a new address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			addr, err := a.completeAddress(ctx, in)
			if err != nil {
				return err
			}
			saved, err := a.client.Addresses().Create(ctx, addr)
			if err != nil {
				return err
			}
			success(a.out, "Address #%d %q saved", saved.ID, saved.Label)
			return nil
		},
	}
	add.Flags().StringVar(&in.Label, "label", "", "name for the address, e.g. Home")
	add.Flags().StringVar(&in.Recipient, "recipient", "", "who receives deliveries")
	add.Flags().StringVar(&in.Phone, "phone", "", "recipient phone number")
	add.Flags().StringVar(&in.County, "county", "", "county")
	add.Flags().StringVar(&in.Town, "town", "", "town or estate")
	add.Flags().StringVar(&in.Street, "street", "", "street and building")
	add.Flags().BoolVar(&in.IsDefault, "default", false, "make this the default address")

	var yes bool
	remove := &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes {
				ok, err := a.driver.Confirm(ctx, prompt.ConfirmConfig{Message: fmt.Sprintf("Delete address %d?", id)})
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}
			if err := a.client.Addresses().Delete(ctx, id); err != nil {
				return err
			}
			success(a.out, "Address %d deleted", id)
			return nil
		},
	}
	remove.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	setDefault := &cobra.Command{
		Use:   "default <id>",
		Short: "Make an address the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			addrs, err := a.client.Addresses().List(ctx)
			if err != nil {
				return err
			}
			i := slices.IndexFunc(addrs, func(ad api.Address) bool { return ad.ID == id })
			if i < 0 {
				return fmt.Errorf("no address with id %d", id)
			}
			addr := addrs[i]
			addr.IsDefault = true
			if _, err := a.client.Addresses().Update(ctx, id, addr); err != nil {
				return err
			}
			success(a.out, "Address %d is now the default", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, remove, setDefault)
	return cmd
}

// completeAddress prompts for the fields not given as flags and checks the
// phone number and county.
func (a *app) completeAddress(ctx context.Context, in api.Address) (api.Address, error) {
	var err error
	if in.Label, err = a.ask(ctx, in.Label, "Label (e.g. Home)"); err != nil {
		return in, err
	}
	if in.Recipient, err = a.ask(ctx, in.Recipient, "Recipient name"); err != nil {
		return in, err
	}
	if in.Phone, err = a.ask(ctx, in.Phone, "Phone number"); err != nil {
		return in, err
	}
	if err := forms.KenyanPhone().Validate(in.Phone); err != nil {
		return in, fmt.Errorf("phone: %s", forms.KenyanPhone().Message())
	}
	in.Phone = flows.NormalizePhone(in.Phone)

	if in.County == "" {
		i, err := a.driver.Select(ctx, prompt.SelectConfig{Message: "County", Options: flows.Counties, Default: -1})
		if err != nil {
			return in, err
		}
		if i < 0 || i >= len(flows.Counties) {
			return in, errAborted
		}
		in.County = flows.Counties[i]
	} else if !slices.Contains(flows.Counties, in.County) {
		return in, fmt.Errorf("unknown county %q", in.County)
	}

	if in.Town, err = a.ask(ctx, in.Town, "Town or estate"); err != nil {
		return in, err
	}
	if in.Street, err = a.ask(ctx, in.Street, "Street and building"); err != nil {
		return in, err
	}
	for name, v := range map[string]string{"label": in.Label, "recipient": in.Recipient, "phone": in.Phone, "town": in.Town, "street": in.Street} {
		if v == "" {
			return in, fmt.Errorf("%s is required", name)
		}
	}
	return in, nil
}
