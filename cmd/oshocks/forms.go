package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/oshocks/bikeshop/internal/prompt"
	"github.com/oshocks/bikeshop/pkg/api"
	"github.com/oshocks/bikeshop/pkg/flows"
	"github.com/oshocks/bikeshop/pkg/forms"
	"github.com/oshocks/bikeshop/pkg/logging"
	"github.com/oshocks/bikeshop/pkg/submit"
	"github.com/oshocks/bikeshop/pkg/uploads"
	"github.com/oshocks/bikeshop/pkg/wizard"
)

// Choices offered after the backend rejects a submission.
const (
	choiceRetry  = "Submit again"
	choiceEdit   = "Edit my answers"
	choiceCancel = "Cancel"
)

// runFlow walks f in the terminal and sends the result with send. A failed
// submission can be retried with the same idempotency key, or the answers
// edited and sent under a fresh key.
func (a *app) runFlow(ctx context.Context, f *flows.Flow, send func(ctx context.Context, body submit.Payload) error) error {
	w, err := f.NewWizard(flows.Config{
		MaxFileSize: a.cfg.Uploads.MaxFileSize,
		Logger:      a.logger,
	})
	if err != nil {
		return err
	}
	title(a.out, f.Title)

	runner := prompt.NewRunner(a.driver)
	sub := submit.New(submit.WithLogger(a.logger.With(logging.String("flow", f.Name))))
	ask := true
	for {
		if ask {
			if err := runner.Run(ctx, w); err != nil {
				return err
			}
		}

		rs, err := w.Submit(ctx, func(ctx context.Context, _ *forms.Store, _ *uploads.Tracker) error {
			body, err := f.Payload(w)
			if err != nil {
				return err
			}
			return sub.Submit(ctx, func(ctx context.Context, key string) error {
				return send(api.WithIdempotencyKey(ctx, key), body)
			})
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, wizard.ErrStepInvalid) {
			if err := runner.Report(ctx, w.Current(), rs); err != nil {
				return err
			}
			ask = true
			continue
		}
		if errors.Is(err, submit.ErrCanceled) || ctx.Err() != nil {
			return err
		}

		a.report(err)
		choice, cerr := a.choose(ctx, "What next?", choiceRetry, choiceEdit, choiceCancel)
		if cerr != nil {
			return cerr
		}
		switch choice {
		case choiceRetry:
			ask = false
		case choiceEdit:
			// Edited answers are a new request and need a new key.
			sub.Reset()
			if err := w.GoTo(1); err != nil {
				return err
			}
			ask = true
		default:
			return errAborted
		}
	}
}

func (a *app) choose(ctx context.Context, message string, options ...string) (string, error) {
	i, err := a.driver.Select(ctx, prompt.SelectConfig{Message: message, Options: options, Default: 0})
	if err != nil {
		return "", err
	}
	if i < 0 || i >= len(options) {
		return "", errAborted
	}
	return options[i], nil
}

func newRegisterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create a buyer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sess *api.Session
			err := a.runFlow(cmd.Context(), flows.Registration, func(ctx context.Context, body submit.Payload) error {
				var err error
				sess, err = a.client.Auth().Register(ctx, body)
				return err
			})
			if err != nil {
				return err
			}
			if sess.Token != "" {
				success(a.out, "Account created, you are logged in")
			} else {
				success(a.out, "Account created, log in with `oshocks login`")
			}
			return nil
		},
	}
}

func newApplyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply to sell or deliver on the shop",
	}

	seller := &cobra.Command{
		Use:   "seller",
		Short: "Apply for a seller account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res *api.Application
			err := a.runFlow(cmd.Context(), flows.Seller, func(ctx context.Context, body submit.Payload) error {
				var err error
				res, err = a.client.Applications().ApplySeller(ctx, body)
				return err
			})
			if err != nil {
				return err
			}
			success(a.out, "Seller application #%d received, status %s", res.ID, statusOr(res.Status, "pending"))
			return nil
		},
	}

	delivery := &cobra.Command{
		Use:   "delivery",
		Short: "Apply to become a delivery agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res *api.Application
			err := a.runFlow(cmd.Context(), flows.DeliveryAgent, func(ctx context.Context, body submit.Payload) error {
				var err error
				res, err = a.client.Applications().ApplyDeliveryAgent(ctx, body)
				return err
			})
			if err != nil {
				return err
			}
			success(a.out, "Delivery agent application #%d received, status %s", res.ID, statusOr(res.Status, "pending"))
			return nil
		},
	}

	cmd.AddCommand(seller, delivery)
	return cmd
}

func newProductCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Manage your catalogue",
	}
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a product with color variants and images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var p *api.Product
			err := a.runFlow(cmd.Context(), flows.Product, func(ctx context.Context, body submit.Payload) error {
				var err error
				p, err = a.client.Products().Create(ctx, body)
				return err
			})
			if err != nil {
				return err
			}
			success(a.out, "Product #%d %q created, status %s", p.ID, p.Name, statusOr(p.Status, "draft"))
			return nil
		},
	}
	cmd.AddCommand(create)
	return cmd
}

func statusOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
