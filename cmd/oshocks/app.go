package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/oshocks/bikeshop/internal/config"
	"github.com/oshocks/bikeshop/internal/prompt"
	"github.com/oshocks/bikeshop/pkg/api"
	"github.com/oshocks/bikeshop/pkg/logging"
	"github.com/oshocks/bikeshop/pkg/state"
)

// errAborted is returned after the user declined to continue. It is not
// reported again.
var errAborted = errors.New("aborted")

// app carries the flags and the services built from them.
type app struct {
	configPath string
	apiURL     string
	debug      bool

	driver prompt.Driver
	out    io.Writer
	errOut io.Writer

	// httpClient replaces the default transport, for tests.
	httpClient *http.Client

	cfg    *config.Config
	logger logging.Logger
	store  state.Store
	client *api.Client
}

func newApp(d prompt.Driver, out, errOut io.Writer) *app {
	return &app{driver: d, out: out, errOut: errOut}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "oshocks",
		Short:         "Oshocks Junior Bike Shop from the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultPath(), "config file")
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "backend origin, overrides the config file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "log requests to stderr")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRegisterCmd(a),
		newProfileCmd(a),
		newPasswordCmd(a),
		newApplyCmd(a),
		newProductCmd(a),
		newAdminCmd(a),
		newAddressesCmd(a),
	)
	return root
}

// setup loads the configuration and builds the API client.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	if a.debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	opts := cfg.LoggingOptions()
	opts.Output = a.errOut
	logger, err := logging.New(opts)
	if err != nil {
		return err
	}
	a.logger = logger

	store, err := state.NewFileStore(cfg.API.StateDir)
	if err != nil {
		return fmt.Errorf("open state directory: %w", err)
	}
	a.store = store

	clientOpts := []api.Option{
		api.WithTokens(state.NewTokenStore(store)),
		api.WithLogger(logger),
		api.WithRetry(cfg.RetryPolicy()),
	}
	if a.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(a.httpClient))
	}
	a.client, err = api.New(cfg.APIClientConfig(), clientOpts...)
	return err
}

func (a *app) close() error {
	if s, ok := a.logger.(interface{ Sync() error }); ok {
		s.Sync()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

// report prints err for a person. Transport failures collapse to one line.
func (a *app) report(err error) {
	if err == nil || errors.Is(err, errAborted) || errors.Is(err, prompt.ErrAborted) {
		return
	}
	var apiErr *api.APIError
	switch {
	case api.IsNetwork(err):
		fmt.Fprintln(a.errOut, bannerStyle.Render("Network error: could not reach the shop. Check your connection and try again."))
	case errors.Is(err, api.ErrNoToken):
		fmt.Fprintln(a.errOut, errorStyle.Render("You are not logged in. Run `oshocks login` first."))
	case errors.As(err, &apiErr):
		fmt.Fprintln(a.errOut, errorStyle.Render(apiErr.Detail()))
	default:
		fmt.Fprintln(a.errOut, errorStyle.Render("Error: "+err.Error()))
	}
}
