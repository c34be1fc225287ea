// Command oshocks is the terminal client for the Oshocks Junior Bike Shop.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/oshocks/bikeshop/internal/prompt"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(prompt.NewSurveyDriver(), os.Stdout, os.Stderr)
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		a.report(err)
		stop()
		os.Exit(1)
	}
}
