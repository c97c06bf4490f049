package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-errors/errors"
)

// ============================================================================
// CROPYIELD CLI — Crop yield aggregation, charts and HTTP API
// ============================================================================

var version = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if os.Getenv("CROPYIELD_DEBUG") != "" {
			var ge *errors.Error
			if errors.As(err, &ge) {
				fmt.Fprintln(os.Stderr, ge.ErrorStack())
			}
		}
		os.Exit(1)
	}
}
