// Package main provides the golapse CLI: an overnight DSLR time lapse
// controller.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(systemDeps()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
