// Package main is the entrypoint of tubeshelf.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tubeshelf/internal/cfg"
	"tubeshelf/internal/domain/logger"
	"tubeshelf/internal/logging"
)

// main is the main entrypoint of the program.
func main() {
	startTime := time.Now()

	pl, err := logging.SetupLogging(logging.LoggingConfig{
		Console: os.Stdout,
		Program: "tubeshelf",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "tubeshelf exiting with error: %v\n", err)
		os.Exit(1)
	}
	logger.Pl = pl

	// create cancellable context for shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)
	defer cancel()

	runErr := cfg.Execute(ctx, run)

	logger.Pl.I("tubeshelf stopped after %v", time.Since(startTime).Round(time.Millisecond))
	if err := logger.Pl.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		cancel()
		os.Exit(1)
	}
}
