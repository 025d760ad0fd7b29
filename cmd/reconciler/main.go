// Command reconciler runs the booking expiry sweep without the HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"booking-engine/internal/app"
	"booking-engine/internal/config"
	"booking-engine/internal/reconcile"
)

func main() {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(once bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Bool("once", once).Msg("starting booking reconciler")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if once {
		report, err := a.Scheduler.RunOnce(ctx)
		if errors.Is(err, reconcile.ErrLockHeld) {
			logger.Info().Msg("another reconciler holds the sweep lock, nothing to do")
			return nil
		}
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		logger.Info().
			Int("scanned", report.Scanned).
			Int("cancelled", len(report.Cancelled)).
			Int("skipped", report.Skipped).
			Int("failed", report.Failed).
			Msg("sweep complete")
		return nil
	}

	if err := a.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start reconciler: %w", err)
	}
	<-ctx.Done()

	logger.Info().Msg("shutdown signal received, waiting for running sweep")
	a.Scheduler.Stop()
	return nil
}
