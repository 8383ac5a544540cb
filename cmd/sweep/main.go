// Command sweep is a one-shot maintenance job meant for cron: it deletes
// used and expired auth tokens and stale rate-limit counters.
package main

import (
	"log/slog"

	"github.com/halcyonlabs/authbase/internal/app"
	"github.com/halcyonlabs/authbase/internal/config"
	"github.com/halcyonlabs/authbase/internal/logger"
)

func main() {
	cfg := config.Load()

	logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)

	app, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		panic(err)
	}
	defer func() {
		closeErr := app.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	tokens, err := app.AuthService.SweepTokens(cfg.RateLimitRetention)
	if err != nil {
		slog.Error("token sweep failed", "error", err)
		panic(err)
	}

	counters, err := app.RateLimitService.Sweep(cfg.RateLimitRetention)
	if err != nil {
		slog.Error("rate limit sweep failed", "error", err)
		panic(err)
	}

	slog.Info("sweep complete", "tokens_deleted", tokens, "counters_deleted", counters)
}
