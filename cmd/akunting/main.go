package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"akunting/internal/cache"
	"akunting/internal/cli"
	"akunting/internal/config"
	apphttp "akunting/internal/http"
	"akunting/internal/log"
	"akunting/internal/services"
	"akunting/internal/view"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(bootLogger, (*config.Config).Validate)
	logger := cli.ConfigureLogger(cfg, log.ComponentHTTP)
	slogger := logger.Logger

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	res := cli.InitBackend(initCtx, slogger, cfg, "")
	initCancel()

	ledger := services.NewLedgerService(res.Store, res.Publisher)
	v := view.New(res.Store, view.Options{
		Location: cfg.Location(),
		CacheTTL: cfg.SummaryCacheTTL,
	})

	cacheManager := cache.NewManager()
	cacheManager.Register(v.Cache())
	cacheManager.StartCleanup(cfg.SummaryCacheTTL)

	srv, err := apphttp.NewServer(":"+cfg.Port, v, ledger, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Checks:             res.Checks,
	})
	if err != nil {
		slogger.Error("Failed to create HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(slogger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slogger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				slogger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	// The page answers 503 until the first load succeeds.
	go loadView(ctx, logger, v)
	go func() {
		if err := v.Run(ctx, res.Subscriber); err != nil {
			slogger.Error("Change feed stopped", "error", err)
		}
	}()

	slogger.Info("Starting akunting server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Timezone,
		"remote_feed", res.Remote)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slogger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	slogger.Info("Server stopped gracefully")
}

// loadView retries the initial fetch until it succeeds or ctx ends.
func loadView(ctx context.Context, logger *log.Logger, v *view.View) {
	delay := time.Second
	for {
		err := v.Load(ctx)
		if err == nil {
			logger.Info("Ledger loaded")
			return
		}
		logger.Error("Initial ledger load failed", log.FieldError, err, "retry_in", delay.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}
