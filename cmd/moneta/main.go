package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"moneta/internal/backend"
	"moneta/internal/cache"
	"moneta/internal/cli"
	"moneta/internal/config"
	"moneta/internal/core"
	"moneta/internal/events"
	apphttp "moneta/internal/http"
	"moneta/internal/log"
	"moneta/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateServer)

	// Injected into the server for /admin/logs.
	ring := log.NewRing(cfg.LogBufferSize)
	logger := cli.SetupLogger(cfg, ring)

	be := cli.InitBackend(context.Background(), logger, cfg)
	// Every replica needs every event to keep its own cache fresh.
	ev := cli.InitEvents(context.Background(), logger, cfg, backend.Consumer{PerInstance: true})
	st := be.Store

	summaries := cache.NewLRUCache[core.Summary](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	caches := cache.NewManager()
	caches.Register(summaries)
	caches.StartCleanup(time.Minute)

	dashboard := services.NewCachedDashboard(
		services.NewDashboardService(st, st, st, cfg.BreakdownConcurrency),
		summaries)

	// Local writes invalidate synchronously; broker events cover writes made
	// by the worker.
	publisher := events.Tee(ev.Publisher, events.PublisherFunc(dashboard.HandleEvent))

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:       ":" + cfg.Port,
		CronSecret: cfg.CronJobSecret,
	}, apphttp.Dependencies{
		Dashboard: dashboard,
		Rules:     services.NewRuleService(st, publisher),
		Ledger:    services.NewLedgerService(st, st, publisher),
		Sweeper:   services.NewRecurringProcessor(st, st, publisher),
		Store:     st,
		Ring:      ring,
	})
	if err != nil {
		logger.Error("Failed to configure server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
	})

	if ev.Subscriber != nil {
		go func() {
			err := ev.Subscriber.Subscribe(ctx, dashboard.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event subscription stopped", log.FieldComponent, log.ComponentEvents, log.FieldError, err)
			}
		}()
	}

	logger.Info("Starting moneta server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", cfg.EventsDriver,
		log.FieldOperation, log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		cli.Close(logger, be.Cleanup, ev.Cleanup)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	cli.Close(logger, be.Cleanup, ev.Cleanup)
	logger.Info("Server stopped gracefully")
}
