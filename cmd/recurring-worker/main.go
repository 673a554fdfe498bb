package main

import (
	"context"
	"errors"
	"time"

	"moneta/internal/backend"
	"moneta/internal/cli"
	"moneta/internal/log"
	"moneta/internal/services"
	"moneta/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, nil).With(log.FieldComponent, log.ComponentWorker)

	logger.Info("Starting recurring-worker", log.FieldOperation, log.OpStartup)
	if cfg.DataBackend == "memory" {
		logger.Warn("Memory backend is private to this process, the API will not see materialized entries")
	}

	be := cli.InitBackend(context.Background(), logger, cfg)
	ev := cli.InitEvents(context.Background(), logger, cfg, backend.Consumer{GroupID: "moneta-worker"})
	defer cli.Close(logger, be.Cleanup, ev.Cleanup)

	processor := services.NewRecurringProcessor(be.Store, be.Store, ev.Publisher)
	w := worker.NewRecurringWorker(processor, cfg.RecurringProcessorInterval)

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringProcessorInterval,
		"backend", cfg.DataBackend,
		"events", cfg.EventsDriver)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Recurring worker stopped", log.FieldError, err)
	}

	<-done
	logger.Info("Recurring-worker shutdown complete")
}
