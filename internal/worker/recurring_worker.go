// Package worker runs the materialization job on a fixed interval.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"moneta/internal/log"
	"moneta/internal/services"
)

// Sweeper is implemented by services.RecurringProcessor.
type Sweeper interface {
	ProcessDue(ctx context.Context, now time.Time) (services.ProcessResult, error)
}

// RecurringWorker sweeps due recurring rules once at start and then on every
// tick until its context is cancelled.
type RecurringWorker struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *slog.Logger
}

func NewRecurringWorker(sweeper Sweeper, interval time.Duration) *RecurringWorker {
	return &RecurringWorker{
		sweeper:  sweeper,
		interval: interval,
		logger:   log.Component(log.ComponentWorker),
	}
}

// Run blocks until ctx is done and returns ctx.Err().
func (w *RecurringWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.InfoContext(ctx, "Running initial recurring processing")
	w.RunOnce(ctx, time.Now())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			w.RunOnce(ctx, now)
		}
	}
}

// RunOnce performs a single sweep and logs its outcome. Errors are logged,
// not returned, so one bad tick never stops the worker.
func (w *RecurringWorker) RunOnce(ctx context.Context, now time.Time) (services.ProcessResult, error) {
	result, err := w.sweeper.ProcessDue(ctx, now)
	switch {
	case errors.Is(err, services.ErrSweepInProgress):
		w.logger.WarnContext(ctx, "Previous sweep still running, skipping tick")
	case err != nil && ctx.Err() == nil:
		w.logger.ErrorContext(ctx, "Recurring processing failed", log.FieldError, err)
	case err == nil:
		w.logger.InfoContext(ctx, "Periodic processing complete",
			"due", result.Due,
			"materialized", result.Materialized,
			"retired", result.Retired,
			"failed", result.Failed,
			"next_check", now.Add(w.interval).Format("15:04:05"))
	}
	return result, err
}
