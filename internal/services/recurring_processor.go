package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moneta/internal/core"
	"moneta/internal/events"
	"moneta/internal/log"
	"moneta/internal/store"
)

// ErrSweepInProgress is returned when ProcessDue is called while another
// sweep of the same processor is still running.
var ErrSweepInProgress = errors.New("recurring sweep already in progress")

// ProcessResult reports the outcome of one sweep.
type ProcessResult struct {
	// Due is the number of rules whose next occurrence was on or before now.
	Due int `json:"due"`
	// Materialized counts ledger entries actually written.
	Materialized int `json:"materialized"`
	// Retired counts rules deleted because nothing is left to emit.
	Retired int `json:"retired"`
	// Failed counts rules left untouched because of an error.
	Failed int `json:"failed"`
	// Skipped counts occurrences already present in the ledger or rules
	// advanced concurrently by another sweep.
	Skipped int `json:"skipped"`
}

// RecurringProcessor turns due recurring rules into ledger entries, one
// occurrence per rule and run.
type RecurringProcessor struct {
	rules     store.RuleStore
	ledger    store.LedgerStore
	publisher events.Publisher
	running   sync.Mutex
}

func NewRecurringProcessor(rules store.RuleStore, ledger store.LedgerStore, publisher events.Publisher) *RecurringProcessor {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &RecurringProcessor{
		rules:     rules,
		ledger:    ledger,
		publisher: publisher,
	}
}

type outcome int

const (
	outcomeMaterialized outcome = iota
	outcomeMaterializedAndRetired
	outcomeRetired
	outcomeDuplicate
	outcomeLostRace
)

// ProcessDue sweeps every rule due by now across all users. A failing rule is
// logged and counted; it never stops the sweep. The returned error is only
// set when the due rules could not be loaded at all.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (ProcessResult, error) {
	if !p.running.TryLock() {
		return ProcessResult{}, ErrSweepInProgress
	}
	defer p.running.Unlock()

	today := core.DateOf(now)
	due, err := p.rules.FindRulesDueBy(ctx, today)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("find due rules: %w", err)
	}

	logger := log.Component(log.ComponentJob)
	logger.InfoContext(ctx, "Processing recurring rules",
		"due", len(due),
		"processing_date", today.String())

	result := ProcessResult{Due: len(due)}
	for _, rule := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		out, err := p.processRule(ctx, rule)
		if err != nil {
			result.Failed++
			logger.ErrorContext(ctx, "Failed to process recurring rule",
				log.FieldRuleID, rule.ID,
				log.FieldUserID, rule.UserID,
				log.FieldFrequency, rule.Frequency,
				log.FieldNextOccurrence, rule.NextOccurrence.String(),
				log.FieldError, err)
			continue
		}

		switch out {
		case outcomeMaterialized:
			result.Materialized++
		case outcomeMaterializedAndRetired:
			result.Materialized++
			result.Retired++
		case outcomeRetired:
			result.Retired++
		case outcomeDuplicate, outcomeLostRace:
			result.Skipped++
		}
	}

	logger.InfoContext(ctx, "Recurring rule processing complete",
		"due", result.Due,
		"materialized", result.Materialized,
		"retired", result.Retired,
		"failed", result.Failed,
		"skipped", result.Skipped)

	return result, nil
}

func (p *RecurringProcessor) processRule(ctx context.Context, rule core.RecurringRule) (outcome, error) {
	// Nothing left to emit: the pending occurrence is already past the end.
	if rule.HasEndDate() && rule.NextOccurrence.After(rule.EndDate.Time) {
		if err := p.retire(ctx, rule); err != nil {
			return 0, err
		}
		return outcomeRetired, nil
	}

	// Computed before any write so a corrupt frequency leaves no trace.
	next, err := AdvanceOnce(rule.NextOccurrence, rule.Frequency)
	if err != nil {
		return 0, err
	}

	entry, err := rule.Materialize()
	if err != nil {
		return 0, fmt.Errorf("materialize: %w", err)
	}

	inserted, err := p.ledger.InsertEntry(ctx, entry)
	if err != nil {
		return 0, err
	}
	if inserted {
		slog.InfoContext(ctx, "Materialized recurring rule",
			log.Audit(),
			log.FieldComponent, log.ComponentJob,
			log.FieldRuleID, rule.ID,
			log.FieldUserID, rule.UserID,
			log.FieldEntryID, entry.ID,
			log.FieldOccurrenceDate, entry.Date.String(),
			log.FieldAmountCents, entry.Amount.Cents)
		p.publish(ctx, events.Materialized(rule, entry))
	}

	if rule.HasEndDate() && next.After(rule.EndDate.Time) {
		if err := p.retire(ctx, rule); err != nil {
			return 0, err
		}
		if !inserted {
			return outcomeRetired, nil
		}
		return outcomeMaterializedAndRetired, nil
	}

	advanced, err := p.rules.AdvanceRule(ctx, rule.ID, rule.NextOccurrence, next)
	if err != nil {
		return 0, err
	}
	if !advanced {
		slog.InfoContext(ctx, "Recurring rule advanced by another sweep",
			log.FieldRuleID, rule.ID,
			log.FieldNextOccurrence, rule.NextOccurrence.String())
	}

	switch {
	case inserted:
		return outcomeMaterialized, nil
	case advanced:
		slog.InfoContext(ctx, "Occurrence already in ledger, rule advanced",
			log.FieldRuleID, rule.ID,
			log.FieldOccurrenceDate, rule.NextOccurrence.String())
		return outcomeDuplicate, nil
	default:
		return outcomeLostRace, nil
	}
}

func (p *RecurringProcessor) retire(ctx context.Context, rule core.RecurringRule) error {
	if err := p.rules.DeleteRule(ctx, rule.ID); err != nil {
		return fmt.Errorf("retire: %w", err)
	}
	slog.InfoContext(ctx, "Retired recurring rule",
		log.Audit(),
		log.FieldComponent, log.ComponentJob,
		log.FieldRuleID, rule.ID,
		log.FieldUserID, rule.UserID,
		"end_date", rule.EndDate.String())
	p.publish(ctx, events.Retired(rule))
	return nil
}

// publish never fails the sweep; the ledger is the source of truth.
func (p *RecurringProcessor) publish(ctx context.Context, e events.Event) {
	if err := p.publisher.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "Failed to publish event",
			"type", e.Type,
			log.FieldUserID, e.UserID,
			log.FieldError, err)
	}
}
