// Package store declares the persistence ports used by the services.
package store

import (
	"context"

	"moneta/internal/core"
)

// Ports for outbound adapters. Every user scoped lookup returns
// core.ErrNotFound both for missing rows and rows owned by someone else.
type (
	RuleStore interface {
		// FindRulesDueBy returns rules of every user whose next occurrence is
		// on or before day.
		FindRulesDueBy(ctx context.Context, day core.Date) ([]core.RecurringRule, error)
		// FindActiveRulesForUser returns rules whose lifespan intersects window.
		FindActiveRulesForUser(ctx context.Context, userID string, window core.DateRange) ([]core.RecurringRule, error)
		// ListRules returns the user's rules ordered by next occurrence.
		ListRules(ctx context.Context, userID string) ([]core.RecurringRule, error)
		GetRule(ctx context.Context, userID, id string) (core.RecurringRule, error)
		// SaveRule inserts or replaces a rule.
		SaveRule(ctx context.Context, rule core.RecurringRule) error
		// AdvanceRule moves NextOccurrence from one date to another only if it
		// still equals from. It reports whether the row was updated.
		AdvanceRule(ctx context.Context, id string, from, to core.Date) (bool, error)
		// DeleteRule removes a rule; deleting a missing rule is not an error.
		DeleteRule(ctx context.Context, id string) error
	}

	LedgerStore interface {
		SumByKind(ctx context.Context, userID string, r core.DateRange) (core.KindTotals, error)
		// GroupByCategory totals entries of kind by category, largest first.
		// Entries without a category fall under core.Uncategorized.
		GroupByCategory(ctx context.Context, userID string, r core.DateRange, kind core.Kind) ([]core.CategoryTotal, error)
		// GroupByDescription totals entries of kind by description, largest first.
		GroupByDescription(ctx context.Context, userID string, r core.DateRange, kind core.Kind) ([]core.CategoryTotal, error)
		// DailyTotals returns per day sums for days with at least one entry.
		DailyTotals(ctx context.Context, userID string, r core.DateRange, kind core.Kind) ([]core.DayTotal, error)
		// InsertEntry stores e unless an entry with the same id exists. It
		// reports whether a row was written.
		InsertEntry(ctx context.Context, e core.LedgerEntry) (bool, error)
		// ListEntries returns the user's entries in r, newest first.
		ListEntries(ctx context.Context, userID string, r core.DateRange) ([]core.LedgerEntry, error)
		// InsertEntries stores every entry or none of them.
		InsertEntries(ctx context.Context, entries []core.LedgerEntry) error
		GetEntry(ctx context.Context, userID, id string) (core.LedgerEntry, error)
		// UpdateEntry replaces an entry owned by e.UserID.
		UpdateEntry(ctx context.Context, e core.LedgerEntry) error
		DeleteEntry(ctx context.Context, id string) error
	}

	CategoryStore interface {
		SaveCategory(ctx context.Context, c core.Category) error
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
	}

	// Store is implemented by every backend.
	Store interface {
		RuleStore
		LedgerStore
		CategoryStore
		Ping(ctx context.Context) error
		Close() error
	}
)
