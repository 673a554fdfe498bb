package services

import (
	"context"
	"fmt"
	"log/slog"

	"moneta/internal/cache"
	"moneta/internal/core"
	"moneta/internal/events"
	"moneta/internal/log"
)

// Dashboard is the read side consumed by the HTTP layer.
type Dashboard interface {
	Summarize(ctx context.Context, userID string, month core.YearMonth, comparison *core.YearMonth) (core.Summary, error)
	Forecast(ctx context.Context, userID string, month core.YearMonth) (core.Summary, error)
	Breakdown(ctx context.Context, userID string, months []core.YearMonth) (map[string]core.MonthBreakdown, error)
}

var (
	_ Dashboard = (*DashboardService)(nil)
	_ Dashboard = (*CachedDashboard)(nil)
)

// CachedDashboard memoizes summaries and forecasts per user and month.
// Breakdowns pass straight through.
type CachedDashboard struct {
	next      Dashboard
	summaries cache.Cache[core.Summary]
}

func NewCachedDashboard(next Dashboard, summaries cache.Cache[core.Summary]) *CachedDashboard {
	return &CachedDashboard{next: next, summaries: summaries}
}

func userPrefix(userID string) string {
	return userID + "|"
}

func (c *CachedDashboard) Summarize(ctx context.Context, userID string, month core.YearMonth, comparison *core.YearMonth) (core.Summary, error) {
	key := fmt.Sprintf("%ssummary|%s", userPrefix(userID), month)
	if comparison != nil {
		key += "|" + comparison.String()
	}
	return c.cached(key, func() (core.Summary, error) {
		return c.next.Summarize(ctx, userID, month, comparison)
	})
}

func (c *CachedDashboard) Forecast(ctx context.Context, userID string, month core.YearMonth) (core.Summary, error) {
	key := fmt.Sprintf("%sforecast|%s", userPrefix(userID), month)
	return c.cached(key, func() (core.Summary, error) {
		return c.next.Forecast(ctx, userID, month)
	})
}

func (c *CachedDashboard) Breakdown(ctx context.Context, userID string, months []core.YearMonth) (map[string]core.MonthBreakdown, error) {
	return c.next.Breakdown(ctx, userID, months)
}

func (c *CachedDashboard) cached(key string, load func() (core.Summary, error)) (core.Summary, error) {
	if s, ok := c.summaries.Get(key); ok {
		return s, nil
	}
	s, err := load()
	if err != nil {
		return core.Summary{}, err
	}
	c.summaries.Set(key, s)
	return s, nil
}

// Invalidate drops every cached result of userID.
func (c *CachedDashboard) Invalidate(userID string) int {
	return c.summaries.DeletePrefix(userPrefix(userID))
}

// HandleEvent is an events.Handler that invalidates the affected user.
func (c *CachedDashboard) HandleEvent(ctx context.Context, e events.Event) error {
	if n := c.Invalidate(e.UserID); n > 0 {
		slog.DebugContext(ctx, "Invalidated dashboard cache",
			log.FieldUserID, e.UserID,
			"event", e.Type,
			"entries", n)
	}
	return nil
}
