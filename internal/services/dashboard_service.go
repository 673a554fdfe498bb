package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"moneta/internal/core"
	"moneta/internal/store"
)

const topCategoryLimit = 5

// DashboardService builds monthly summaries from realized ledger entries and
// the projected occurrences of the user's recurring rules.
type DashboardService struct {
	rules       store.RuleStore
	ledger      store.LedgerStore
	categories  store.CategoryStore
	concurrency int
}

func NewDashboardService(rules store.RuleStore, ledger store.LedgerStore, categories store.CategoryStore, concurrency int) *DashboardService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &DashboardService{
		rules:       rules,
		ledger:      ledger,
		categories:  categories,
		concurrency: concurrency,
	}
}

// projection accumulates the occurrences of every active rule in one month.
type projection struct {
	income  core.Money
	expense core.Money
	// daily holds projected expenses, index 0 is day 1.
	daily []core.Money
	// byCategory holds projected expenses per rule category in the order the
	// categories were first seen.
	byCategory []core.CategoryTotal
}

func (s *DashboardService) project(ctx context.Context, userID string, month core.YearMonth) (projection, error) {
	window := month.Range()
	rules, err := s.rules.FindActiveRulesForUser(ctx, userID, window)
	if err != nil {
		return projection{}, fmt.Errorf("find active rules: %w", err)
	}

	p := projection{daily: make([]core.Money, month.Days())}
	index := map[string]int{}
	for _, rule := range rules {
		occurrences, err := EnumerateOccurrences(rule, window)
		if err != nil {
			return projection{}, err
		}
		for occ := range occurrences {
			if rule.Kind == core.Income {
				p.income = p.income.Add(occ.Amount)
				continue
			}
			p.expense = p.expense.Add(occ.Amount)
			p.daily[occ.Date.Day()-1] = p.daily[occ.Date.Day()-1].Add(occ.Amount)

			i, ok := index[rule.CategoryID]
			if !ok {
				i = len(p.byCategory)
				index[rule.CategoryID] = i
				p.byCategory = append(p.byCategory, core.CategoryTotal{ID: rule.CategoryID})
			}
			p.byCategory[i].Total = p.byCategory[i].Total.Add(occ.Amount)
		}
	}
	return p, nil
}

// Summarize combines the ledger totals of month with its projected recurring
// occurrences. When comparison is not nil a ledger-only daily expense series
// for that month is added.
func (s *DashboardService) Summarize(ctx context.Context, userID string, month core.YearMonth, comparison *core.YearMonth) (core.Summary, error) {
	window := month.Range()

	totals, err := s.ledger.SumByKind(ctx, userID, window)
	if err != nil {
		return core.Summary{}, fmt.Errorf("sum ledger: %w", err)
	}

	proj, err := s.project(ctx, userID, month)
	if err != nil {
		return core.Summary{}, fmt.Errorf("project %s: %w", month, err)
	}

	daily, err := s.dailySeries(ctx, userID, month)
	if err != nil {
		return core.Summary{}, err
	}
	for i, amount := range proj.daily {
		daily[i] = daily[i].Add(amount)
	}

	categories, err := s.ledger.GroupByCategory(ctx, userID, window, core.Expense)
	if err != nil {
		return core.Summary{}, fmt.Errorf("group expenses by category: %w", err)
	}
	if !proj.expense.IsZero() {
		categories = append(categories, core.CategoryTotal{Name: core.RecurringBucket, Total: proj.expense})
	}

	summary := newSummary(month, totals.Income.Add(proj.income), totals.Expense.Add(proj.expense))
	summary.RecurringIncome = proj.income
	summary.RecurringExpenses = proj.expense
	summary.DailyExpenses = daily
	summary.TopCategories = topCategories(categories, summary.TotalExpenses)

	if comparison != nil {
		summary.ComparisonDailyExpenses, err = s.dailySeries(ctx, userID, *comparison)
		if err != nil {
			return core.Summary{}, err
		}
	}

	slog.DebugContext(ctx, "Built monthly summary",
		"user_id", userID,
		"month", month.String(),
		"recurring_expense_cents", proj.expense.Cents)

	return summary, nil
}

// Forecast projects month from recurring rules alone. Ledger entries never
// influence the result.
func (s *DashboardService) Forecast(ctx context.Context, userID string, month core.YearMonth) (core.Summary, error) {
	proj, err := s.project(ctx, userID, month)
	if err != nil {
		return core.Summary{}, fmt.Errorf("project %s: %w", month, err)
	}

	names, err := s.categoryIndex(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}
	categories := make([]core.CategoryTotal, 0, len(proj.byCategory))
	for _, ct := range proj.byCategory {
		if c, ok := names[ct.ID]; ok {
			ct.Name, ct.Color = c.Name, c.Color
		} else {
			ct.ID, ct.Name = "", core.Uncategorized
		}
		categories = append(categories, ct)
	}

	summary := newSummary(month, proj.income, proj.expense)
	summary.RecurringIncome = proj.income
	summary.RecurringExpenses = proj.expense
	summary.DailyExpenses = proj.daily
	summary.TopCategories = topCategories(categories, proj.expense)
	return summary, nil
}

// Breakdown returns, for each distinct month, ledger expenses by category and
// incomes by description with projected recurring expenses merged in as the
// Recurring bucket. Months are computed concurrently.
func (s *DashboardService) Breakdown(ctx context.Context, userID string, months []core.YearMonth) (map[string]core.MonthBreakdown, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]core.MonthBreakdown, len(months))
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	seen := map[core.YearMonth]bool{}
	for _, month := range months {
		if seen[month] {
			continue
		}
		seen[month] = true

		g.Go(func() error {
			b, err := s.breakdownMonth(ctx, userID, month)
			if err != nil {
				return fmt.Errorf("breakdown %s: %w", month, err)
			}
			mu.Lock()
			out[month.String()] = b
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DashboardService) breakdownMonth(ctx context.Context, userID string, month core.YearMonth) (core.MonthBreakdown, error) {
	window := month.Range()

	expenses, err := s.ledger.GroupByCategory(ctx, userID, window, core.Expense)
	if err != nil {
		return core.MonthBreakdown{}, fmt.Errorf("group expenses: %w", err)
	}
	incomes, err := s.ledger.GroupByDescription(ctx, userID, window, core.Income)
	if err != nil {
		return core.MonthBreakdown{}, fmt.Errorf("group incomes: %w", err)
	}

	proj, err := s.project(ctx, userID, month)
	if err != nil {
		return core.MonthBreakdown{}, err
	}
	if !proj.expense.IsZero() {
		expenses = append(expenses, core.CategoryTotal{Name: core.RecurringBucket, Total: proj.expense})
	}

	return core.MonthBreakdown{
		Expenses: withPercent(sortByTotal(expenses)),
		Incomes:  withPercent(sortByTotal(incomes)),
	}, nil
}

func (s *DashboardService) dailySeries(ctx context.Context, userID string, month core.YearMonth) ([]core.Money, error) {
	totals, err := s.ledger.DailyTotals(ctx, userID, month.Range(), core.Expense)
	if err != nil {
		return nil, fmt.Errorf("daily totals %s: %w", month, err)
	}
	series := make([]core.Money, month.Days())
	for _, dt := range totals {
		if dt.Day >= 1 && dt.Day <= len(series) {
			series[dt.Day-1] = series[dt.Day-1].Add(dt.Total)
		}
	}
	return series, nil
}

func (s *DashboardService) categoryIndex(ctx context.Context, userID string) (map[string]core.Category, error) {
	list, err := s.categories.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	index := make(map[string]core.Category, len(list))
	for _, c := range list {
		index[c.ID] = c
	}
	return index, nil
}

func newSummary(month core.YearMonth, income, expense core.Money) core.Summary {
	balance := income.Sub(expense)
	return core.Summary{
		Year:          month.Year,
		Month:         int(month.Month),
		TotalIncome:   income,
		TotalExpenses: expense,
		Balance:       balance,
		SavingsRate:   core.Percent(balance, income),
	}
}

// sortByTotal orders totals largest first. Equal totals keep their input order.
func sortByTotal(totals []core.CategoryTotal) []core.CategoryTotal {
	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Total.Cents > totals[j].Total.Cents
	})
	return totals
}

func topCategories(totals []core.CategoryTotal, whole core.Money) []core.CategoryTotal {
	top := sortByTotal(slices.Clone(totals))
	if len(top) > topCategoryLimit {
		top = top[:topCategoryLimit]
	}
	for i := range top {
		top[i].Percent = core.Percent(top[i].Total, whole)
	}
	return top
}

func withPercent(totals []core.CategoryTotal) []core.CategoryTotal {
	var whole core.Money
	for _, t := range totals {
		whole = whole.Add(t.Total)
	}
	for i := range totals {
		totals[i].Percent = core.Percent(totals[i].Total, whole)
	}
	return totals
}
