// Package memory is an in-process store used by tests and the memory backend.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"moneta/internal/core"
)

type Store struct {
	mu         sync.RWMutex
	rules      map[string]core.RecurringRule
	entries    map[string]core.LedgerEntry
	categories map[string]core.Category
}

func New() *Store {
	return &Store{
		rules:      make(map[string]core.RecurringRule),
		entries:    make(map[string]core.LedgerEntry),
		categories: make(map[string]core.Category),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// FindRulesDueBy implements store.RuleStore.
func (s *Store) FindRulesDueBy(_ context.Context, day core.Date) ([]core.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.RecurringRule
	for _, r := range s.rules {
		if !r.NextOccurrence.After(day.Time) {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out, nil
}

// FindActiveRulesForUser implements store.RuleStore.
func (s *Store) FindActiveRulesForUser(_ context.Context, userID string, window core.DateRange) ([]core.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.RecurringRule
	for _, r := range s.rules {
		if r.UserID != userID || r.StartDate.After(window.To.Time) {
			continue
		}
		if r.HasEndDate() && r.EndDate.Before(window.From.Time) {
			continue
		}
		out = append(out, r)
	}
	sortRules(out)
	return out, nil
}

// ListRules implements store.RuleStore.
func (s *Store) ListRules(_ context.Context, userID string) ([]core.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.RecurringRule
	for _, r := range s.rules {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sortRules(out)
	return out, nil
}

// GetRule implements store.RuleStore.
func (s *Store) GetRule(_ context.Context, userID, id string) (core.RecurringRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[id]
	if !ok || r.UserID != userID {
		return core.RecurringRule{}, core.ErrNotFound
	}
	return r, nil
}

// SaveRule implements store.RuleStore.
func (s *Store) SaveRule(_ context.Context, rule core.RecurringRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.ID] = rule
	return nil
}

// AdvanceRule implements store.RuleStore.
func (s *Store) AdvanceRule(_ context.Context, id string, from, to core.Date) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[id]
	if !ok || !r.NextOccurrence.Equal(from.Time) {
		return false, nil
	}
	r.NextOccurrence = to
	s.rules[id] = r
	return true, nil
}

// DeleteRule implements store.RuleStore.
func (s *Store) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules, id)
	return nil
}

// SumByKind implements store.LedgerStore.
func (s *Store) SumByKind(_ context.Context, userID string, r core.DateRange) (core.KindTotals, error) {
	var totals core.KindTotals
	for _, e := range s.entriesIn(userID, r) {
		switch e.Kind {
		case core.Income:
			totals.Income = totals.Income.Add(e.Amount)
		case core.Expense:
			totals.Expense = totals.Expense.Add(e.Amount)
		}
	}
	return totals, nil
}

// GroupByCategory implements store.LedgerStore.
func (s *Store) GroupByCategory(_ context.Context, userID string, r core.DateRange, kind core.Kind) ([]core.CategoryTotal, error) {
	s.mu.RLock()
	cats := make(map[string]core.Category, len(s.categories))
	for id, c := range s.categories {
		if c.UserID == userID {
			cats[id] = c
		}
	}
	s.mu.RUnlock()

	return group(s.entriesIn(userID, r), kind, func(e core.LedgerEntry) core.CategoryTotal {
		if c, ok := cats[e.CategoryID]; ok {
			return core.CategoryTotal{ID: c.ID, Name: c.Name, Color: c.Color}
		}
		return core.CategoryTotal{Name: core.Uncategorized}
	}), nil
}

// GroupByDescription implements store.LedgerStore.
func (s *Store) GroupByDescription(_ context.Context, userID string, r core.DateRange, kind core.Kind) ([]core.CategoryTotal, error) {
	return group(s.entriesIn(userID, r), kind, func(e core.LedgerEntry) core.CategoryTotal {
		return core.CategoryTotal{Name: e.Description}
	}), nil
}

// DailyTotals implements store.LedgerStore.
func (s *Store) DailyTotals(_ context.Context, userID string, r core.DateRange, kind core.Kind) ([]core.DayTotal, error) {
	byDay := map[int]core.Money{}
	for _, e := range s.entriesIn(userID, r) {
		if e.Kind == kind {
			byDay[e.Date.Day()] = byDay[e.Date.Day()].Add(e.Amount)
		}
	}
	out := make([]core.DayTotal, 0, len(byDay))
	for day, total := range byDay {
		out = append(out, core.DayTotal{Day: day, Total: total})
	}
	slices.SortFunc(out, func(a, b core.DayTotal) int { return cmp.Compare(a.Day, b.Day) })
	return out, nil
}

// InsertEntry implements store.LedgerStore.
func (s *Store) InsertEntry(_ context.Context, e core.LedgerEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[e.ID]; exists {
		return false, nil
	}
	s.entries[e.ID] = e
	return true, nil
}

// InsertEntries implements store.LedgerStore.
func (s *Store) InsertEntries(_ context.Context, entries []core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if _, exists := s.entries[e.ID]; exists {
			return fmt.Errorf("entry %s already exists", e.ID)
		}
	}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

// ListEntries implements store.LedgerStore.
func (s *Store) ListEntries(_ context.Context, userID string, r core.DateRange) ([]core.LedgerEntry, error) {
	out := s.entriesIn(userID, r)
	slices.SortFunc(out, func(a, b core.LedgerEntry) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// GetEntry implements store.LedgerStore.
func (s *Store) GetEntry(_ context.Context, userID, id string) (core.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || e.UserID != userID {
		return core.LedgerEntry{}, core.ErrNotFound
	}
	return e, nil
}

// UpdateEntry implements store.LedgerStore.
func (s *Store) UpdateEntry(_ context.Context, e core.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.entries[e.ID]
	if !ok || current.UserID != e.UserID {
		return core.ErrNotFound
	}
	s.entries[e.ID] = e
	return nil
}

// DeleteEntry implements store.LedgerStore.
func (s *Store) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// SaveCategory implements store.CategoryStore.
func (s *Store) SaveCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

// ListCategories implements store.CategoryStore.
func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b core.Category) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

// Entries returns a copy of every stored entry, for tests.
func (s *Store) Entries() []core.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

func (s *Store) entriesIn(userID string, r core.DateRange) []core.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.LedgerEntry
	for _, e := range s.entries {
		if e.UserID == userID && r.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}

func group(entries []core.LedgerEntry, kind core.Kind, key func(core.LedgerEntry) core.CategoryTotal) []core.CategoryTotal {
	index := map[string]int{}
	var out []core.CategoryTotal
	for _, e := range entries {
		if e.Kind != kind {
			continue
		}
		k := key(e)
		i, ok := index[k.ID+"|"+k.Name]
		if !ok {
			i = len(out)
			index[k.ID+"|"+k.Name] = i
			out = append(out, k)
		}
		out[i].Total = out[i].Total.Add(e.Amount)
	}
	slices.SortFunc(out, func(a, b core.CategoryTotal) int {
		if c := cmp.Compare(b.Total.Cents, a.Total.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

func sortRules(rules []core.RecurringRule) {
	slices.SortFunc(rules, func(a, b core.RecurringRule) int {
		if c := a.NextOccurrence.Compare(b.NextOccurrence.Time); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
