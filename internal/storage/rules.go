package storage

import (
	"context"
	"database/sql"
	"fmt"

	"moneta/internal/core"
)

const ruleColumns = `id, user_id, kind, description, amount_cents, category_id, payment_method_id,
	frequency, start_date, end_date, next_occurrence, notes`

// FindRulesDueBy implements store.RuleStore.
func (r *Repository) FindRulesDueBy(ctx context.Context, day core.Date) ([]core.RecurringRule, error) {
	return r.listRules(ctx, `SELECT `+ruleColumns+` FROM recurring_rules
		WHERE next_occurrence <= ? ORDER BY next_occurrence, id`, day.String())
}

// FindActiveRulesForUser implements store.RuleStore.
func (r *Repository) FindActiveRulesForUser(ctx context.Context, userID string, window core.DateRange) ([]core.RecurringRule, error) {
	return r.listRules(ctx, `SELECT `+ruleColumns+` FROM recurring_rules
		WHERE user_id = ? AND start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		ORDER BY next_occurrence, id`, userID, window.To.String(), window.From.String())
}

// ListRules implements store.RuleStore.
func (r *Repository) ListRules(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	return r.listRules(ctx, `SELECT `+ruleColumns+` FROM recurring_rules
		WHERE user_id = ? ORDER BY next_occurrence, id`, userID)
}

// GetRule implements store.RuleStore.
func (r *Repository) GetRule(ctx context.Context, userID, id string) (core.RecurringRule, error) {
	row := r.queryRow(ctx, `SELECT `+ruleColumns+` FROM recurring_rules WHERE id = ? AND user_id = ?`, id, userID)
	rule, err := scanRule(row)
	if err != nil {
		return core.RecurringRule{}, fmt.Errorf("get rule %s: %w", id, notFound(err))
	}
	return rule, nil
}

// SaveRule implements store.RuleStore.
func (r *Repository) SaveRule(ctx context.Context, rule core.RecurringRule) error {
	var endDate any
	if rule.HasEndDate() {
		endDate = rule.EndDate.String()
	}
	_, err := r.exec(ctx, `
		INSERT INTO recurring_rules (`+ruleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			description = excluded.description,
			amount_cents = excluded.amount_cents,
			category_id = excluded.category_id,
			payment_method_id = excluded.payment_method_id,
			frequency = excluded.frequency,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			next_occurrence = excluded.next_occurrence,
			notes = excluded.notes,
			updated_at = CURRENT_TIMESTAMP`,
		rule.ID, rule.UserID, string(rule.Kind), rule.Description, rule.Amount.Cents,
		nullable(rule.CategoryID), nullable(rule.PaymentMethodID), string(rule.Frequency),
		rule.StartDate.String(), endDate, rule.NextOccurrence.String(), rule.Notes)
	if err != nil {
		return fmt.Errorf("save rule %s: %w", rule.ID, err)
	}
	return nil
}

// AdvanceRule implements store.RuleStore.
func (r *Repository) AdvanceRule(ctx context.Context, id string, from, to core.Date) (bool, error) {
	res, err := r.exec(ctx, `
		UPDATE recurring_rules SET next_occurrence = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND next_occurrence = ?`, to.String(), id, from.String())
	if err != nil {
		return false, fmt.Errorf("advance rule %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("advance rule %s: %w", id, err)
	}
	return n == 1, nil
}

// DeleteRule implements store.RuleStore.
func (r *Repository) DeleteRule(ctx context.Context, id string) error {
	if _, err := r.exec(ctx, `DELETE FROM recurring_rules WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete rule %s: %w", id, err)
	}
	return nil
}

func (r *Repository) listRules(ctx context.Context, query string, args ...any) ([]core.RecurringRule, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func scanRule(s scanner) (core.RecurringRule, error) {
	var (
		rule                   core.RecurringRule
		kind, frequency        string
		category, payment, end sql.NullString
		start, next            string
	)
	err := s.Scan(&rule.ID, &rule.UserID, &kind, &rule.Description, &rule.Amount.Cents,
		&category, &payment, &frequency, &start, &end, &next, &rule.Notes)
	if err != nil {
		return core.RecurringRule{}, err
	}
	rule.Kind = core.Kind(kind)
	rule.Frequency = core.Frequency(frequency)
	rule.CategoryID = category.String
	rule.PaymentMethodID = payment.String

	if rule.StartDate, err = parseStoredDate(start); err != nil {
		return core.RecurringRule{}, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if rule.NextOccurrence, err = parseStoredDate(next); err != nil {
		return core.RecurringRule{}, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if end.Valid && end.String != "" {
		if rule.EndDate, err = parseStoredDate(end.String); err != nil {
			return core.RecurringRule{}, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
	}
	return rule, nil
}
