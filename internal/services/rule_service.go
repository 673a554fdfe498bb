package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"moneta/internal/core"
	"moneta/internal/events"
	"moneta/internal/log"
	"moneta/internal/store"
)

// RuleService owns the lifecycle of recurring rules outside the sweep.
type RuleService struct {
	rules     store.RuleStore
	publisher events.Publisher
	now       func() time.Time
}

func NewRuleService(rules store.RuleStore, publisher events.Publisher) *RuleService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &RuleService{rules: rules, publisher: publisher, now: time.Now}
}

// List returns the user's rules ordered by next occurrence.
func (s *RuleService) List(ctx context.Context, userID string) ([]core.RecurringRule, error) {
	rules, err := s.rules.ListRules(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rules, nil
}

// Create validates p and schedules the first occurrence on or after today.
func (s *RuleService) Create(ctx context.Context, p core.RuleParams) (core.RecurringRule, error) {
	p.ID = ""
	rule, err := s.build(p)
	if err != nil {
		return core.RecurringRule{}, err
	}
	if err := s.rules.SaveRule(ctx, rule); err != nil {
		return core.RecurringRule{}, fmt.Errorf("save rule: %w", err)
	}
	s.changed(ctx, log.OpCreate, rule)
	return rule, nil
}

// Update replaces the rule id owned by p.UserID and recomputes its next
// occurrence from the new start date and frequency.
func (s *RuleService) Update(ctx context.Context, id string, p core.RuleParams) (core.RecurringRule, error) {
	if _, err := s.rules.GetRule(ctx, p.UserID, id); err != nil {
		return core.RecurringRule{}, err
	}
	p.ID = id
	rule, err := s.build(p)
	if err != nil {
		return core.RecurringRule{}, err
	}
	if err := s.rules.SaveRule(ctx, rule); err != nil {
		return core.RecurringRule{}, fmt.Errorf("save rule: %w", err)
	}
	s.changed(ctx, log.OpUpdate, rule)
	return rule, nil
}

// Delete removes a rule owned by userID.
func (s *RuleService) Delete(ctx context.Context, userID, id string) error {
	rule, err := s.rules.GetRule(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.rules.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	s.changed(ctx, log.OpDelete, rule)
	return nil
}

func (s *RuleService) build(p core.RuleParams) (core.RecurringRule, error) {
	rule, err := core.NewRecurringRule(p)
	if err != nil {
		return core.RecurringRule{}, err
	}
	rule.NextOccurrence, err = CatchUp(rule.StartDate, rule.Frequency, core.DateOf(s.now()))
	if err != nil {
		return core.RecurringRule{}, err
	}
	return rule, nil
}

func (s *RuleService) changed(ctx context.Context, op string, rule core.RecurringRule) {
	slog.InfoContext(ctx, "Recurring rule changed",
		log.Audit(),
		log.FieldOperation, op,
		log.FieldRuleID, rule.ID,
		log.FieldUserID, rule.UserID,
		log.FieldNextOccurrence, rule.NextOccurrence.String())
	if err := s.publisher.Publish(ctx, events.ForRule(rule)); err != nil {
		slog.WarnContext(ctx, "Failed to publish event", log.FieldRuleID, rule.ID, log.FieldError, err)
	}
}
