// Package events defines the domain notifications emitted when the ledger or
// a recurring rule changes, and the transport-neutral ports used to move them.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"moneta/internal/core"
)

type Type string

const (
	EntryMaterialized Type = "entry_materialized"
	EntryRecorded     Type = "entry_recorded"
	EntryUpdated      Type = "entry_updated"
	EntryDeleted      Type = "entry_deleted"
	RuleChanged       Type = "rule_changed"
	RuleRetired       Type = "rule_retired"
)

// Event is a lightweight notification. Consumers re-read state from the store
// when they need more than the ids carried here.
type Event struct {
	Type    Type      `json:"type"`
	UserID  string    `json:"userId"`
	RuleID  string    `json:"ruleId,omitempty"`
	EntryID string    `json:"entryId,omitempty"`
	Date    core.Date `json:"date"`
	Kind    core.Kind `json:"kind,omitempty"`
	// AmountCents is informational; zero is valid on the wire.
	AmountCents int64     `json:"amountCents"`
	Timestamp   time.Time `json:"timestamp"`
}

// Materialized builds the event emitted after a rule produced entry.
func Materialized(rule core.RecurringRule, entry core.LedgerEntry) Event {
	return Event{
		Type:        EntryMaterialized,
		UserID:      rule.UserID,
		RuleID:      rule.ID,
		EntryID:     entry.ID,
		Date:        entry.Date,
		Kind:        entry.Kind,
		AmountCents: entry.Amount.Cents,
		Timestamp:   time.Now().UTC(),
	}
}

// Retired builds the event emitted when a rule with nothing left to emit is removed.
func Retired(rule core.RecurringRule) Event {
	return Event{
		Type:        RuleRetired,
		UserID:      rule.UserID,
		RuleID:      rule.ID,
		Date:        rule.EndDate,
		Kind:        rule.Kind,
		AmountCents: rule.Amount.Cents,
		Timestamp:   time.Now().UTC(),
	}
}

// ForEntry builds an entry_recorded, entry_updated or entry_deleted event.
func ForEntry(t Type, e core.LedgerEntry) Event {
	return Event{
		Type:        t,
		UserID:      e.UserID,
		EntryID:     e.ID,
		Date:        e.Date,
		Kind:        e.Kind,
		AmountCents: e.Amount.Cents,
		Timestamp:   time.Now().UTC(),
	}
}

// ForRule builds a rule_changed event.
func ForRule(rule core.RecurringRule) Event {
	return Event{
		Type:        RuleChanged,
		UserID:      rule.UserID,
		RuleID:      rule.ID,
		Date:        rule.NextOccurrence,
		Kind:        rule.Kind,
		AmountCents: rule.Amount.Cents,
		Timestamp:   time.Now().UTC(),
	}
}

// Key is used as routing or partition key so that a user's events stay ordered.
func (e Event) Key() string {
	return e.UserID
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return e, nil
}

type (
	// Publisher delivers events to a broker. Implementations must be safe for
	// concurrent use.
	Publisher interface {
		Publish(ctx context.Context, e Event) error
		Close() error
	}

	// Handler processes one event. Returning an error asks the transport to
	// redeliver it.
	Handler func(ctx context.Context, e Event) error

	// Subscriber consumes events until ctx is cancelled.
	Subscriber interface {
		Subscribe(ctx context.Context, h Handler) error
		Close() error
	}
)

// Discard is the publisher used when no broker is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }
func (Discard) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// PublisherFunc adapts a Handler-shaped function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }
func (f PublisherFunc) Close() error                               { return nil }

// Tee publishes to every publisher in order and joins their errors.
func Tee(publishers ...Publisher) Publisher {
	return tee(publishers)
}

type tee []Publisher

func (t tee) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range t {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t tee) Close() error {
	var errs []error
	for _, p := range t {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
