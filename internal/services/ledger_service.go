package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"moneta/internal/core"
	"moneta/internal/events"
	"moneta/internal/log"
	"moneta/internal/store"
)

var (
	ErrEmptyBulk    = errors.New("at least one entry is required")
	ErrBulkTooLarge = errors.New("too many entries")
)

// LedgerService records manual ledger entries and categories.
type LedgerService struct {
	ledger     store.LedgerStore
	categories store.CategoryStore
	publisher  events.Publisher
}

func NewLedgerService(ledger store.LedgerStore, categories store.CategoryStore, publisher events.Publisher) *LedgerService {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &LedgerService{ledger: ledger, categories: categories, publisher: publisher}
}

// Record validates and stores a new entry. The store is written first; a
// failed publish is logged and does not fail the request.
func (s *LedgerService) Record(ctx context.Context, p core.EntryParams) (core.LedgerEntry, error) {
	p.ID = ""
	entry, err := core.NewLedgerEntry(p)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	if _, err := s.ledger.InsertEntry(ctx, entry); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("save entry: %w", err)
	}
	s.publish(ctx, events.ForEntry(events.EntryRecorded, entry))
	return entry, nil
}

// MaxBulkEntries bounds a single RecordBulk call.
const MaxBulkEntries = 500

// RecordBulk validates every entry before storing any of them. Validation
// errors name the offending position.
func (s *LedgerService) RecordBulk(ctx context.Context, userID string, params []core.EntryParams) ([]core.LedgerEntry, error) {
	if len(params) == 0 {
		return nil, &core.ValidationError{Field: "entries", Err: ErrEmptyBulk}
	}
	if len(params) > MaxBulkEntries {
		return nil, &core.ValidationError{Field: "entries", Err: fmt.Errorf("%w: at most %d", ErrBulkTooLarge, MaxBulkEntries)}
	}

	entries := make([]core.LedgerEntry, 0, len(params))
	for i, p := range params {
		p.ID = ""
		p.UserID = userID
		entry, err := core.NewLedgerEntry(p)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}

	if err := s.ledger.InsertEntries(ctx, entries); err != nil {
		return nil, fmt.Errorf("save entries: %w", err)
	}
	slog.InfoContext(ctx, "Recorded ledger entries in bulk",
		log.FieldUserID, userID,
		"count", len(entries))
	for _, e := range entries {
		s.publish(ctx, events.ForEntry(events.EntryRecorded, e))
	}
	return entries, nil
}

// Get returns an entry owned by userID.
func (s *LedgerService) Get(ctx context.Context, userID, id string) (core.LedgerEntry, error) {
	return s.ledger.GetEntry(ctx, userID, id)
}

// Update replaces the editable fields of an entry owned by p.UserID. The
// result is validated like a new entry.
func (s *LedgerService) Update(ctx context.Context, id string, p core.EntryParams) (core.LedgerEntry, error) {
	if _, err := s.ledger.GetEntry(ctx, p.UserID, id); err != nil {
		return core.LedgerEntry{}, err
	}
	p.ID = id
	entry, err := core.NewLedgerEntry(p)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	if err := s.ledger.UpdateEntry(ctx, entry); err != nil {
		return core.LedgerEntry{}, fmt.Errorf("update entry: %w", err)
	}
	slog.InfoContext(ctx, "Updated ledger entry",
		log.FieldEntryID, id,
		log.FieldUserID, p.UserID)
	s.publish(ctx, events.ForEntry(events.EntryUpdated, entry))
	return entry, nil
}

// List returns the user's entries for month, newest first.
func (s *LedgerService) List(ctx context.Context, userID string, month core.YearMonth) ([]core.LedgerEntry, error) {
	entries, err := s.ledger.ListEntries(ctx, userID, month.Range())
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Delete removes an entry owned by userID.
func (s *LedgerService) Delete(ctx context.Context, userID, id string) error {
	entry, err := s.ledger.GetEntry(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.ledger.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	slog.InfoContext(ctx, "Deleted ledger entry",
		log.Audit(),
		log.FieldEntryID, id,
		log.FieldUserID, userID)
	s.publish(ctx, events.ForEntry(events.EntryDeleted, entry))
	return nil
}

func (s *LedgerService) Categories(ctx context.Context, userID string) ([]core.Category, error) {
	list, err := s.categories.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return list, nil
}

func (s *LedgerService) AddCategory(ctx context.Context, userID, name, color string) (core.Category, error) {
	c, err := core.NewCategory(userID, name, color)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.categories.SaveCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	return c, nil
}

func (s *LedgerService) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"type", e.Type,
			log.FieldEntryID, e.EntryID,
			log.FieldError, err)
	}
}
