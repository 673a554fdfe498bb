package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const maxDescriptionLength = 200

type (
	Kind      string
	Frequency string

	Category struct {
		ID     string `json:"id"`
		UserID string `json:"-"`
		Name   string `json:"name"`
		Color  string `json:"color"`
	}

	// RecurringRule is a user's template for a repeating income or expense.
	// EndDate is optional; the zero Date means the rule never ends.
	RecurringRule struct {
		ID              string    `json:"id"`
		UserID          string    `json:"-"`
		Kind            Kind      `json:"type"`
		Description     string    `json:"description"`
		Amount          Money     `json:"amount"`
		CategoryID      string    `json:"category,omitempty"`
		PaymentMethodID string    `json:"paymentType,omitempty"`
		Frequency       Frequency `json:"frequency"`
		StartDate       Date      `json:"startDate"`
		EndDate         Date      `json:"endDate"`
		NextOccurrence  Date      `json:"nextOccurrenceDate"`
		Notes           string    `json:"notes,omitempty"`
	}

	// LedgerEntry is a realized transaction, typed by hand or materialized
	// from a RecurringRule.
	LedgerEntry struct {
		ID              string `json:"id"`
		UserID          string `json:"-"`
		Kind            Kind   `json:"type"`
		Description     string `json:"description"`
		Amount          Money  `json:"amount"`
		Date            Date   `json:"date"`
		CategoryID      string `json:"category,omitempty"`
		PaymentMethodID string `json:"paymentType,omitempty"`
		Notes           string `json:"notes,omitempty"`
	}

	// RuleParams carries caller supplied fields for NewRecurringRule.
	RuleParams struct {
		ID              string
		UserID          string
		Kind            Kind
		Description     string
		Amount          Money
		CategoryID      string
		PaymentMethodID string
		Frequency       Frequency
		StartDate       Date
		EndDate         Date
		Notes           string
	}

	// EntryParams carries caller supplied fields for NewLedgerEntry.
	EntryParams struct {
		ID              string
		UserID          string
		Kind            Kind
		Description     string
		Amount          Money
		Date            Date
		CategoryID      string
		PaymentMethodID string
		Notes           string
	}
)

var (
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")

	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrEmptyDescription  = errors.New("description is required")
	ErrDescriptionLength = fmt.Errorf("description too long (max %d characters)", maxDescriptionLength)
	ErrInvalidKind       = errors.New("type must be income or expense")
	ErrMissingCategory   = errors.New("category is required for expenses")
	ErrMissingOwner      = errors.New("owner is required")
	ErrMissingDate       = errors.New("date is required")
	ErrEndBeforeStart    = errors.New("end date is before start date")
	ErrEmptyName         = errors.New("name is required")
)

// ValidationError reports a caller supplied field that breaks a domain rule.
// It matches both ErrValidation and the specific cause with errors.Is.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func (k Kind) Valid() bool {
	return k == Income || k == Expense
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	default:
		return false
	}
}

// HasEndDate reports whether the rule is bounded.
func (r RecurringRule) HasEndDate() bool {
	return !r.EndDate.IsZero()
}

// NewRecurringRule validates p and returns a rule whose NextOccurrence
// equals its StartDate. Callers fast-forward NextOccurrence as needed.
func NewRecurringRule(p RuleParams) (RecurringRule, error) {
	description, err := validateCommon(p.UserID, p.Kind, p.Description, p.Amount)
	if err != nil {
		return RecurringRule{}, err
	}
	categoryID, err := categoryFor(p.Kind, p.CategoryID)
	if err != nil {
		return RecurringRule{}, err
	}
	if !p.Frequency.Valid() {
		return RecurringRule{}, invalid("frequency", fmt.Errorf("%w: %q", ErrInvalidFrequency, p.Frequency))
	}
	if p.StartDate.IsZero() {
		return RecurringRule{}, invalid("startDate", ErrMissingDate)
	}
	if !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate.Time) {
		return RecurringRule{}, invalid("endDate", ErrEndBeforeStart)
	}

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	return RecurringRule{
		ID:              id,
		UserID:          p.UserID,
		Kind:            p.Kind,
		Description:     description,
		Amount:          p.Amount,
		CategoryID:      categoryID,
		PaymentMethodID: strings.TrimSpace(p.PaymentMethodID),
		Frequency:       p.Frequency,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		NextOccurrence:  p.StartDate,
		Notes:           strings.TrimSpace(p.Notes),
	}, nil
}

// NewLedgerEntry validates p and returns the entry to persist.
func NewLedgerEntry(p EntryParams) (LedgerEntry, error) {
	description, err := validateCommon(p.UserID, p.Kind, p.Description, p.Amount)
	if err != nil {
		return LedgerEntry{}, err
	}
	categoryID, err := categoryFor(p.Kind, p.CategoryID)
	if err != nil {
		return LedgerEntry{}, err
	}
	if p.Date.IsZero() {
		return LedgerEntry{}, invalid("date", ErrMissingDate)
	}

	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	return LedgerEntry{
		ID:              id,
		UserID:          p.UserID,
		Kind:            p.Kind,
		Description:     description,
		Amount:          p.Amount,
		Date:            p.Date,
		CategoryID:      categoryID,
		PaymentMethodID: strings.TrimSpace(p.PaymentMethodID),
		Notes:           strings.TrimSpace(p.Notes),
	}, nil
}

// NewCategory validates a category name and assigns an id.
func NewCategory(userID, name, color string) (Category, error) {
	if strings.TrimSpace(userID) == "" {
		return Category{}, invalid("user", ErrMissingOwner)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, invalid("name", ErrEmptyName)
	}
	return Category{
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		Color:  strings.TrimSpace(color),
	}, nil
}

// occurrenceNamespace seeds the name based ids of materialized entries.
var occurrenceNamespace = uuid.MustParse("3f0c6f5e-8d1a-4f7b-9a52-6c2de1b7a940")

// OccurrenceID derives the ledger entry id for one occurrence of a rule.
// The same rule and date always map to the same id.
func OccurrenceID(ruleID string, date Date) string {
	return uuid.NewSHA1(occurrenceNamespace, []byte(ruleID+"|"+date.String())).String()
}

// MaterializedNote is the note attached to entries generated from a rule.
func MaterializedNote(description string) string {
	return "auto-generated from recurring rule: " + description
}

// Materialize builds the ledger entry for the rule's pending occurrence.
func (r RecurringRule) Materialize() (LedgerEntry, error) {
	return NewLedgerEntry(EntryParams{
		ID:              OccurrenceID(r.ID, r.NextOccurrence),
		UserID:          r.UserID,
		Kind:            r.Kind,
		Description:     r.Description,
		Amount:          r.Amount,
		Date:            r.NextOccurrence,
		CategoryID:      r.CategoryID,
		PaymentMethodID: r.PaymentMethodID,
		Notes:           MaterializedNote(r.Description),
	})
}

func validateCommon(userID string, kind Kind, description string, amount Money) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", invalid("user", ErrMissingOwner)
	}
	if !kind.Valid() {
		return "", invalid("type", ErrInvalidKind)
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return "", invalid("description", ErrEmptyDescription)
	}
	if len(description) > maxDescriptionLength {
		return "", invalid("description", ErrDescriptionLength)
	}
	if err := amount.Validate(); err != nil {
		return "", invalid("amount", err)
	}
	return description, nil
}

// categoryFor enforces that expenses carry a category and drops it for income.
func categoryFor(kind Kind, categoryID string) (string, error) {
	categoryID = strings.TrimSpace(categoryID)
	if kind == Income {
		return "", nil
	}
	if categoryID == "" {
		return "", invalid("category", ErrMissingCategory)
	}
	return categoryID, nil
}
