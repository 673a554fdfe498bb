package core

import (
	"errors"
	"strings"
	"testing"
)

func validRuleParams() RuleParams {
	return RuleParams{
		UserID:      "u1",
		Kind:        Expense,
		Description: "Rent",
		Amount:      Money{Cents: 10000},
		CategoryID:  "housing",
		Frequency:   Monthly,
		StartDate:   NewDate(2024, 1, 15),
	}
}

func TestNewRecurringRule(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RuleParams)
		wantErr error
		field   string
	}{
		{name: "valid expense", mutate: func(p *RuleParams) {}},
		{name: "valid income without category", mutate: func(p *RuleParams) {
			p.Kind = Income
			p.CategoryID = ""
		}},
		{name: "missing owner", mutate: func(p *RuleParams) { p.UserID = " " }, wantErr: ErrMissingOwner, field: "user"},
		{name: "bad kind", mutate: func(p *RuleParams) { p.Kind = "transfer" }, wantErr: ErrInvalidKind, field: "type"},
		{name: "empty description", mutate: func(p *RuleParams) { p.Description = "  " }, wantErr: ErrEmptyDescription, field: "description"},
		{name: "long description", mutate: func(p *RuleParams) { p.Description = strings.Repeat("a", 201) }, wantErr: ErrDescriptionLength, field: "description"},
		{name: "zero amount", mutate: func(p *RuleParams) { p.Amount = Money{} }, wantErr: ErrInvalidAmount, field: "amount"},
		{name: "negative amount", mutate: func(p *RuleParams) { p.Amount = Money{Cents: -5} }, wantErr: ErrInvalidAmount, field: "amount"},
		{name: "expense without category", mutate: func(p *RuleParams) { p.CategoryID = "" }, wantErr: ErrMissingCategory, field: "category"},
		{name: "unknown frequency", mutate: func(p *RuleParams) { p.Frequency = "hourly" }, wantErr: ErrInvalidFrequency, field: "frequency"},
		{name: "missing start", mutate: func(p *RuleParams) { p.StartDate = Date{} }, wantErr: ErrMissingDate, field: "startDate"},
		{name: "end before start", mutate: func(p *RuleParams) { p.EndDate = NewDate(2024, 1, 14) }, wantErr: ErrEndBeforeStart, field: "endDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validRuleParams()
			tt.mutate(&p)
			rule, err := NewRecurringRule(p)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NewRecurringRule() error = %v", err)
				}
				if rule.ID == "" {
					t.Error("NewRecurringRule() did not assign an id")
				}
				if !rule.NextOccurrence.Equal(rule.StartDate.Time) {
					t.Errorf("NextOccurrence = %s, want %s", rule.NextOccurrence, rule.StartDate)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NewRecurringRule() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error %v does not match ErrValidation", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("ValidationError field = %v, want %q", ve, tt.field)
			}
		})
	}
}

func TestNewRecurringRule_IncomeDropsCategory(t *testing.T) {
	p := validRuleParams()
	p.Kind = Income
	rule, err := NewRecurringRule(p)
	if err != nil {
		t.Fatalf("NewRecurringRule() error = %v", err)
	}
	if rule.CategoryID != "" {
		t.Errorf("CategoryID = %q, want empty for income", rule.CategoryID)
	}
}

func TestNewLedgerEntry(t *testing.T) {
	good := EntryParams{
		UserID:      "u1",
		Kind:        Expense,
		Description: " Groceries ",
		Amount:      Money{Cents: 2550},
		Date:        NewDate(2024, 3, 2),
		CategoryID:  "food",
	}
	entry, err := NewLedgerEntry(good)
	if err != nil {
		t.Fatalf("NewLedgerEntry() error = %v", err)
	}
	if entry.Description != "Groceries" {
		t.Errorf("Description = %q, want trimmed", entry.Description)
	}

	bads := []func(*EntryParams){
		func(p *EntryParams) { p.Date = Date{} },
		func(p *EntryParams) { p.CategoryID = "" },
		func(p *EntryParams) { p.Amount = Money{} },
		func(p *EntryParams) { p.Kind = "" },
	}
	for i, mutate := range bads {
		p := good
		mutate(&p)
		if _, err := NewLedgerEntry(p); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: error = %v, want validation error", i, err)
		}
	}
}

func TestOccurrenceID_Deterministic(t *testing.T) {
	a := OccurrenceID("rule-1", NewDate(2024, 2, 15))
	b := OccurrenceID("rule-1", NewDate(2024, 2, 15))
	c := OccurrenceID("rule-1", NewDate(2024, 3, 15))
	d := OccurrenceID("rule-2", NewDate(2024, 2, 15))
	if a != b {
		t.Errorf("OccurrenceID not stable: %s != %s", a, b)
	}
	if a == c || a == d {
		t.Errorf("OccurrenceID collided: %s %s %s", a, c, d)
	}
}

func TestRecurringRule_Materialize(t *testing.T) {
	rule, err := NewRecurringRule(validRuleParams())
	if err != nil {
		t.Fatal(err)
	}
	rule.NextOccurrence = NewDate(2024, 2, 15)
	entry, err := rule.Materialize()
	if err != nil {
		t.Fatalf("Materialize() error = %v", err)
	}
	if entry.ID != OccurrenceID(rule.ID, rule.NextOccurrence) {
		t.Errorf("entry id = %s, want occurrence id", entry.ID)
	}
	if entry.Date.String() != "2024-02-15" {
		t.Errorf("entry date = %s, want 2024-02-15", entry.Date)
	}
	if entry.Notes != "auto-generated from recurring rule: Rent" {
		t.Errorf("entry notes = %q", entry.Notes)
	}
	if entry.CategoryID != "housing" || entry.Amount.Cents != 10000 || entry.Kind != Expense {
		t.Errorf("entry does not mirror rule: %+v", entry)
	}
}

func TestNewCategory(t *testing.T) {
	c, err := NewCategory("u1", " Food ", "#ff0000")
	if err != nil {
		t.Fatalf("NewCategory() error = %v", err)
	}
	if c.Name != "Food" || c.ID == "" {
		t.Errorf("NewCategory() = %+v", c)
	}
	if _, err := NewCategory("u1", "", ""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("NewCategory(empty) error = %v, want ErrEmptyName", err)
	}
}
