package services

import (
	"errors"
	"fmt"
	"iter"

	"moneta/internal/core"
)

// ErrStalledRecurrence is returned when a stepper fails to move a date
// forward, which would otherwise loop forever.
var ErrStalledRecurrence = errors.New("recurrence did not advance")

// Occurrence is one projected date of a rule.
type Occurrence struct {
	Date   core.Date
	Amount core.Money
}

// AdvanceOnce moves date forward by one period of frequency.
func AdvanceOnce(date core.Date, frequency core.Frequency) (core.Date, error) {
	stepper, err := GetStepper(frequency)
	if err != nil {
		return core.Date{}, err
	}
	return stepper.Step(date), nil
}

// CatchUp steps date forward until it is on or after notBefore and returns
// the first such date. A date already on or after notBefore is returned as is.
func CatchUp(date core.Date, frequency core.Frequency, notBefore core.Date) (core.Date, error) {
	stepper, err := GetStepper(frequency)
	if err != nil {
		return core.Date{}, err
	}
	return catchUp(stepper, date, notBefore)
}

func catchUp(stepper FrequencyStepper, date, notBefore core.Date) (core.Date, error) {
	for date.Before(notBefore.Time) {
		next := stepper.Step(date)
		if !next.After(date.Time) {
			return date, fmt.Errorf("%w: stuck at %s", ErrStalledRecurrence, date)
		}
		date = next
	}
	return date, nil
}

// EnumerateOccurrences returns every occurrence of rule inside window, both
// bounds inclusive, never past rule.EndDate. The sequence is lazy and can be
// ranged over more than once.
func EnumerateOccurrences(rule core.RecurringRule, window core.DateRange) (iter.Seq[Occurrence], error) {
	stepper, err := GetStepper(rule.Frequency)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	upper := window.To
	if rule.HasEndDate() && rule.EndDate.Before(upper.Time) {
		upper = rule.EndDate
	}
	if rule.StartDate.After(upper.Time) {
		return empty, nil
	}

	first, err := catchUp(stepper, rule.StartDate, window.From)
	if err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	return func(yield func(Occurrence) bool) {
		for d := first; !d.After(upper.Time); {
			if !yield(Occurrence{Date: d, Amount: rule.Amount}) {
				return
			}
			next := stepper.Step(d)
			if !next.After(d.Time) {
				return
			}
			d = next
		}
	}, nil
}

func empty(func(Occurrence) bool) {}
