// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring rule frequencies.
// Each frequency (daily, weekly, monthly, yearly) has its own stepper that
// moves a date forward by exactly one period.

package services

import (
	"fmt"
	"time"

	"moneta/internal/core"
)

// FrequencyStepper is the strategy interface for advancing a recurring date.
type FrequencyStepper interface {
	// Step returns the date one period after d.
	Step(d core.Date) core.Date
}

// DailyStepper implements FrequencyStepper for daily rules.
type DailyStepper struct{}

func (DailyStepper) Step(d core.Date) core.Date {
	return core.Date{Time: d.AddDate(0, 0, 1)}
}

// WeeklyStepper implements FrequencyStepper for weekly rules.
type WeeklyStepper struct{}

func (WeeklyStepper) Step(d core.Date) core.Date {
	return core.Date{Time: d.AddDate(0, 0, 7)}
}

// MonthlyStepper implements FrequencyStepper for monthly rules.
// Days past the end of the target month clamp to its last day, so
// Jan 31 steps to Feb 29 in a leap year.
type MonthlyStepper struct{}

func (MonthlyStepper) Step(d core.Date) core.Date {
	return addMonthsClamped(d, 1)
}

// YearlyStepper implements FrequencyStepper for yearly rules.
// Feb 29 steps to Feb 28 in a common year.
type YearlyStepper struct{}

func (YearlyStepper) Step(d core.Date) core.Date {
	return addMonthsClamped(d, 12)
}

func addMonthsClamped(d core.Date, months int) core.Date {
	year, month, day := d.Date()
	target := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := core.DaysIn(target.Year(), target.Month()); day > last {
		day = last
	}
	return core.NewDate(target.Year(), int(target.Month()), day)
}

// frequencySteppers maps frequencies to their steppers.
var frequencySteppers = map[core.Frequency]FrequencyStepper{
	core.Daily:   DailyStepper{},
	core.Weekly:  WeeklyStepper{},
	core.Monthly: MonthlyStepper{},
	core.Yearly:  YearlyStepper{},
}

// GetStepper returns the stepper for a frequency.
// Unknown frequencies yield an error wrapping core.ErrInvalidFrequency.
func GetStepper(frequency core.Frequency) (FrequencyStepper, error) {
	stepper, ok := frequencySteppers[frequency]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, frequency)
	}
	return stepper, nil
}

// RegisterStepper installs a stepper for a frequency. It is not safe to call
// concurrently with projections and is meant for process setup.
func RegisterStepper(frequency core.Frequency, stepper FrequencyStepper) {
	frequencySteppers[frequency] = stepper
}
