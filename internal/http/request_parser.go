// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// month path segments, month query parameters and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moneta/internal/core"
)

const maxBodyBytes = 1 << 20

// errMalformed marks input that could not be read at all, as opposed to
// input that was read but broke a domain rule.
var errMalformed = errors.New("malformed request")

// ParseMonthPath reads the {year} and {month} path segments.
func ParseMonthPath(r *http.Request) (core.YearMonth, error) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return core.YearMonth{}, fmt.Errorf("%w: year must be a number", errMalformed)
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil {
		return core.YearMonth{}, fmt.Errorf("%w: month must be a number", errMalformed)
	}
	return core.NewYearMonth(year, month)
}

// ParseComparison returns the compareYear/compareMonth month, or nil unless
// both parameters parse to a valid month.
func ParseComparison(query url.Values) *core.YearMonth {
	year, err := strconv.Atoi(strings.TrimSpace(query.Get("compareYear")))
	if err != nil {
		return nil
	}
	month, err := strconv.Atoi(strings.TrimSpace(query.Get("compareMonth")))
	if err != nil {
		return nil
	}
	ym, err := core.NewYearMonth(year, month)
	if err != nil {
		return nil
	}
	return &ym
}

// ParseMonthParams extracts year and month from query parameters, using the
// month of now for missing or non-numeric values.
func ParseMonthParams(query url.Values, now time.Time) (core.YearMonth, error) {
	year, month := now.Year(), int(now.Month())

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}

	return core.NewYearMonth(year, month)
}

// DecodeJSON reads a single JSON document into v. Amounts and dates that fail
// to parse surface as validation errors; everything else is malformed.
func DecodeJSON(r *http.Request, v any) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)

	if err := dec.Decode(v); err != nil {
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			return &core.ValidationError{Field: "amount", Err: err}
		case errors.Is(err, core.ErrInvalidDate):
			return &core.ValidationError{Field: "date", Err: err}
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: empty body", errMalformed)
		}
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errMalformed)
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
