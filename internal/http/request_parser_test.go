package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"moneta/internal/core"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		query   string
		want    core.YearMonth
		wantErr bool
	}{
		{"defaults to now", "", core.YearMonth{Year: 2024, Month: 7}, false},
		{"explicit", "year=2023&month=2", core.YearMonth{Year: 2023, Month: 2}, false},
		{"non numeric falls back", "year=abc&month=x", core.YearMonth{Year: 2024, Month: 7}, false},
		{"whitespace", "year=%202022%20&month=%2011", core.YearMonth{Year: 2022, Month: 11}, false},
		{"month out of range", "month=13", core.YearMonth{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := ParseMonthParams(q, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMonthParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("ParseMonthParams() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseComparison(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"compareYear=2024&compareMonth=2", "2024-02"},
		{"compareYear=2024", ""},
		{"compareMonth=2", ""},
		{"compareYear=2024&compareMonth=13", ""},
		{"compareYear=x&compareMonth=2", ""},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got := ParseComparison(q)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("ParseComparison() = %v, want nil", got)
			case tt.want != "" && (got == nil || got.String() != tt.want):
				t.Errorf("ParseComparison() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestParseMonthPath(t *testing.T) {
	tests := []struct {
		year, month string
		wantErr     error
	}{
		{"2024", "2", nil},
		{"2024", "0", core.ErrValidation},
		{"twenty", "2", errMalformed},
		{"2024", "", errMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.year+"/"+tt.month, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("year", tt.year)
			req.SetPathValue("month", tt.month)
			_, err := ParseMonthPath(req)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ParseMonthPath() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseMonthPath() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"valid", `{"amount":"1.50","date":"2024-01-02"}`, nil},
		{"bad amount", `{"amount":"abc"}`, core.ErrValidation},
		{"bad date", `{"date":"02/01/2024"}`, core.ErrValidation},
		{"syntax", `{"amount":`, errMalformed},
		{"trailing", `{} {}`, errMalformed},
		{"empty", ``, errMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				Amount core.Money `json:"amount"`
				Date   core.Date  `json:"date"`
			}
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := DecodeJSON(req, &v)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("DecodeJSON() error = %v", err)
				}
				if v.Amount.Cents != 150 || v.Date.String() != "2024-01-02" {
					t.Errorf("DecodeJSON() = %+v", v)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DecodeJSON() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{"a\x00b\x07c", "abc"},
		{"line\nbreak\ttab", "line\nbreak\ttab"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
