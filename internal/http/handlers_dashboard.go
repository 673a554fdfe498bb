package http

import (
	"fmt"
	"net/http"

	"moneta/internal/core"
)

const maxBreakdownMonths = 24

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthPath(r)
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	summary, err := s.deps.Dashboard.Summarize(r.Context(), userID(r), month, ParseComparison(r.URL.Query()))
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(summary).Write(w)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthPath(r)
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	forecast, err := s.deps.Dashboard.Forecast(r.Context(), userID(r), month)
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(forecast).Write(w)
}

type breakdownRequest struct {
	Months []string `json:"months"`
}

func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	var req breakdownRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	months, err := req.parse()
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	out, err := s.deps.Dashboard.Breakdown(r.Context(), userID(r), months)
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(out).Write(w)
}

func (req breakdownRequest) parse() ([]core.YearMonth, error) {
	if len(req.Months) == 0 {
		return nil, &core.ValidationError{Field: "months", Err: fmt.Errorf("at least one month is required")}
	}
	if len(req.Months) > maxBreakdownMonths {
		return nil, &core.ValidationError{Field: "months", Err: fmt.Errorf("at most %d months per request", maxBreakdownMonths)}
	}
	months := make([]core.YearMonth, 0, len(req.Months))
	for _, raw := range req.Months {
		m, err := core.ParseYearMonth(raw)
		if err != nil {
			return nil, err
		}
		months = append(months, m)
	}
	return months, nil
}
