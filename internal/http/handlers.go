package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"moneta/internal/log"
	"moneta/internal/middleware/trace"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

type readiness struct {
	Status  string        `json:"status"`
	Metrics trace.Metrics `json:"metrics"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	body := readiness{Status: "ready", Metrics: s.tracer.GetMetrics()}

	if s.deps.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Store.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			body.Status = "unavailable"
			NewJSONResponse().Status(http.StatusServiceUnavailable).Body(body).Write(w)
			return
		}
	}
	NewJSONResponse().Body(body).Write(w)
}

type jobResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Retired   int    `json:"retired"`
	Failed    int    `json:"failed"`
	Skipped   int    `json:"skipped"`
}

func (s *Server) handleTriggerJob(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Sweeper.ProcessDue(r.Context(), s.now())
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Recurring job triggered over HTTP",
		log.Audit(),
		log.FieldRequestID, trace.GetRequestID(r.Context()),
		"processed", result.Materialized,
		"retired", result.Retired,
		"failed", result.Failed)

	NewJSONResponse().Body(jobResponse{
		Success:   true,
		Message:   fmt.Sprintf("Processed %d recurring transactions", result.Materialized),
		Processed: result.Materialized,
		Retired:   result.Retired,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
	}).Write(w)
}

type logsResponse struct {
	Entries []log.Entry `json:"entries"`
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	entries := []log.Entry{}
	if s.deps.Ring != nil {
		entries = s.deps.Ring.Entries()
	}
	NewJSONResponse().Body(logsResponse{Entries: entries}).Write(w)
}
