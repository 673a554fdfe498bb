package http

import (
	"net/http"

	"moneta/internal/core"
)

type ruleRequest struct {
	Type        core.Kind      `json:"type"`
	Description string         `json:"description"`
	Amount      core.Money     `json:"amount"`
	Category    string         `json:"category"`
	PaymentType string         `json:"paymentType"`
	Frequency   core.Frequency `json:"frequency"`
	StartDate   core.Date      `json:"startDate"`
	EndDate     core.Date      `json:"endDate"`
	Notes       string         `json:"notes"`
}

func (req ruleRequest) params(userID string) core.RuleParams {
	return core.RuleParams{
		UserID:          userID,
		Kind:            req.Type,
		Description:     sanitizeInput(req.Description),
		Amount:          req.Amount,
		CategoryID:      sanitizeInput(req.Category),
		PaymentMethodID: sanitizeInput(req.PaymentType),
		Frequency:       req.Frequency,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		Notes:           sanitizeInput(req.Notes),
	}
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.deps.Rules.List(r.Context(), userID(r))
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	if rules == nil {
		rules = []core.RecurringRule{}
	}
	NewJSONResponse().Body(rules).Write(w)
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	rule, err := s.deps.Rules.Create(r.Context(), req.params(userID(r)))
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(rule).Write(w)
}

func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	rule, err := s.deps.Rules.Update(r.Context(), r.PathValue("id"), req.params(userID(r)))
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(rule).Write(w)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Rules.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
