package http

import (
	"net/http"

	"moneta/internal/core"
)

type entryRequest struct {
	Type        core.Kind  `json:"type"`
	Description string     `json:"description"`
	Amount      core.Money `json:"amount"`
	Date        core.Date  `json:"date"`
	Category    string     `json:"category"`
	PaymentType string     `json:"paymentType"`
	Notes       string     `json:"notes"`
}

func (req entryRequest) params(userID string) core.EntryParams {
	return core.EntryParams{
		UserID:          userID,
		Kind:            req.Type,
		Description:     sanitizeInput(req.Description),
		Amount:          req.Amount,
		Date:            req.Date,
		CategoryID:      sanitizeInput(req.Category),
		PaymentMethodID: sanitizeInput(req.PaymentType),
		Notes:           sanitizeInput(req.Notes),
	}
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	entries, err := s.deps.Ledger.List(r.Context(), userID(r), month)
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	if entries == nil {
		entries = []core.LedgerEntry{}
	}
	NewJSONResponse().Body(entries).Write(w)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	entry, err := s.deps.Ledger.Record(r.Context(), req.params(userID(r)))
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(entry).Write(w)
}

func (s *Server) handleCreateEntries(w http.ResponseWriter, r *http.Request) {
	var reqs []entryRequest
	if err := DecodeJSON(r, &reqs); err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	uid := userID(r)
	params := make([]core.EntryParams, len(reqs))
	for i, req := range reqs {
		params[i] = req.params(uid)
	}

	entries, err := s.deps.Ledger.RecordBulk(r.Context(), uid, params)
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(entries).Write(w)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.deps.Ledger.Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(entry).Write(w)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	entry, err := s.deps.Ledger.Update(r.Context(), r.PathValue("id"), req.params(userID(r)))
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Body(entry).Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ledger.Delete(r.Context(), userID(r), r.PathValue("id")); err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Ledger.Categories(r.Context(), userID(r))
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	if list == nil {
		list = []core.Category{}
	}
	NewJSONResponse().Body(list).Write(w)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := DecodeJSON(r, &req); err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}

	c, err := s.deps.Ledger.AddCategory(r.Context(), userID(r), sanitizeInput(req.Name), sanitizeInput(req.Color))
	if err != nil {
		ErrorFromDomain(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}
