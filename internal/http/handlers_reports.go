package http

import (
	"net/http"

	"saldo/internal/core"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ref, err := parseRefDate(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.reports.Dashboard(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleTotalBalance(w http.ResponseWriter, r *http.Request) {
	b, err := s.ledger.Balances().TotalBalance(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	ref, err := parseRefDate(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.reports.MonthlyIncomeExpense(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	ref, err := parseRefDate(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.reports.CategoryBreakdown(r.Context(), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleSeriesReport(w http.ResponseWriter, r *http.Request) {
	ref, err := parseRefDate(r, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	months, err := parseMonths(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := s.reports.Series(r.Context(), months, ref)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type categoryColor struct {
	Category core.Category `json:"category"`
	Label    string        `json:"label"`
	Color    string        `json:"color"`
}

func (s *Server) handleCategoryColors(w http.ResponseWriter, r *http.Request) {
	colors := s.reports.CategoryColors(r.Context())
	out := make([]categoryColor, 0, len(colors))
	for _, c := range core.Categories() {
		out = append(out, categoryColor{Category: c, Label: c.Label(), Color: colors[c]})
	}
	writeJSON(w, http.StatusOK, newList(out, false))
}

func (s *Server) handleSetCategoryColor(w http.ResponseWriter, r *http.Request) {
	var req categoryColorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.ledger.SetCategoryColor(r.Context(), r.PathValue("category"), req.Color)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categoryColor{Category: c, Label: c.Label(), Color: req.Color})
}
