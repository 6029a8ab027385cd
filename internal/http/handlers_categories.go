package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

type createCategoryRequest struct {
	Name   string           `json:"name"`
	Color  string           `json:"color"`
	Kind   string           `json:"kind"`
	Budget *decimal.Decimal `json:"budget"`
}

type categoryResponse struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Color   string           `json:"color,omitempty"`
	Kind    string           `json:"kind"`
	OwnerID string           `json:"owner_id,omitempty"`
	Budget  *decimal.Decimal `json:"budget,omitempty"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:      c.ID,
		Name:    c.Name,
		Color:   c.Color,
		Kind:    string(c.Kind),
		OwnerID: c.OwnerID,
		Budget:  c.Budget,
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c := core.Category{
		Name:   req.Name,
		Color:  req.Color,
		Kind:   core.CategoryKind(req.Kind),
		Budget: req.Budget,
	}
	if c.Kind == "" {
		c.Kind = core.KindCustom
	}
	if c.Kind == core.KindCustom {
		c.OwnerID = userID
	}

	created, err := s.service.Ledger().CreateCategory(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusCreated, toCategoryResponse(created))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cats, err := s.service.Ledger().Categories(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	reassignTo := r.URL.Query().Get("reassign_to")
	if err := s.service.Ledger().DeleteCategory(r.Context(), userID, r.PathValue("id"), reassignTo); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusNoContent, nil)
}

type setCategoryBudgetRequest struct {
	Budget *decimal.Decimal `json:"budget"`
}

func (s *Server) handleSetCategoryBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req setCategoryBudgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.service.Ledger().SetCategoryBudget(r.Context(), userID, r.PathValue("id"), req.Budget); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusOK, nil)
}
