package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

type budgetRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	CategoryIDs []string        `json:"category_ids"`
}

type budgetResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	CategoryIDs []string        `json:"category_ids"`
}

func (req budgetRequest) toBudget(userID string) (core.Budget, error) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		return core.Budget{}, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return core.Budget{}, err
	}
	return core.Budget{
		UserID:      userID,
		Amount:      req.Amount,
		StartDate:   start,
		EndDate:     end,
		CategoryIDs: req.CategoryIDs,
	}, nil
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:          b.ID,
		UserID:      b.UserID,
		Amount:      b.Amount,
		StartDate:   b.StartDate.Format("2006-01-02"),
		EndDate:     b.EndDate.Format("2006-01-02"),
		CategoryIDs: b.CategoryIDs,
	}
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := req.toBudget(userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.tracker.CreateBudget(r.Context(), b)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusCreated, toBudgetResponse(created))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	budgets, err := s.tracker.Budgets(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req budgetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := req.toBudget(userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b.ID = r.PathValue("id")

	if err := s.tracker.UpdateBudget(r.Context(), b); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.tracker.DeleteBudget(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	asOf := time.Now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		if asOf, err = parseDate(v); err != nil {
			writeError(w, r, err)
			return
		}
	}

	ratio, err := s.tracker.ProgressByID(r.Context(), userID, r.PathValue("id"), asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]decimal.Decimal{"progress": ratio})
}
