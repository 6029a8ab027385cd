package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
)

type categoryExpenseResponse struct {
	CategoryID string          `json:"category_id,omitempty"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

type monthlyReportResponse struct {
	Income  map[string]decimal.Decimal `json:"income"`
	Expense map[string]decimal.Decimal `json:"expense"`
}

type categoryBudgetProgressResponse struct {
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Budget     decimal.Decimal `json:"budget"`
	Spent      decimal.Decimal `json:"spent"`
	Ratio      decimal.Decimal `json:"ratio"`
}

// serveCachedReport returns the cached response body for this user and query
// when present, otherwise builds, caches, and serves it.
func (s *Server) serveCachedReport(w http.ResponseWriter, r *http.Request, userID string, build func() (any, error)) {
	key := s.reportKey(userID, r)
	if body, ok := s.reportCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Report cache hit", "url", r.URL.Path, "user_id", userID)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	v, err := build()
	if err != nil {
		writeError(w, r, err)
		return
	}
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reportCache.Set(key, body)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleCategoryExpenses(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.serveCachedReport(w, r, userID, func() (any, error) {
		rows, err := s.reports.CategoryExpenses(r.Context(), userID, start, end)
		if err != nil {
			return nil, err
		}
		out := make([]categoryExpenseResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, categoryExpenseResponse(row))
		}
		return out, nil
	})
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.serveCachedReport(w, r, userID, func() (any, error) {
		series, err := s.reports.MonthlyIncomeAndExpenses(r.Context(), userID, start, end)
		if err != nil {
			return nil, err
		}
		return monthlyReportResponse{Income: series.Income, Expense: series.Expense}, nil
	})
}

func (s *Server) handleMostSpent(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	top, ok, err := s.reports.MostSpentCategory(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, r, http.StatusOK, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, categoryExpenseResponse(top))
}

func (s *Server) handleCategoryBudgetProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	start, end, err := dateRange(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.serveCachedReport(w, r, userID, func() (any, error) {
		rows, err := s.reports.CategoryBudgetProgress(r.Context(), userID, start, end)
		if err != nil {
			return nil, err
		}
		out := make([]categoryBudgetProgressResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, categoryBudgetProgressResponse(row))
		}
		return out, nil
	})
}
