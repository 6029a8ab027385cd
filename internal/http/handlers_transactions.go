package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

type transactionRequest struct {
	Description        string          `json:"description"`
	Amount             decimal.Decimal `json:"amount"`
	Date               string          `json:"date"`
	Type               string          `json:"type"`
	AccountID          string          `json:"account_id"`
	CategoryID         string          `json:"category_id"`
	Recurring          bool            `json:"recurring"`
	RecurrenceInterval string          `json:"recurrence_interval"`
	RecurrenceEndDate  string          `json:"recurrence_end_date"`
}

type transactionResponse struct {
	ID                 string          `json:"id"`
	Description        string          `json:"description"`
	Amount             decimal.Decimal `json:"amount"`
	Date               string          `json:"date"`
	Type               string          `json:"type"`
	AccountID          string          `json:"account_id"`
	CategoryID         string          `json:"category_id,omitempty"`
	Recurring          bool            `json:"recurring,omitempty"`
	RecurrenceInterval string          `json:"recurrence_interval,omitempty"`
	RecurrenceEndDate  string          `json:"recurrence_end_date,omitempty"`
	SourceRecurringID  string          `json:"source_recurring_id,omitempty"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		Description:        req.Description,
		Amount:             req.Amount,
		Date:               date,
		Type:               core.TxType(req.Type),
		AccountID:          req.AccountID,
		CategoryID:         req.CategoryID,
		Recurring:          req.Recurring,
		RecurrenceInterval: core.RecurrenceInterval(req.RecurrenceInterval),
	}
	if req.RecurrenceEndDate != "" {
		end, err := parseDate(req.RecurrenceEndDate)
		if err != nil {
			return core.Transaction{}, err
		}
		t.RecurrenceEndDate = end
	}
	return t, nil
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:                 t.ID,
		Description:        t.Description,
		Amount:             t.Amount,
		Date:               t.Date.Format("2006-01-02"),
		Type:               string(t.Type),
		AccountID:          t.AccountID,
		CategoryID:         t.CategoryID,
		Recurring:          t.Recurring,
		RecurrenceInterval: string(t.RecurrenceInterval),
		SourceRecurringID:  t.SourceRecurringID,
	}
	if !t.RecurrenceEndDate.IsZero() {
		resp.RecurrenceEndDate = t.RecurrenceEndDate.Format("2006-01-02")
	}
	return resp
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.service.CreateTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
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

	txs, err := s.service.ListTransactions(r.Context(), userID, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, t := range txs {
		out = append(out, toTransactionResponse(t))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req transactionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}
	t.ID = r.PathValue("id")

	if err := s.service.UpdateTransaction(r.Context(), userID, t); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusOK, toTransactionResponse(t))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.service.DeleteTransaction(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleConvertTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.service.ConvertRecurringToRegular(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusOK, nil)
}

type transferRequest struct {
	FromAccountID string          `json:"from_account_id"`
	ToAccountID   string          `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	date := time.Now()
	if req.Date != "" {
		if date, err = parseDate(req.Date); err != nil {
			writeError(w, r, err)
			return
		}
	}

	debit, credit, err := s.service.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, req.Amount, date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusCreated, map[string]transactionResponse{
		"debit":  toTransactionResponse(debit),
		"credit": toTransactionResponse(credit),
	})
}
