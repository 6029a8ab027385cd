package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

type createAccountRequest struct {
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Date           string          `json:"date"`
}

type accountResponse struct {
	ID      string          `json:"id"`
	OwnerID string          `json:"owner_id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{ID: a.ID, OwnerID: a.OwnerID, Name: a.Name, Balance: a.Balance}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req createAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	at := time.Now()
	if req.Date != "" {
		if at, err = parseDate(req.Date); err != nil {
			writeError(w, r, err)
			return
		}
	}

	account, err := s.service.Ledger().CreateAccount(r.Context(), userID, req.Name, req.OpeningBalance, at)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReports(userID)
	writeJSON(w, r, http.StatusCreated, toAccountResponse(account))
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	accounts, err := s.service.Ledger().Accounts(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleOverallBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := actingUser(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	total, err := s.service.Ledger().OverallBalance(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]decimal.Decimal{"balance": total})
}
