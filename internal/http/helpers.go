package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tally/internal/core"
	"tally/internal/store"
)

// writeJSON encodes v with the given status. Encoding failures are logged,
// not surfaced: headers are already gone by then.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response", "error", err, "url", r.URL.Path)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps engine errors onto HTTP status codes: validation failures
// are 422, missing references are 404, everything else is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrReference), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "method", r.Method, "url", r.URL.Path)
	}
	writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

// decodeBody parses the JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.Validationf("invalid request body: %v", err)
	}
	return nil
}

// actingUser extracts the caller identity from the X-User-ID header.
func actingUser(r *http.Request) (string, error) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		return "", core.Validationf("missing X-User-ID header")
	}
	return userID, nil
}

// parseDate parses a YYYY-MM-DD query or body value.
func parseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, core.Validationf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

// dateRange reads optional from/to query parameters, defaulting to an
// all-time window.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

	if v := r.URL.Query().Get("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, core.Validationf("'to' date precedes 'from' date")
	}
	return start, end, nil
}
