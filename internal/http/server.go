// Package http exposes the ledger engine as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tally/internal/budget"
	"tally/internal/cache"
	"tally/internal/report"
	"tally/internal/services"
)

type Server struct {
	http.Server
	service     *services.LedgerService
	tracker     *budget.Tracker
	reports     *report.Aggregator
	rateLimiter *rateLimiter

	// Report responses are cached per user until the next mutation.
	reportCache *cache.Cache[[]byte]
	genMu       sync.Mutex
	generations map[string]uint64

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.LedgerService, tracker *budget.Tracker, reports *report.Aggregator) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		service:          svc,
		tracker:          tracker,
		reports:          reports,
		rateLimiter:      newRateLimiter(),
		reportCache:      cache.New[[]byte](200, 5*time.Minute),
		generations:      make(map[string]uint64),
		stopCacheCleanup: make(chan struct{}),
	}

	go s.startCacheCleanup()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /accounts", s.withMiddleware(s.handleCreateAccount))
	mux.HandleFunc("GET /accounts", s.withMiddleware(s.handleListAccounts))
	mux.HandleFunc("GET /accounts/balance", s.withMiddleware(s.handleOverallBalance))

	mux.HandleFunc("POST /transactions", s.withMiddleware(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions", s.withMiddleware(s.handleListTransactions))
	mux.HandleFunc("PUT /transactions/{id}", s.withMiddleware(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.withMiddleware(s.handleDeleteTransaction))
	mux.HandleFunc("POST /transactions/{id}/convert", s.withMiddleware(s.handleConvertTransaction))

	mux.HandleFunc("POST /transfers", s.withMiddleware(s.handleTransfer))

	mux.HandleFunc("POST /categories", s.withMiddleware(s.handleCreateCategory))
	mux.HandleFunc("GET /categories", s.withMiddleware(s.handleListCategories))
	mux.HandleFunc("DELETE /categories/{id}", s.withMiddleware(s.handleDeleteCategory))
	mux.HandleFunc("PUT /categories/{id}/budget", s.withMiddleware(s.handleSetCategoryBudget))

	mux.HandleFunc("POST /budgets", s.withMiddleware(s.handleCreateBudget))
	mux.HandleFunc("GET /budgets", s.withMiddleware(s.handleListBudgets))
	mux.HandleFunc("PUT /budgets/{id}", s.withMiddleware(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /budgets/{id}", s.withMiddleware(s.handleDeleteBudget))
	mux.HandleFunc("GET /budgets/{id}/progress", s.withMiddleware(s.handleBudgetProgress))

	mux.HandleFunc("GET /reports/category-expenses", s.withMiddleware(s.handleCategoryExpenses))
	mux.HandleFunc("GET /reports/monthly", s.withMiddleware(s.handleMonthlyReport))
	mux.HandleFunc("GET /reports/most-spent", s.withMiddleware(s.handleMostSpent))
	mux.HandleFunc("GET /reports/category-budget-progress", s.withMiddleware(s.handleCategoryBudgetProgress))

	return s
}

// startCacheCleanup runs periodic cleanup for the report cache.
func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.reportCache.PurgeExpired(); removed > 0 {
				slog.Debug("Report cache cleanup completed", "entries_removed", removed)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.stopCacheCleanup != nil {
			close(s.stopCacheCleanup)
		}
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// reportKey builds a cache key scoped to the user's current generation, so
// bumping the generation on mutation makes stale report entries unreachable.
func (s *Server) reportKey(userID string, r *http.Request) string {
	s.genMu.Lock()
	gen := s.generations[userID]
	s.genMu.Unlock()
	return userID + "#" + strconv.FormatUint(gen, 10) + "#" + r.URL.Path + "?" + r.URL.RawQuery
}

// invalidateReports drops all cached reports for the user.
func (s *Server) invalidateReports(userID string) {
	s.genMu.Lock()
	s.generations[userID]++
	s.genMu.Unlock()
}

// withMiddleware adds security headers, rate limiting, request tracing, and
// request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit mutating requests only
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			"client_ip", clientIP)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
