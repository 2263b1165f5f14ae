// Package http exposes the REST API. Routes live under /api/v1;
// everything except registration, login and email verification requires
// a bearer token.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"finmate/internal/auth"
	"finmate/internal/services"
)

type contextKey string

const userIDKey contextKey = "user_id"

type Server struct {
	http.Server
	tokens       *auth.TokenIssuer
	users        *services.UserService
	transactions *services.TransactionService
	budgets      *services.BudgetService
	savings      *services.SavingsService
	advice       *services.AdviceService
	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(
	addr string,
	tokens *auth.TokenIssuer,
	users *services.UserService,
	transactions *services.TransactionService,
	budgets *services.BudgetService,
	savings *services.SavingsService,
	advice *services.AdviceService,
	uploadDir string,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		tokens:       tokens,
		users:        users,
		transactions: transactions,
		budgets:      budgets,
		savings:      savings,
		advice:       advice,
		rateLimiter:  newRateLimiter(),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// Avatar files written by the user service.
	uploads := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadDir)))
	mux.Handle("GET /uploads/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		uploads.ServeHTTP(w, r)
	}))

	// Public auth endpoints (rate limited by the middleware).
	mux.HandleFunc("POST /api/v1/auth/register", s.withSecurityHeaders(s.handleRegister))
	mux.HandleFunc("POST /api/v1/auth/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("GET /api/v1/auth/verify", s.withSecurityHeaders(s.handleVerifyEmail))
	mux.HandleFunc("POST /api/v1/auth/resend-verification", s.withSecurityHeaders(s.handleResendVerification))

	// Profile
	mux.HandleFunc("GET /api/v1/users/me", s.protected(s.handleGetMe))
	mux.HandleFunc("PATCH /api/v1/users/me", s.protected(s.handleUpdateMe))
	mux.HandleFunc("POST /api/v1/users/me/password", s.protected(s.handleChangePassword))
	mux.HandleFunc("POST /api/v1/users/me/profile-picture", s.protected(s.handleUpdateProfilePicture))
	mux.HandleFunc("POST /api/v1/users/me/currency", s.protected(s.handleChangeCurrency))
	mux.HandleFunc("GET /api/v1/currencies", s.withSecurityHeaders(s.handleSupportedCurrencies))

	// Transactions
	mux.HandleFunc("POST /api/v1/transactions", s.protected(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/v1/transactions", s.protected(s.handleListTransactions))
	mux.HandleFunc("GET /api/v1/transactions/{id}", s.protected(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/v1/transactions/{id}", s.protected(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/v1/transactions/{id}", s.protected(s.handleDeleteTransaction))

	// Insights
	mux.HandleFunc("GET /api/v1/insights/monthly", s.protected(s.handleMonthlyInsight))
	mux.HandleFunc("GET /api/v1/insights/all-time", s.protected(s.handleAllTimeSummary))
	mux.HandleFunc("GET /api/v1/insights/categories", s.protected(s.handleAllTimeCategories))
	mux.HandleFunc("GET /api/v1/insights/breakdown", s.protected(s.handleMonthlyBreakdown))

	// Budgets
	mux.HandleFunc("POST /api/v1/budgets", s.protected(s.handleCreateBudget))
	mux.HandleFunc("GET /api/v1/budgets", s.protected(s.handleListBudgets))
	mux.HandleFunc("GET /api/v1/budgets/status", s.protected(s.handleBudgetStatuses))
	mux.HandleFunc("GET /api/v1/budgets/{id}", s.protected(s.handleGetBudget))
	mux.HandleFunc("PATCH /api/v1/budgets/{id}", s.protected(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/v1/budgets/{id}", s.protected(s.handleDeleteBudget))

	// Savings goals
	mux.HandleFunc("POST /api/v1/savings", s.protected(s.handleCreateSavingsGoal))
	mux.HandleFunc("GET /api/v1/savings", s.protected(s.handleListSavingsGoals))
	mux.HandleFunc("GET /api/v1/savings/{id}", s.protected(s.handleGetSavingsGoal))
	mux.HandleFunc("PATCH /api/v1/savings/{id}", s.protected(s.handleUpdateSavingsGoal))
	mux.HandleFunc("DELETE /api/v1/savings/{id}", s.protected(s.handleDeleteSavingsGoal))
	mux.HandleFunc("POST /api/v1/savings/{id}/contribute", s.protected(s.handleContribute))

	// Advice
	mux.HandleFunc("POST /api/v1/advice", s.protected(s.handleGenerateAdvice))
	mux.HandleFunc("GET /api/v1/advice", s.protected(s.handleListAdvice))
	mux.HandleFunc("DELETE /api/v1/advice", s.protected(s.handleClearAdvice))
	mux.HandleFunc("GET /api/v1/advice/conversations", s.protected(s.handleListConversations))
	mux.HandleFunc("GET /api/v1/advice/conversations/{id}", s.protected(s.handleGetConversation))
	mux.HandleFunc("DELETE /api/v1/advice/conversations/{id}", s.protected(s.handleDeleteConversation))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
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

		// Generate request ID for tracing
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), contextKey("request_id"), requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		// Rate limit the credential endpoints
		if strings.HasPrefix(r.URL.Path, "/api/v1/auth/") && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Create a custom response writer to capture status code
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

// protected wraps a handler with the standard middleware plus bearer
// token authentication. The user ID lands in the request context.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withSecurityHeaders(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		userID, err := s.tokens.VerifyAccessToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	})
}

// currentUserID reads the authenticated user from the request context.
func currentUserID(r *http.Request) uint {
	id, _ := r.Context().Value(userIDKey).(uint)
	return id
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
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
