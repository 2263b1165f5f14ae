package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"finmate/internal/ai"
	"finmate/internal/auth"
	"finmate/internal/cache"
	"finmate/internal/config"
	"finmate/internal/core"
	"finmate/internal/mail"
	"finmate/internal/models"
	"finmate/internal/services"
)

type fixedProvider struct{ answer string }

func (p fixedProvider) Name() string { return "fixed" }

func (p fixedProvider) Complete(_ context.Context, _, _ string) (string, error) {
	return p.answer, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.BudgetGoal{},
		&models.SavingsGoal{},
		&models.AdviceEntry{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{SMTPFromName: "FinMate", FrontendURL: "http://localhost:5173"}
	uploadDir := t.TempDir()

	tokens := auth.NewTokenIssuer("test-secret", time.Hour, 24*time.Hour)
	mailer := mail.NewMailer(cfg, discard)
	insights := cache.NewLRUCache[core.MonthlyInsight](64, time.Minute)

	users := services.NewUserService(db, tokens, mailer, nil, insights, uploadDir)
	transactions := services.NewTransactionService(db, insights)
	budgets := services.NewBudgetService(db)
	savings := services.NewSavingsService(db)
	chain := ai.NewChain(discard, time.Second, fixedProvider{answer: "Spend less."})
	advice := services.NewAdviceService(db, transactions, chain, "FinMate")

	return NewServer(":0", tokens, users, transactions, budgets, savings, advice, uploadDir)
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, s *Server, email string) string {
	t.Helper()

	rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     email,
		"password":  "longenough",
		"full_name": "Mila",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "longenough",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatal("login returned empty access token")
	}
	return resp.AccessToken
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "mila@example.com")

	rec := doJSON(t, s, http.MethodGet, "/api/v1/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", rec.Code, rec.Body.String())
	}
	var user models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.Email != "mila@example.com" {
		t.Errorf("email = %q, want mila@example.com", user.Email)
	}
	if strings.Contains(rec.Body.String(), "hashed_password") {
		t.Error("password hash leaked into the response")
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "mila@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "mila@example.com",
		"password": "longenough",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", rec.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "mila@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "mila@example.com",
		"password": "wrongwrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodGet, "/api/v1/transactions"},
		{http.MethodGet, "/api/v1/budgets"},
		{http.MethodGet, "/api/v1/savings"},
		{http.MethodGet, "/api/v1/advice"},
		{http.MethodGet, "/api/v1/insights/monthly"},
	}
	for _, p := range paths {
		rec := doJSON(t, s, p.method, p.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", p.method, p.path, rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/api/v1/users/me", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", rec.Code)
	}
}

func TestSupportedCurrenciesIsPublic(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/v1/currencies", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("currencies status = %d", rec.Code)
	}
	var resp struct {
		Currencies []string `json:"currencies"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode currencies: %v", err)
	}
	if len(resp.Currencies) == 0 {
		t.Error("no supported currencies returned")
	}
}

func TestTransactionFlowAndInsight(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "mila@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"category":         "salary",
		"amount":           "2000.00",
		"transaction_type": "income",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create income status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, s, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"category":         "rent",
		"amount":           "700.00",
		"transaction_type": "expense",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/transactions?type=expense", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed []models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].Category != "rent" {
		t.Errorf("filtered list = %d rows, want just rent", len(listed))
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/insights/monthly", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("insight status = %d, body %s", rec.Code, rec.Body.String())
	}
	var insight core.MonthlyInsight
	if err := json.Unmarshal(rec.Body.Bytes(), &insight); err != nil {
		t.Fatalf("decode insight: %v", err)
	}
	if insight.TotalIncome.String() != "2000" {
		t.Errorf("TotalIncome = %s, want 2000", insight.TotalIncome)
	}
	if insight.Balance.String() != "1300" {
		t.Errorf("Balance = %s, want 1300", insight.Balance)
	}
}

func TestTransactionValidationStatus(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "mila@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/transactions", token, map[string]any{
		"category":         "food",
		"amount":           "-5",
		"transaction_type": "expense",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("negative amount status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/transactions/9999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing transaction status = %d, want 404", rec.Code)
	}
}

func TestSavingsContributeEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "mila@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/savings", token, map[string]any{
		"name":          "Vacation",
		"target_amount": "1000.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal status = %d, body %s", rec.Code, rec.Body.String())
	}
	var goal models.SavingsGoal
	if err := json.Unmarshal(rec.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode goal: %v", err)
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/v1/savings/%d/contribute", goal.ID), token, map[string]any{
		"amount": "250.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("contribute status = %d, body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &goal); err != nil {
		t.Fatalf("decode goal: %v", err)
	}
	if goal.CurrentAmount.String() != "250" {
		t.Errorf("CurrentAmount = %s, want 250", goal.CurrentAmount)
	}
}

func TestAdviceEndpoint(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "mila@example.com")

	rec := doJSON(t, s, http.MethodPost, "/api/v1/advice", token, map[string]string{
		"question": "How can I save more?",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("advice status = %d, body %s", rec.Code, rec.Body.String())
	}
	var entry models.AdviceEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode advice: %v", err)
	}
	if entry.Response != "[FinMate] Spend less." {
		t.Errorf("Response = %q, want tagged provider answer", entry.Response)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/advice/conversations", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("conversations status = %d", rec.Code)
	}
	var conversations []services.ConversationSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &conversations); err != nil {
		t.Fatalf("decode conversations: %v", err)
	}
	if len(conversations) != 1 {
		t.Errorf("conversations = %d, want 1", len(conversations))
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/v1/advice/conversations/"+entry.ConversationID, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete conversation status = %d, want 204", rec.Code)
	}
}

func TestVerifyEmailEndpoint(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "mila@example.com")

	verification, err := s.tokens.IssueVerificationToken("mila@example.com")
	if err != nil {
		t.Fatalf("issue verification token: %v", err)
	}

	rec := doJSON(t, s, http.MethodGet, "/api/v1/auth/verify?token="+verification, "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("verify status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/v1/auth/verify?token=garbage", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token verify status = %d, want 401", rec.Code)
	}
}

func TestValidationFailuresAreClientErrors(t *testing.T) {
	s := newTestServer(t)
	token := registerAndLogin(t, s, "mila@example.com")

	tests := []struct {
		name  string
		path  string
		token string
		body  map[string]any
	}{
		{
			name: "weak register password",
			path: "/api/v1/auth/register",
			body: map[string]any{"email": "short@example.com", "password": "short", "full_name": "S"},
		},
		{
			name: "register without at sign",
			path: "/api/v1/auth/register",
			body: map[string]any{"email": "not-an-address", "password": "longenough", "full_name": "S"},
		},
		{
			name:  "blank advice question",
			path:  "/api/v1/advice",
			token: token,
			body:  map[string]any{"question": "   "},
		},
		{
			name:  "malformed conversation id",
			path:  "/api/v1/advice",
			token: token,
			body:  map[string]any{"question": "How am I doing?", "conversation_id": "not-a-uuid"},
		},
		{
			name:  "blank savings goal name",
			path:  "/api/v1/savings",
			token: token,
			body:  map[string]any{"name": "   ", "target_amount": 100},
		},
		{
			name:  "avatar payload not base64",
			path:  "/api/v1/users/me/profile-picture",
			token: token,
			body:  map[string]any{"image": "%%%definitely-not-base64%%%"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, tt.path, tt.token, tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestResendVerificationEndpoint(t *testing.T) {
	s := newTestServer(t)
	registerAndLogin(t, s, "mila@example.com")

	for _, email := range []string{"mila@example.com", "nobody@example.com"} {
		rec := doJSON(t, s, http.MethodPost, "/api/v1/auth/resend-verification", "", map[string]string{
			"email": email,
		})
		if rec.Code != http.StatusAccepted {
			t.Errorf("resend for %s status = %d, want 202", email, rec.Code)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
