package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bazarmoz/bazar-backend/pkg/logger"
)

type stubWindowStore struct {
	scopes []string
	counts map[string]int64
}

func newStubWindowStore() *stubWindowStore {
	return &stubWindowStore{counts: map[string]int64{}}
}

func (s *stubWindowStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s.scopes = append(s.scopes, scope)
	s.counts[scope]++
	count := s.counts[scope]
	return count <= limit, count, nil
}

func rateLimitTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func loginRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(body))
	req.RemoteAddr = "203.0.113.7:51234"
	return req
}

func okHandler(hits *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hits++
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRateLimitBlocksOverLimit(t *testing.T) {
	store := newStubWindowStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 0)
	var hits int
	handler := AuthRateLimit(policy, store, rateLimitTestLogger())(okHandler(&hits))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(`{"email":"ana@example.com"}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{"email":"ana@example.com"}`))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if hits != 2 {
		t.Fatalf("expected 2 upstream hits, got %d", hits)
	}
}

func TestAuthRateLimitScopesEmailByHash(t *testing.T) {
	store := newStubWindowStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 3)
	var hits int
	handler := AuthRateLimit(policy, store, rateLimitTestLogger())(okHandler(&hits))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{"email":"Ana@Example.com","password":"x"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if len(store.scopes) != 1 {
		t.Fatalf("expected 1 window check, got %d", len(store.scopes))
	}
	scope := store.scopes[0]
	if !strings.HasPrefix(scope, "email:login:") {
		t.Fatalf("unexpected scope %q", scope)
	}
	// The raw address never reaches the counter key.
	if strings.Contains(strings.ToLower(scope), "ana@example.com") {
		t.Fatalf("scope leaks the email: %q", scope)
	}
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := newStubWindowStore()
	policy := NewAuthRateLimitPolicy("login", 0, 10, 10)
	var hits int
	handler := AuthRateLimit(policy, store, rateLimitTestLogger())(okHandler(&hits))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest(`{"email":"ana@example.com"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(store.scopes) != 0 {
		t.Fatalf("disabled policy should not touch the store, saw %v", store.scopes)
	}
}
