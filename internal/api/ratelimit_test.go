package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"minishop/internal/user"
)

func TestRateLimit_BlocksOverBudget(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	handler := RateLimit(rdb, 3)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	hit := func() int {
		req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 3; i++ {
		if code := hit(); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := hit(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the budget, got %d", code)
	}

	// Another client has its own window.
	req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("second client: expected 200, got %d", rec.Code)
	}
}

// The router mounts the limiter after the auth middleware; composed that way
// it must key on the authenticated user, not the shared proxy IP.
func TestRateLimit_KeysOnAuthenticatedUser(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	attach := func(telegramID string, next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := &Identity{Session: &user.Session{ID: 1, TelegramID: telegramID, Role: user.RoleUser}, Trust: TrustSigned}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
	limited := RateLimit(rdb, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	hit := func(telegramID string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
		req.RemoteAddr = "10.0.0.9:5000" // everyone behind the same proxy IP
		rec := httptest.NewRecorder()
		attach(telegramID, limited).ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := hit("42"); code != http.StatusOK {
			t.Fatalf("user 42 request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := hit("42"); code != http.StatusTooManyRequests {
		t.Fatalf("user 42 over budget: expected 429, got %d", code)
	}

	// A different user on the same IP has an untouched budget.
	if code := hit("43"); code != http.StatusOK {
		t.Fatalf("user 43: expected 200, got %d", code)
	}

	// And the windows are keyed per user, not per IP.
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "rl:ip:") {
			t.Fatalf("authenticated traffic keyed by IP: %s", k)
		}
	}
	var users, ips int
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "rl:u:42:") || strings.HasPrefix(k, "rl:u:43:") {
			users++
		} else {
			ips++
		}
	}
	if users != 2 || ips != 0 {
		t.Fatalf("unexpected window keys: %v", mr.Keys())
	}
}

func TestRateLimit_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	handler := RateLimit(rdb, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected fail-open 200, got %d", rec.Code)
		}
	}
}

func TestRateLimit_DisabledWithoutClient(t *testing.T) {
	handler := RateLimit(nil, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/products", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
}
