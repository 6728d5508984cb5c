package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestNewLimiterStore_Memory(t *testing.T) {
	store, err := NewLimiterStore(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestIsRateLimitExempt(t *testing.T) {
	for _, p := range []string{"/health", "/health/db", "/metrics", "/api/docs/index.html", "/api/v1/auth/login", "/api/v1/auth/refresh"} {
		if !isRateLimitExempt(p) {
			t.Errorf("expected %s to be exempt", p)
		}
	}
	for _, p := range []string{"/api/v1/investors", "/api/v1/auth/login-ish", "/healthz"} {
		if isRateLimitExempt(p) {
			t.Errorf("expected %s to be limited", p)
		}
	}
}

func TestTierRateLimiter(t *testing.T) {
	tokens := newTestTokens(t)
	store, _ := NewLimiterStore(nil)
	rl := NewTierRateLimiter(store, tokens, zerolog.Nop())

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/api/v1/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("user key uses tier allowance", func(t *testing.T) {
		user := models.NewUser("free@example.com", nil)
		tok := issue(t, tokens, user)
		limit := plans.LimitsFor(plans.TierFree).RequestsPerDay

		var last *httptest.ResponseRecorder
		for i := int64(0); i <= limit; i++ {
			last = httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/api/v1/stats", nil)
			req.Header.Set("Authorization", "Bearer "+tok)
			r.ServeHTTP(last, req)
			if i < limit && last.Code != http.StatusOK {
				t.Fatalf("request %d: expected 200, got %d", i+1, last.Code)
			}
		}
		if last.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 after %d requests, got %d", limit, last.Code)
		}

		// The same IP without a token has its own basic allowance.
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/stats", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("expected anonymous request to pass, got %d", w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "1000" {
			t.Errorf("expected basic allowance header, got %q", got)
		}
	})

	t.Run("exempt path is not counted", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health", nil)
		r.ServeHTTP(w, req)
		if w.Header().Get("X-RateLimit-Limit") != "" {
			t.Error("expected no rate limit headers on exempt path")
		}
	})
}

func TestAuthGuard(t *testing.T) {
	store, _ := NewLimiterStore(nil)
	guard := NewAuthGuard(store, 3, time.Minute, time.Hour, zerolog.Nop())

	r := gin.New()
	r.POST("/login", guard.Middleware(), func(c *gin.Context) {
		if c.Query("ok") == "1" {
			c.Status(http.StatusAccepted)
			return
		}
		c.Status(http.StatusUnauthorized)
	})

	do := func(ip, query string) int {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/login"+query, nil)
		req.RemoteAddr = ip + ":1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("10.0.0.1", "?ok=1"); code != http.StatusAccepted {
		t.Fatalf("expected success, got %d", code)
	}
	for i := 0; i < 3; i++ {
		if code := do("10.0.0.1", ""); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, code)
		}
	}
	if code := do("10.0.0.1", "?ok=1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected blocked IP to get 429, got %d", code)
	}
	if code := do("10.0.0.2", "?ok=1"); code != http.StatusAccepted {
		t.Fatalf("expected other IP to pass, got %d", code)
	}
}
