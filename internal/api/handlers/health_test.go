package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type mockDatabaseHealthChecker struct {
	pingErr error
	health  map[string]any
}

func (m *mockDatabaseHealthChecker) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockDatabaseHealthChecker) Health() map[string]any {
	if m.health != nil {
		return m.health
	}
	return map[string]any{}
}

func setupHealthTestRouter(db DatabaseHealthChecker) *gin.Engine {
	r := gin.New()
	handler := NewHealthHandler(db, "test", zerolog.Nop())
	handler.RegisterPublicRoutes(r)
	return r
}

func TestHealthOverall(t *testing.T) {
	r := setupHealthTestRouter(&mockDatabaseHealthChecker{pingErr: errors.New("down")})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200 even with db down, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.Status != HealthStatusHealthy || resp.Version != "test" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHealthDatabase(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		r := setupHealthTestRouter(&mockDatabaseHealthChecker{health: map[string]any{"total_conns": 4}})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health/db", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if resp.Checks["database"].Details["total_conns"] != float64(4) {
			t.Errorf("expected pool details, got %+v", resp.Checks["database"])
		}
	})

	t.Run("unhealthy", func(t *testing.T) {
		r := setupHealthTestRouter(&mockDatabaseHealthChecker{pingErr: errors.New("connection refused")})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health/db", nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected status 503, got %d", w.Code)
		}
		var resp HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal: %v", err)
		}
		if resp.Status != HealthStatusUnhealthy || resp.Error == "" {
			t.Errorf("unexpected response %+v", resp)
		}
	})
}
