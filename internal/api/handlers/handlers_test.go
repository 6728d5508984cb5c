package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MacJediWizard/dealbook/internal/api/middleware"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

// testUser returns a verified account on tier.
func testUser(tier plans.Tier) *models.User {
	u := models.NewUser("jane@example.com", strPtr("Jane"))
	u.ApplyTier(tier)
	u.IsVerified = true
	return u
}

// withUser stands in for AuthMiddleware.
func withUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(string(middleware.UserContextKey), user)
			c.Set(string(middleware.TierContextKey), user.SubscriptionTier)
		}
		c.Next()
	}
}

// newTestRouter returns an engine whose /api/v1 group carries user.
func newTestRouter(user *models.User) (*gin.Engine, *gin.RouterGroup) {
	r := gin.New()
	return r, r.Group("/api/v1", withUser(user))
}

func doRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal %q: %v", w.Body.String(), err)
	}
}
