package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MacJediWizard/dealbook/internal/auth"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockUserStore struct {
	users map[uuid.UUID]*models.User
}

func (m *mockUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(strings.Repeat("k", 32), "dealbook-test", time.Hour)
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	return svc
}

func issue(t *testing.T, svc *auth.TokenService, u *models.User) string {
	t.Helper()
	tok, err := svc.Issue(u.ID, u.Email, string(u.SubscriptionTier))
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func setupAuthRouter(tokens TokenValidator, store UserStore, adminDomain string) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(tokens, store, adminDomain, zerolog.Nop()))
	r.GET("/me", func(c *gin.Context) {
		user := RequireUser(c)
		if user == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "tier": GetTier(c), "contact": GetFeatures(c).CanSeeContactInfo})
	})
	return r
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"abc":          "",
		"":             "",
	}
	for in, want := range tests {
		if got := BearerToken(in); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTestTokens(t)
	active := models.NewUser("ada@example.com", nil)
	inactive := models.NewUser("gone@example.com", nil)
	inactive.IsActive = false
	admin := models.NewUser("root@dealbook.io", nil)
	missing := models.NewUser("missing@example.com", nil)

	store := &mockUserStore{users: map[uuid.UUID]*models.User{
		active.ID:   active,
		inactive.ID: inactive,
		admin.ID:    admin,
	}}
	r := setupAuthRouter(tokens, store, "dealbook.io")

	do := func(header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("missing header", func(t *testing.T) {
		w := do("")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if w.Header().Get("WWW-Authenticate") != "Bearer" {
			t.Error("expected WWW-Authenticate challenge")
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if w := do("Bearer not-a-jwt"); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		w := do("Bearer " + issue(t, tokens, active))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"tier":"free"`) {
			t.Errorf("expected free tier, got %s", w.Body.String())
		}
	})

	t.Run("inactive user", func(t *testing.T) {
		if w := do("Bearer " + issue(t, tokens, inactive)); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("deleted user", func(t *testing.T) {
		if w := do("Bearer " + issue(t, tokens, missing)); w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
	})

	t.Run("admin domain resolves to admin", func(t *testing.T) {
		w := do("Bearer " + issue(t, tokens, admin))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, `"tier":"admin"`) || !strings.Contains(body, `"contact":true`) {
			t.Errorf("expected admin features, got %s", body)
		}
	})
}

func TestRequireUser_NoUser(t *testing.T) {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		if RequireUser(c) == nil {
			return
		}
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestFeatureGate(t *testing.T) {
	tests := []struct {
		tier    plans.Tier
		feature Feature
		want    int
	}{
		{plans.TierFree, FeatureExport, http.StatusForbidden},
		{plans.TierBasic, FeatureExport, http.StatusOK},
		{plans.TierFree, FeatureFullProfiles, http.StatusPaymentRequired},
		{plans.TierBasic, FeatureFullProfiles, http.StatusOK},
		{plans.TierBasic, FeatureContactInfo, http.StatusPaymentRequired},
		{plans.TierProfessional, FeatureContactInfo, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(string(tt.tier)+"/"+string(tt.feature), func(t *testing.T) {
			user := models.NewUser("u@example.com", nil)
			user.ApplyTier(tt.tier)

			r := gin.New()
			r.Use(func(c *gin.Context) {
				c.Set(string(UserContextKey), user)
				c.Next()
			})
			r.GET("/gated", FeatureGateMiddleware(tt.feature, zerolog.Nop()), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", "/gated", nil)
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestFeature_RequiredTier(t *testing.T) {
	if got := FeatureExport.requiredTier(); got != plans.TierBasic {
		t.Errorf("export: expected basic, got %s", got)
	}
	if got := FeatureContactInfo.requiredTier(); got != plans.TierProfessional {
		t.Errorf("contact: expected professional, got %s", got)
	}
}
