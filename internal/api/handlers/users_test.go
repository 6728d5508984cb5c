package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockUserStore struct {
	user   *models.User
	resets int
}

func (m *mockUserStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, fmt.Errorf("get user: %w", db.ErrNotFound)
	}
	cp := *m.user
	return &cp, nil
}

func (m *mockUserStore) SetSubscriptionTier(_ context.Context, id uuid.UUID, tier plans.Tier) error {
	m.user.ApplyTier(tier)
	return nil
}

func (m *mockUserStore) ResetUsage(_ context.Context, id uuid.UUID) error {
	m.resets++
	m.user.MonthlySearches = 0
	return nil
}

func setupUsersRouter(user *models.User, store *mockUserStore) http.Handler {
	r, api := newTestRouter(user)
	NewUsersHandler(store, "dealbook.io", zerolog.Nop()).RegisterRoutes(api)
	return r
}

func TestUsersMe(t *testing.T) {
	user := testUser(plans.TierFree)
	user.MonthlySearches = 4
	r := setupUsersRouter(user, &mockUserStore{user: user})

	w := doRequest(r, "GET", "/api/v1/users/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp ProfileResponse
	decodeBody(t, w, &resp)
	if resp.Tier != plans.TierFree || resp.Features.CanExport {
		t.Fatalf("unexpected tier info %+v", resp)
	}
	if resp.Usage.MonthlySearches != 4 || resp.Usage.SearchesRemaining == nil || *resp.Usage.SearchesRemaining != 6 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}

	pro := testUser(plans.TierProfessional)
	w = doRequest(setupUsersRouter(pro, &mockUserStore{user: pro}), "GET", "/api/v1/users/me", nil)
	decodeBody(t, w, &resp)
	if resp.Usage.SearchesRemaining != nil {
		t.Fatalf("expected unlimited quota, got %d", *resp.Usage.SearchesRemaining)
	}

	if w := doRequest(setupUsersRouter(nil, &mockUserStore{}), "GET", "/api/v1/users/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestUsersUpdateSubscription(t *testing.T) {
	tests := []struct {
		name       string
		email      string
		tier       string
		wantStatus int
		wantTier   plans.Tier
	}{
		{name: "upgrade", email: "jane@example.com", tier: "Professional", wantStatus: http.StatusOK, wantTier: plans.TierProfessional},
		{name: "unknown tier", email: "jane@example.com", tier: "platinum", wantStatus: http.StatusBadRequest},
		{name: "admin outside domain", email: "jane@example.com", tier: "admin", wantStatus: http.StatusForbidden},
		{name: "admin inside domain", email: "ops@dealbook.io", tier: "admin", wantStatus: http.StatusOK, wantTier: plans.TierAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := testUser(plans.TierFree)
			user.Email = tt.email
			store := &mockUserStore{user: user}
			caller := *user
			r := setupUsersRouter(&caller, store)

			w := doRequest(r, "PUT", "/api/v1/users/subscription", map[string]string{"tier": tt.tier})
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if w.Code != http.StatusOK {
				if store.user.SubscriptionTier != plans.TierFree {
					t.Fatal("expected tier unchanged")
				}
				return
			}
			var resp ProfileResponse
			decodeBody(t, w, &resp)
			if resp.Tier != tt.wantTier || !resp.Features.CanSeeContactInfo {
				t.Fatalf("unexpected response %+v", resp)
			}
		})
	}
}

func TestUsersResetUsage(t *testing.T) {
	user := testUser(plans.TierBasic)
	user.MonthlySearches = 120
	store := &mockUserStore{user: user}
	r := setupUsersRouter(user, store)

	w := doRequest(r, "POST", "/api/v1/users/reset-usage", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if store.resets != 1 || store.user.MonthlySearches != 0 {
		t.Fatalf("expected usage reset, got %d resets", store.resets)
	}
}
