package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestInvestorSanitizeProducesEncodableJSON(t *testing.T) {
	nan := math.NaN()
	inf := math.Inf(1)
	inv := Investor{
		ID:                  1,
		CapitalManaged:      &nan,
		MaxInvestment:       &inf,
		IndustryPreferences: []string{`{Software,"IT Services"}`},
		StagePreferences:    []string{""},
	}
	_, err := json.Marshal(inv)
	require.Error(t, err, "NaN must not be encodable before sanitizing")

	inv.Sanitize()
	raw, err := json.Marshal(inv)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Nil(t, out["capital_managed"])
	assert.Nil(t, out["max_investment"])
	assert.Equal(t, []any{"Software", "IT Services"}, out["industry_preferences"])
	assert.Nil(t, out["stage_preferences"])
}

func TestFundRedactContact(t *testing.T) {
	f := InvestmentFund{
		FirmName:     strPtr("Acme Capital"),
		FirmEmail:    strPtr("hi@acme.vc"),
		ContactEmail: strPtr("jo@acme.vc"),
		ContactPhone: strPtr("555"),
		FirmAddress:  strPtr("1 Main St"),
	}
	f.RedactContact()
	assert.Nil(t, f.FirmEmail)
	assert.Nil(t, f.ContactEmail)
	assert.Nil(t, f.ContactPhone)
	assert.Nil(t, f.FirmAddress)
	assert.Equal(t, "Acme Capital", *f.FirmName)
}

func TestInvestorNormalize(t *testing.T) {
	inv := Investor{
		FirstName:       strPtr("Ada"),
		LastName:        strPtr("Lovelace"),
		Email:           strPtr("  "),
		TypeOfFinancing: []string{"Equity", "Debt", "Equity"},
	}
	inv.Normalize()
	assert.Nil(t, inv.Email)
	assert.Equal(t, []string{"Equity", "Debt"}, inv.TypeOfFinancing)
	assert.Equal(t, "Ada Lovelace", inv.DisplayName())
}

func TestNewUserAppliesFreeTier(t *testing.T) {
	u := NewUser("a@example.com", nil)
	assert.Equal(t, plans.TierFree, u.SubscriptionTier)
	assert.Equal(t, 10, u.MonthlySearchLimit)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsVerified)
	assert.False(t, u.HasPassword())

	u.ApplyTier(plans.TierProfessional)
	assert.Equal(t, plans.Unlimited, u.MonthlySearchLimit)
	assert.True(t, u.Features().CanSeeContactInfo)
	assert.Equal(t, int64(5000), u.Features().RequestsPerDay)
}

func TestUserJSONHidesSecrets(t *testing.T) {
	u := NewUser("a@example.com", nil)
	u.PasswordHash = "$2a$10$secret"
	u.OTPHash = strPtr("hash")
	raw, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "otp")
}

func TestParseListType(t *testing.T) {
	lt, err := ParseListType("")
	require.NoError(t, err)
	assert.Equal(t, ListTypeMixed, lt)

	lt, err = ParseListType("fund")
	require.NoError(t, err)
	assert.Equal(t, ListTypeFund, lt)

	_, err = ParseListType("startup")
	assert.Error(t, err)
}

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Now()
	tok := RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, tok.Usable(now))
	assert.False(t, tok.Usable(now.Add(2*time.Hour)))
	tok.Revoked = true
	assert.False(t, tok.Usable(now))
}
