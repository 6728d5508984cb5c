// Package plans defines subscription tiers and the limits they grant.
package plans

import (
	"fmt"
	"strings"
)

// Tier is a subscription level.
type Tier string

const (
	TierFree         Tier = "free"
	TierBasic        Tier = "basic"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
	TierAdmin        Tier = "admin"
)

// Unlimited marks a search quota without a ceiling.
const Unlimited = -1

// Limits is the feature set and quota of a tier.
type Limits struct {
	MonthlySearches    int   `json:"monthly_search_limit"`
	CanExport          bool  `json:"can_export"`
	CanSeeFullProfiles bool  `json:"can_see_full_profiles"`
	CanSeeContactInfo  bool  `json:"can_see_contact_info"`
	RequestsPerDay     int64 `json:"requests_per_day"`
}

var tierLimits = map[Tier]Limits{
	TierFree:         {MonthlySearches: 10, RequestsPerDay: 100},
	TierBasic:        {MonthlySearches: 500, CanExport: true, CanSeeFullProfiles: true, RequestsPerDay: 1000},
	TierProfessional: {MonthlySearches: Unlimited, CanExport: true, CanSeeFullProfiles: true, CanSeeContactInfo: true, RequestsPerDay: 5000},
	TierEnterprise:   {MonthlySearches: Unlimited, CanExport: true, CanSeeFullProfiles: true, CanSeeContactInfo: true, RequestsPerDay: 10000},
	TierAdmin:        {MonthlySearches: Unlimited, CanExport: true, CanSeeFullProfiles: true, CanSeeContactInfo: true, RequestsPerDay: 50000},
}

// Tiers lists every tier from least to most privileged.
func Tiers() []Tier {
	return []Tier{TierFree, TierBasic, TierProfessional, TierEnterprise, TierAdmin}
}

// ParseTier validates a tier name.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierLimits[t]; !ok {
		return "", fmt.Errorf("unknown subscription tier %q", s)
	}
	return t, nil
}

// LimitsFor returns the limits of a tier. Unknown tiers get the free limits.
func LimitsFor(t Tier) Limits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// ResolveTier returns the effective tier for an account. Addresses in the
// admin domain are always admin.
func ResolveTier(stored, email, adminDomain string) Tier {
	if IsAdminEmail(email, adminDomain) {
		return TierAdmin
	}
	if t, err := ParseTier(stored); err == nil {
		return t
	}
	return TierFree
}

// IsAdminEmail reports whether email belongs to adminDomain.
func IsAdminEmail(email, adminDomain string) bool {
	adminDomain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(adminDomain)), "@")
	if adminDomain == "" {
		return false
	}
	_, domain, ok := strings.Cut(strings.ToLower(strings.TrimSpace(email)), "@")
	return ok && domain == adminDomain
}

// SearchesRemaining is nil for unlimited quotas and never negative.
func SearchesRemaining(limit, used int) *int {
	if limit < 0 {
		return nil
	}
	left := limit - used
	if left < 0 {
		left = 0
	}
	return &left
}
