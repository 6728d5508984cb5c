package models

import (
	"time"

	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/google/uuid"
)

// User is an account holder. Secrets are never serialized.
type User struct {
	ID                 uuid.UUID  `json:"id"`
	Email              string     `json:"email"`
	Name               *string    `json:"name"`
	ProfilePhoto       *string    `json:"profile_photo"`
	SubscriptionTier   plans.Tier `json:"subscription_tier"`
	SubscriptionStatus string     `json:"subscription_status"`
	SubscriptionStart  time.Time  `json:"subscription_start"`
	SubscriptionEnd    *time.Time `json:"subscription_end"`

	MonthlySearches    int        `json:"monthly_searches"`
	MonthlySearchLimit int        `json:"monthly_search_limit"`
	TotalSearches      int        `json:"total_searches"`
	LastSearch         *time.Time `json:"last_search"`

	CanExport          bool `json:"can_export"`
	CanSeeFullProfiles bool `json:"can_see_full_profiles"`
	CanSeeContactInfo  bool `json:"can_see_contact_info"`

	PasswordHash  string  `json:"-"`
	GoogleSubject *string `json:"-"`
	IsActive      bool    `json:"is_active"`
	IsVerified    bool    `json:"is_verified"`
	IsGoogleAuth  bool    `json:"is_google_auth"`

	VerificationID       *string    `json:"-"`
	VerificationCodeHash *string    `json:"-"`
	VerificationSentAt   *time.Time `json:"-"`
	OTPHash              *string    `json:"-"`
	OTPCreatedAt         *time.Time `json:"-"`
	ResetTokenHash       *string    `json:"-"`
	ResetExpiresAt       *time.Time `json:"-"`

	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewUser creates an active, unverified free-tier account.
func NewUser(email string, name *string) *User {
	now := time.Now()
	u := &User{
		ID:                 uuid.New(),
		Email:              email,
		Name:               name,
		SubscriptionStatus: "active",
		SubscriptionStart:  now,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	u.ApplyTier(plans.TierFree)
	return u
}

// ApplyTier sets the tier and copies its feature flags onto the account.
func (u *User) ApplyTier(t plans.Tier) {
	l := plans.LimitsFor(t)
	u.SubscriptionTier = t
	u.MonthlySearchLimit = l.MonthlySearches
	u.CanExport = l.CanExport
	u.CanSeeFullProfiles = l.CanSeeFullProfiles
	u.CanSeeContactInfo = l.CanSeeContactInfo
}

// Features returns the stored feature flags as limits.
func (u *User) Features() plans.Limits {
	return plans.Limits{
		MonthlySearches:    u.MonthlySearchLimit,
		CanExport:          u.CanExport,
		CanSeeFullProfiles: u.CanSeeFullProfiles,
		CanSeeContactInfo:  u.CanSeeContactInfo,
		RequestsPerDay:     plans.LimitsFor(u.SubscriptionTier).RequestsPerDay,
	}
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
