package middleware

import (
	"net/http"

	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Feature names a tier-gated capability.
type Feature string

const (
	FeatureExport       Feature = "export"
	FeatureFullProfiles Feature = "full_profiles"
	FeatureContactInfo  Feature = "contact_info"
)

// Enabled reports whether limits grant the feature.
func (f Feature) Enabled(l plans.Limits) bool {
	switch f {
	case FeatureExport:
		return l.CanExport
	case FeatureFullProfiles:
		return l.CanSeeFullProfiles
	case FeatureContactInfo:
		return l.CanSeeContactInfo
	}
	return false
}

// denialStatus is 403 for export and 402 for everything sold as an upgrade.
func (f Feature) denialStatus() int {
	if f == FeatureExport {
		return http.StatusForbidden
	}
	return http.StatusPaymentRequired
}

// requiredTier returns the cheapest tier that grants the feature.
func (f Feature) requiredTier() plans.Tier {
	for _, t := range plans.Tiers() {
		if f.Enabled(plans.LimitsFor(t)) {
			return t
		}
	}
	return plans.TierAdmin
}

// FeatureGateMiddleware returns a Gin middleware that blocks requests when
// the user's tier lacks the feature. Must run after AuthMiddleware.
func FeatureGateMiddleware(feature Feature, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "feature_gate_middleware").Str("feature", string(feature)).Logger()

	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !RequireFeature(c, feature) {
			log.Debug().
				Str("user_id", user.ID.String()).
				Str("current_tier", string(GetTier(c))).
				Msg("feature access denied")
			return
		}
		c.Next()
	}
}

// RequireFeature checks feature access inline within a handler. It returns
// true if the feature is accessible, false and aborts if not.
func RequireFeature(c *gin.Context, feature Feature) bool {
	if feature.Enabled(GetFeatures(c)) {
		return true
	}
	c.AbortWithStatusJSON(feature.denialStatus(), gin.H{
		"error":         "feature not available on your subscription",
		"feature":       string(feature),
		"current_tier":  string(GetTier(c)),
		"required_tier": string(feature.requiredTier()),
	})
	return false
}
