// Package middleware provides HTTP middleware for the Dealbook API.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MacJediWizard/dealbook/internal/auth"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UserStore loads the account behind a token.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenValidator checks access tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// ContextKey is the type for context keys used by this package.
type ContextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey ContextKey = "user"
	// TierContextKey is the context key for the effective subscription tier.
	TierContextKey ContextKey = "tier"
	// ClaimsContextKey is the context key for the validated token claims.
	ClaimsContextKey ContextKey = "claims"
)

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware returns a Gin middleware that requires a valid access token
// for an existing, active account.
func AuthMiddleware(tokens TokenValidator, store UserStore, adminDomain string, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "auth_middleware").Logger()

	return func(c *gin.Context) {
		raw := BearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			log.Debug().Str("path", c.Request.URL.Path).Msg("missing bearer token")
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := tokens.Validate(raw)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "token expired"
			}
			log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("rejected token")
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := store.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			log.Debug().Err(err).Str("user_id", userID.String()).Msg("token user not found")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account is inactive"})
			return
		}

		c.Set(string(UserContextKey), user)
		c.Set(string(ClaimsContextKey), claims)
		c.Set(string(TierContextKey), plans.ResolveTier(string(user.SubscriptionTier), user.Email, adminDomain))

		log.Debug().
			Str("user_id", user.ID.String()).
			Str("path", c.Request.URL.Path).
			Msg("authenticated request")

		c.Next()
	}
}

// GetUser retrieves the authenticated user from the Gin context.
// Returns nil if no user is authenticated.
func GetUser(c *gin.Context) *models.User {
	v, exists := c.Get(string(UserContextKey))
	if !exists {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// RequireUser is a helper that gets the authenticated user or aborts with 401.
// Use this in handlers that expect AuthMiddleware to have already run.
func RequireUser(c *gin.Context) *models.User {
	user := GetUser(c)
	if user == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return nil
	}
	return user
}

// GetTier returns the effective tier of the request. Admin-domain accounts
// resolve to admin regardless of the stored tier.
func GetTier(c *gin.Context) plans.Tier {
	if v, ok := c.Get(string(TierContextKey)); ok {
		if t, ok := v.(plans.Tier); ok {
			return t
		}
	}
	if user := GetUser(c); user != nil {
		return user.SubscriptionTier
	}
	return plans.TierFree
}

// GetFeatures returns the feature set of the authenticated user. Admin
// accounts get the admin limits; everyone else gets the flags stored on the
// account.
func GetFeatures(c *gin.Context) plans.Limits {
	user := GetUser(c)
	if user == nil {
		return plans.LimitsFor(plans.TierFree)
	}
	if GetTier(c) == plans.TierAdmin {
		return plans.LimitsFor(plans.TierAdmin)
	}
	return user.Features()
}
