package handlers

import (
	"context"
	"net/http"

	"github.com/MacJediWizard/dealbook/internal/api/middleware"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UserStore defines the subscription and usage operations.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetSubscriptionTier(ctx context.Context, id uuid.UUID, tier plans.Tier) error
	ResetUsage(ctx context.Context, id uuid.UUID) error
}

// UsersHandler handles profile, subscription and usage endpoints.
type UsersHandler struct {
	store       UserStore
	adminDomain string
	logger      zerolog.Logger
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(store UserStore, adminDomain string, logger zerolog.Logger) *UsersHandler {
	return &UsersHandler{
		store:       store,
		adminDomain: adminDomain,
		logger:      logger.With().Str("component", "users_handler").Logger(),
	}
}

// RegisterRoutes registers user routes on the given router group.
func (h *UsersHandler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/users")
	{
		users.GET("/me", h.Me)
		users.PUT("/subscription", h.UpdateSubscription)
		users.POST("/reset-usage", h.ResetUsage)
	}
}

// UsageResponse reports quota consumption. SearchesRemaining is null for
// unlimited tiers.
type UsageResponse struct {
	MonthlySearches    int  `json:"monthly_searches"`
	MonthlySearchLimit int  `json:"monthly_search_limit"`
	TotalSearches      int  `json:"total_searches"`
	SearchesRemaining  *int `json:"searches_remaining"`
}

// ProfileResponse is the account with its effective tier and features.
type ProfileResponse struct {
	User     *models.User  `json:"user"`
	Tier     plans.Tier    `json:"tier"`
	Features plans.Limits  `json:"features"`
	Usage    UsageResponse `json:"usage"`
}

func profile(u *models.User, tier plans.Tier, features plans.Limits) ProfileResponse {
	return ProfileResponse{
		User:     u,
		Tier:     tier,
		Features: features,
		Usage: UsageResponse{
			MonthlySearches:    u.MonthlySearches,
			MonthlySearchLimit: features.MonthlySearches,
			TotalSearches:      u.TotalSearches,
			SearchesRemaining:  searchesRemaining(u, tier),
		},
	}
}

// Me returns the signed-in account with its features and usage.
//
//	@Summary		Current user
//	@Description	Returns the account, its effective tier, features and monthly usage.
//	@Tags			Users
//	@Produce		json
//	@Success		200	{object}	ProfileResponse
//	@Failure		401	{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/users/me [get]
func (h *UsersHandler) Me(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	c.JSON(http.StatusOK, profile(user, middleware.GetTier(c), middleware.GetFeatures(c)))
}

// UpdateSubscriptionRequest is the request body for a tier change.
type UpdateSubscriptionRequest struct {
	Tier string `json:"tier" binding:"required"`
}

// UpdateSubscription moves the account to another tier. The admin tier is
// reserved for the admin email domain.
// PUT /api/v1/users/subscription
func (h *UsersHandler) UpdateSubscription(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	tier, err := plans.ParseTier(req.Tier)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if tier == plans.TierAdmin && !plans.IsAdminEmail(user.Email, h.adminDomain) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin tier is not available for this account"})
		return
	}

	ctx := c.Request.Context()
	if err := h.store.SetSubscriptionTier(ctx, user.ID, tier); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to update subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscription"})
		return
	}
	updated, err := h.store.GetUserByID(ctx, user.ID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to reload user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscription"})
		return
	}

	h.logger.Info().
		Str("user_id", user.ID.String()).
		Str("from", string(user.SubscriptionTier)).
		Str("to", string(tier)).
		Msg("subscription updated")

	effective := plans.ResolveTier(string(updated.SubscriptionTier), updated.Email, h.adminDomain)
	features := updated.Features()
	if effective == plans.TierAdmin {
		features = plans.LimitsFor(plans.TierAdmin)
	}
	c.JSON(http.StatusOK, profile(updated, effective, features))
}

// ResetUsage zeroes the monthly search counter of the signed-in account.
// POST /api/v1/users/reset-usage
func (h *UsersHandler) ResetUsage(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	if err := h.store.ResetUsage(c.Request.Context(), user.ID); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to reset usage")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset usage"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "usage reset", "monthly_searches": 0})
}
