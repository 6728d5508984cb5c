package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MacJediWizard/dealbook/internal/api/middleware"
	"github.com/MacJediWizard/dealbook/internal/auth"
	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/MacJediWizard/dealbook/internal/notify"
	"github.com/MacJediWizard/dealbook/internal/plans"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Flow names returned by the pending sign-in steps.
const (
	FlowEmailVerification = "email_verification"
	FlowTwoFactor         = "2fa_verification"
)

const forgotPasswordMessage = "If this email is registered, a password reset link has been sent"

// TokenIssuer issues access tokens. *auth.TokenService satisfies it.
type TokenIssuer interface {
	Issue(userID uuid.UUID, email, tier string) (string, error)
	TTL() time.Duration
}

// RefreshTokenStore persists refresh token hashes.
type RefreshTokenStore interface {
	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	RotateRefreshToken(ctx context.Context, presentedHash string, next *models.RefreshToken) (uuid.UUID, error)
	RevokeRefreshToken(ctx context.Context, hash string) error
}

// AuthStore defines the account persistence used by the auth handlers.
type AuthStore interface {
	RefreshTokenStore
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByVerificationID(ctx context.Context, verificationID string) (*models.User, error)
	GetUserByResetTokenHash(ctx context.Context, hash string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUserProfile(ctx context.Context, id uuid.UUID, name, photo *string) error
	SetPassword(ctx context.Context, id uuid.UUID, hash string) error
	SetVerificationCode(ctx context.Context, id uuid.UUID, verificationID, codeHash string) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	SetOTP(ctx context.Context, id uuid.UUID, codeHash string) error
	CompleteLogin(ctx context.Context, id uuid.UUID) error
	SetResetToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
	DeactivateUser(ctx context.Context, id uuid.UUID) error
}

// AuthConfig holds the settings the auth flows need.
type AuthConfig struct {
	RefreshTokenTTL  time.Duration
	FrontendURL      string
	AdminEmailDomain string
}

// TokenResponse is returned by every flow that completes a sign-in.
type TokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *models.User `json:"user,omitempty"`
}

// sessionIssuer mints access and refresh token pairs.
type sessionIssuer struct {
	tokens      TokenIssuer
	store       RefreshTokenStore
	refreshTTL  time.Duration
	adminDomain string
	now         func() time.Time
}

func (s *sessionIssuer) tier(u *models.User) plans.Tier {
	return plans.ResolveTier(string(u.SubscriptionTier), u.Email, s.adminDomain)
}

func (s *sessionIssuer) accessToken(u *models.User) (string, error) {
	return s.tokens.Issue(u.ID, u.Email, string(s.tier(u)))
}

func (s *sessionIssuer) newRefreshToken() (string, *models.RefreshToken, error) {
	raw, err := auth.GenerateToken()
	if err != nil {
		return "", nil, err
	}
	now := s.now()
	return raw, &models.RefreshToken{
		ID:        uuid.New(),
		TokenHash: auth.HashToken(raw),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}, nil
}

// issue creates a new token pair for u.
func (s *sessionIssuer) issue(ctx context.Context, u *models.User) (*TokenResponse, error) {
	access, err := s.accessToken(u)
	if err != nil {
		return nil, err
	}
	raw, rt, err := s.newRefreshToken()
	if err != nil {
		return nil, err
	}
	rt.UserID = u.ID
	if err := s.store.CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken:  access,
		TokenType:    "bearer",
		RefreshToken: raw,
		ExpiresIn:    int64(s.tokens.TTL().Seconds()),
		User:         u,
	}, nil
}

// AuthHandler handles account and session endpoints.
type AuthHandler struct {
	store       AuthStore
	sessions    *sessionIssuer
	notifier    notify.Notifier
	frontendURL string
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store AuthStore, tokens TokenIssuer, notifier notify.Notifier, cfg AuthConfig, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		store: store,
		sessions: &sessionIssuer{
			tokens:      tokens,
			store:       store,
			refreshTTL:  cfg.RefreshTokenTTL,
			adminDomain: cfg.AdminEmailDomain,
			now:         time.Now,
		},
		notifier:    notifier,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		logger:      logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublicRoutes registers the unauthenticated auth routes. guard, when
// set, wraps the credential-checking endpoints.
func (h *AuthHandler) RegisterPublicRoutes(r *gin.RouterGroup, guard gin.HandlerFunc) {
	guarded := []gin.HandlerFunc{}
	if guard != nil {
		guarded = append(guarded, guard)
	}

	a := r.Group("/auth")
	{
		a.POST("/register", h.Register)
		a.POST("/login", append(guarded, h.Login)...)
		a.POST("/verify-email", h.VerifyEmail)
		a.POST("/verify-otp", h.VerifyOTP)
		a.POST("/forgot-password", h.ForgotPassword)
		a.POST("/reset-password", h.ResetPassword)
		a.POST("/refresh", append(guarded, h.Refresh)...)
		a.POST("/logout", h.Logout)
	}
}

// RegisterRoutes registers the auth routes that require a signed-in user.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	a := r.Group("/auth")
	{
		a.GET("/me", h.Me)
		a.PUT("/me", h.UpdateMe)
		a.POST("/change-password", h.ChangePassword)
		a.POST("/deactivate", h.Deactivate)
	}
}

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	Name      string `json:"name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (r RegisterRequest) displayName() *string {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
	}
	if name == "" {
		return nil
	}
	return &name
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an unverified account and emails a verification code.
//
//	@Summary		Register
//	@Description	Creates an account and sends an email verification code.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RegisterRequest	true	"Account details"
//	@Success		202		{object}	map[string]any
//	@Failure		400		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := normalizeEmail(req.Email)
	ctx := c.Request.Context()
	if _, err := h.store.GetUserByEmail(ctx, email); err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	} else if !notFound(err) {
		h.logger.Error().Err(err).Msg("failed to look up email")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}
	code, err := auth.GenerateCode(auth.CodeLength)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate verification code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	user := models.NewUser(email, req.displayName())
	user.PasswordHash = hash
	verificationID := uuid.NewString()
	codeHash := auth.HashToken(code)
	sentAt := time.Now()
	user.VerificationID = &verificationID
	user.VerificationCodeHash = &codeHash
	user.VerificationSentAt = &sentAt

	if err := h.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.logger.Error().Err(err).Msg("failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
		return
	}

	h.sendVerification(ctx, user, code)
	h.logger.Info().Str("user_id", user.ID.String()).Str("email", notify.MaskEmail(email)).Msg("user registered")
	c.JSON(http.StatusAccepted, gin.H{
		"message":         "verification code sent",
		"verification_id": verificationID,
		"flow":            FlowEmailVerification,
	})
}

// LoginRequest is the request body for password sign-in.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks the password and starts the second step: email verification
// for unverified accounts, an emailed one-time code otherwise.
//
//	@Summary		Login
//	@Description	Checks credentials and sends a verification or sign-in code.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Credentials"
//	@Success		202		{object}	map[string]any
//	@Failure		401		{object}	map[string]string
//	@Failure		429		{object}	map[string]string
//	@Router			/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if notFound(err) {
			h.unauthorized(c, auth.ErrInvalidCredentials.Error())
			return
		}
		h.logger.Error().Err(err).Msg("failed to look up user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		h.logger.Info().Str("email", notify.MaskEmail(user.Email)).Msg("failed login attempt")
		h.unauthorized(c, auth.ErrInvalidCredentials.Error())
		return
	}
	if !user.IsActive {
		h.unauthorized(c, "account has been deactivated")
		return
	}

	if !user.IsVerified {
		verificationID, code, err := h.newVerification(ctx, user)
		if err != nil {
			h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to reissue verification code")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
			return
		}
		h.sendVerification(ctx, user, code)
		c.JSON(http.StatusAccepted, gin.H{
			"message":         "verification code sent",
			"verification_id": verificationID,
			"flow":            FlowEmailVerification,
		})
		return
	}

	code, err := auth.GenerateCode(auth.CodeLength)
	if err == nil {
		err = h.store.SetOTP(ctx, user.ID, auth.HashToken(code))
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue login code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		return
	}
	if err := h.notifier.SendLoginCode(ctx, h.message(user, code, "", auth.OTPTTL)); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to send login code")
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "sign-in code sent",
		"user_id": user.ID,
		"flow":    FlowTwoFactor,
	})
}

// VerifyEmailRequest is the request body for email verification.
type VerifyEmailRequest struct {
	VerificationID string `json:"verification_id" binding:"required"`
	Code           string `json:"code" binding:"required,len=6"`
}

// VerifyEmail confirms the address and signs the user in.
// POST /api/v1/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByVerificationID(ctx, req.VerificationID)
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification code"})
			return
		}
		h.logger.Error().Err(err).Msg("failed to look up verification")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify email"})
		return
	}
	if !auth.MatchesHash(req.Code, user.VerificationCodeHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid verification code"})
		return
	}
	if auth.Expired(user.VerificationSentAt, auth.VerificationTTL, time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "verification code has expired"})
		return
	}

	if err := h.store.MarkVerified(ctx, user.ID); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to mark user verified")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify email"})
		return
	}
	user.IsVerified = true
	h.completeSignIn(c, user, "email verified")
}

// VerifyOTPRequest is the request body for the second sign-in step.
type VerifyOTPRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Code   string `json:"code" binding:"required,len=6"`
}

// VerifyOTP checks the emailed sign-in code and returns a token pair.
//
//	@Summary		Verify sign-in code
//	@Description	Exchanges the emailed one-time code for an access and refresh token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		VerifyOTPRequest	true	"Code"
//	@Success		200		{object}	TokenResponse
//	@Failure		400		{object}	map[string]string
//	@Router			/auth/verify-otp [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
			return
		}
		h.logger.Error().Err(err).Msg("failed to look up user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify code"})
		return
	}
	if !user.IsActive {
		h.unauthorized(c, "account has been deactivated")
		return
	}
	if !auth.MatchesHash(req.Code, user.OTPHash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid code"})
		return
	}
	if auth.Expired(user.OTPCreatedAt, auth.OTPTTL, time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code has expired"})
		return
	}

	h.completeSignIn(c, user, "code verified")
}

// completeSignIn clears the pending code, records the login and responds
// with a token pair.
func (h *AuthHandler) completeSignIn(c *gin.Context, user *models.User, message string) {
	ctx := c.Request.Context()
	if err := h.store.CompleteLogin(ctx, user.ID); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to record login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		return
	}
	now := time.Now()
	user.LastLogin = &now

	resp, err := h.sessions.issue(ctx, user)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue tokens")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign in"})
		return
	}

	h.logger.Info().Str("user_id", user.ID.String()).Msg(message)
	c.JSON(http.StatusOK, resp)
}

// ForgotPasswordRequest is the request body for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ForgotPassword emails a reset link. The response does not reveal whether
// the address is registered.
// POST /api/v1/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	switch {
	case err == nil && user.IsActive:
		h.sendReset(ctx, user)
	case err != nil && !notFound(err):
		h.logger.Error().Err(err).Msg("failed to look up user for reset")
	}
	c.JSON(http.StatusOK, gin.H{"message": forgotPasswordMessage})
}

func (h *AuthHandler) sendReset(ctx context.Context, user *models.User) {
	token, err := auth.GenerateToken()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate reset token")
		return
	}
	if err := h.store.SetResetToken(ctx, user.ID, auth.HashToken(token), time.Now().Add(auth.ResetTokenTTL)); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to store reset token")
		return
	}
	link := h.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
	if err := h.notifier.SendPasswordReset(ctx, h.message(user, "", link, auth.ResetTokenTTL)); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to send reset email")
	}
}

// ResetPasswordRequest is the request body for completing a reset.
type ResetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// ResetPassword sets a new password from a reset link.
// POST /api/v1/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	user, err := h.store.GetUserByResetTokenHash(ctx, auth.HashToken(req.Token))
	if err != nil {
		if notFound(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired reset token"})
			return
		}
		h.logger.Error().Err(err).Msg("failed to look up reset token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reset password"})
		return
	}

	if !h.storePassword(c, user.ID, req.NewPassword, "failed to reset password") {
		return
	}
	h.logger.Info().Str("user_id", user.ID.String()).Msg("password reset")
	c.JSON(http.StatusOK, gin.H{"message": "password reset successfully"})
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh rotates a refresh token. Presenting a token that was already
// rotated revokes every token of its owner.
//
//	@Summary		Refresh tokens
//	@Description	Exchanges a refresh token for a new access and refresh token.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	TokenResponse
//	@Failure		401		{object}	map[string]string
//	@Router			/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	raw, next, err := h.sessions.newRefreshToken()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate refresh token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh token"})
		return
	}

	owner, err := h.store.RotateRefreshToken(ctx, auth.HashToken(req.RefreshToken), next)
	switch {
	case errors.Is(err, db.ErrTokenReused):
		h.logger.Warn().Str("user_id", owner.String()).Str("client_ip", c.ClientIP()).Msg("refresh token reuse detected, sessions revoked")
		h.unauthorized(c, "refresh token has been revoked")
		return
	case err != nil && notFound(err):
		h.unauthorized(c, "invalid refresh token")
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("failed to rotate refresh token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh token"})
		return
	}

	user, err := h.store.GetUserByID(ctx, owner)
	if err != nil || !user.IsActive {
		_ = h.store.RevokeRefreshToken(ctx, next.TokenHash)
		h.unauthorized(c, "invalid refresh token")
		return
	}

	access, err := h.sessions.accessToken(user)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to issue access token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to refresh token"})
		return
	}
	c.JSON(http.StatusOK, &TokenResponse{
		AccessToken:  access,
		TokenType:    "bearer",
		RefreshToken: raw,
		ExpiresIn:    int64(h.sessions.tokens.TTL().Seconds()),
	})
}

// Logout revokes the presented refresh token. Unknown tokens are ignored.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		if err := h.store.RevokeRefreshToken(c.Request.Context(), auth.HashToken(req.RefreshToken)); err != nil {
			h.logger.Error().Err(err).Msg("failed to revoke refresh token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log out"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me returns the signed-in account.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMeRequest is the request body for profile edits. Omitted fields are
// left unchanged.
type UpdateMeRequest struct {
	Name         *string `json:"name,omitempty"`
	ProfilePhoto *string `json:"profile_photo,omitempty"`
}

// UpdateMe edits the profile of the signed-in account.
// PUT /api/v1/auth/me
func (h *AuthHandler) UpdateMe(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	name, photo := user.Name, user.ProfilePhoto
	if req.Name != nil {
		name = trimmedOrNil(*req.Name)
	}
	if req.ProfilePhoto != nil {
		photo = trimmedOrNil(*req.ProfilePhoto)
	}

	if err := h.store.UpdateUserProfile(c.Request.Context(), user.ID, name, photo); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to update profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	updated := *user
	updated.Name, updated.ProfilePhoto = name, photo
	c.JSON(http.StatusOK, &updated)
}

func trimmedOrNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// ChangePassword sets a new password. Accounts created through Google have
// no password yet and may set one without the current password.
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if user.HasPassword() {
		if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "incorrect current password"})
			return
		}
	}
	if req.NewPassword != req.ConfirmPassword {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !h.storePassword(c, user.ID, req.NewPassword, "failed to change password") {
		return
	}
	h.logger.Info().Str("user_id", user.ID.String()).Msg("password changed")
	c.JSON(http.StatusOK, gin.H{"message": "password changed successfully"})
}

// Deactivate disables the signed-in account and revokes its sessions.
// POST /api/v1/auth/deactivate
func (h *AuthHandler) Deactivate(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	if err := h.store.DeactivateUser(c.Request.Context(), user.ID); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to deactivate account")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deactivate account"})
		return
	}
	h.logger.Info().Str("user_id", user.ID.String()).Msg("account deactivated")
	c.JSON(http.StatusOK, gin.H{"message": "account deactivated"})
}

func (h *AuthHandler) storePassword(c *gin.Context, id uuid.UUID, password, failure string) bool {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = h.store.SetPassword(c.Request.Context(), id, hash)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", id.String()).Msg(failure)
		c.JSON(http.StatusInternalServerError, gin.H{"error": failure})
		return false
	}
	return true
}

// newVerification stores a fresh verification code for user.
func (h *AuthHandler) newVerification(ctx context.Context, user *models.User) (string, string, error) {
	code, err := auth.GenerateCode(auth.CodeLength)
	if err != nil {
		return "", "", err
	}
	verificationID := uuid.NewString()
	if err := h.store.SetVerificationCode(ctx, user.ID, verificationID, auth.HashToken(code)); err != nil {
		return "", "", err
	}
	return verificationID, code, nil
}

func (h *AuthHandler) sendVerification(ctx context.Context, user *models.User, code string) {
	if err := h.notifier.SendVerificationCode(ctx, h.message(user, code, "", auth.VerificationTTL)); err != nil {
		h.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to send verification code")
	}
}

func (h *AuthHandler) message(user *models.User, code, link string, ttl time.Duration) notify.Message {
	msg := notify.Message{To: user.Email, Code: code, Link: link, ExpiresIn: ttl}
	if user.Name != nil {
		msg.Name = *user.Name
	}
	return msg
}

func (h *AuthHandler) unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
}
