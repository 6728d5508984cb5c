package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MacJediWizard/dealbook/internal/auth"
	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/MacJediWizard/dealbook/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// GoogleAuthenticator runs the authorization code flow. *auth.GoogleProvider
// satisfies it.
type GoogleAuthenticator interface {
	AuthorizationURL(state string) string
	Authenticate(ctx context.Context, code string) (*auth.GoogleClaims, error)
}

// OAuthStateStore keeps the CSRF state between login and callback.
// *auth.StateStore satisfies it.
type OAuthStateStore interface {
	Begin(r *http.Request, w http.ResponseWriter) (string, error)
	Consume(r *http.Request, w http.ResponseWriter) (string, error)
}

// GoogleUserStore links Google identities to accounts.
type GoogleUserStore interface {
	RefreshTokenStore
	UpsertGoogleUser(ctx context.Context, p db.GoogleProfile) (*models.User, error)
}

// GoogleHandler handles Google sign-in.
type GoogleHandler struct {
	provider    GoogleAuthenticator
	states      OAuthStateStore
	store       GoogleUserStore
	sessions    *sessionIssuer
	frontendURL string
	logger      zerolog.Logger
}

// NewGoogleHandler creates a new GoogleHandler.
func NewGoogleHandler(provider GoogleAuthenticator, states OAuthStateStore, store GoogleUserStore, tokens TokenIssuer, cfg AuthConfig, logger zerolog.Logger) *GoogleHandler {
	return &GoogleHandler{
		provider: provider,
		states:   states,
		store:    store,
		sessions: &sessionIssuer{
			tokens:      tokens,
			store:       store,
			refreshTTL:  cfg.RefreshTokenTTL,
			adminDomain: cfg.AdminEmailDomain,
			now:         time.Now,
		},
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		logger:      logger.With().Str("component", "google_handler").Logger(),
	}
}

// RegisterRoutes registers the Google sign-in routes.
func (h *GoogleHandler) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group("/auth/google")
	{
		g.GET("/login", h.Login)
		g.GET("/callback", h.Callback)
	}
}

// Login redirects to the Google consent screen.
// GET /api/v1/auth/google/login
func (h *GoogleHandler) Login(c *gin.Context) {
	state, err := h.states.Begin(c.Request, c.Writer)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to start google sign-in")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start google sign-in"})
		return
	}
	c.Redirect(http.StatusFound, h.provider.AuthorizationURL(state))
}

// Callback completes the code flow and hands an access token to the
// frontend.
// GET /api/v1/auth/google/callback?code=&state=
func (h *GoogleHandler) Callback(c *gin.Context) {
	if msg := c.Query("error"); msg != "" {
		h.fail(c, "google sign-in was cancelled", nil)
		return
	}

	expected, err := h.states.Consume(c.Request, c.Writer)
	if err != nil {
		h.fail(c, "sign-in session expired, please try again", err)
		return
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(c.Query("state"))) != 1 {
		h.fail(c, "invalid sign-in state", nil)
		return
	}
	code := c.Query("code")
	if code == "" {
		h.fail(c, "missing authorization code", nil)
		return
	}

	ctx := c.Request.Context()
	claims, err := h.provider.Authenticate(ctx, code)
	if err != nil {
		h.fail(c, "google sign-in failed", err)
		return
	}
	if claims.Email == "" || !claims.EmailVerified {
		h.fail(c, "google account has no verified email", nil)
		return
	}

	user, err := h.store.UpsertGoogleUser(ctx, googleProfile(claims))
	if err != nil {
		h.fail(c, "failed to sign in", err)
		return
	}
	if !user.IsActive {
		h.fail(c, "account has been deactivated", nil)
		return
	}

	token, err := h.sessions.accessToken(user)
	if err != nil {
		h.fail(c, "failed to sign in", err)
		return
	}

	h.logger.Info().Str("user_id", user.ID.String()).Msg("google sign-in completed")
	c.Redirect(http.StatusFound, h.frontendURL+"/auth-callback?token="+url.QueryEscape(token))
}

func (h *GoogleHandler) fail(c *gin.Context, msg string, err error) {
	if err != nil {
		h.logger.Warn().Err(err).Msg(msg)
	}
	c.Redirect(http.StatusFound, h.frontendURL+"/auth-error?message="+url.QueryEscape(msg))
}

func googleProfile(claims *auth.GoogleClaims) db.GoogleProfile {
	p := db.GoogleProfile{
		Subject: claims.Subject,
		Email:   normalizeEmail(claims.Email),
		Picture: trimmedOrNil(claims.Picture),
	}
	name := claims.Name
	if strings.TrimSpace(name) == "" {
		name = claims.GivenName + " " + claims.FamilyName
	}
	p.Name = trimmedOrNil(name)
	return p
}
