package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// GoogleIssuer is Google's OpenID Connect issuer.
const GoogleIssuer = "https://accounts.google.com"

// GoogleConfig holds the OAuth client registration.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// GoogleClaims are the ID token claims used to provision accounts.
type GoogleClaims struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// GoogleProvider performs the authorization code flow against Google.
type GoogleProvider struct {
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
	logger       zerolog.Logger
}

// NewGoogleProvider discovers Google's endpoints and builds the verifier.
func NewGoogleProvider(ctx context.Context, cfg GoogleConfig, logger zerolog.Logger) (*GoogleProvider, error) {
	provider, err := oidc.NewProvider(ctx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("discover google provider: %w", err)
	}

	g := &GoogleProvider{
		oauth2Config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		logger:   logger.With().Str("component", "google_auth").Logger(),
	}
	g.logger.Info().Str("redirect_url", cfg.RedirectURL).Msg("google sign-in enabled")
	return g, nil
}

// AuthorizationURL returns the consent screen URL for state.
func (g *GoogleProvider) AuthorizationURL(state string) string {
	return g.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for tokens.
func (g *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := g.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return token, nil
}

// VerifyIDToken verifies the ID token in an oauth2 token response and
// extracts its claims. Accounts without a verified email are rejected.
func (g *GoogleProvider) VerifyIDToken(ctx context.Context, token *oauth2.Token) (*GoogleClaims, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("no id_token in token response")
	}
	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify ID token: %w", err)
	}

	var claims GoogleClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extract claims: %w", err)
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, fmt.Errorf("google account has no verified email")
	}
	g.logger.Debug().Str("subject", claims.Subject).Msg("google ID token verified")
	return &claims, nil
}

// Authenticate exchanges the code and verifies the resulting ID token.
func (g *GoogleProvider) Authenticate(ctx context.Context, code string) (*GoogleClaims, error) {
	token, err := g.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return g.VerifyIDToken(ctx, token)
}
