// Package api provides the HTTP API for the Dealbook server.
package api

import (
	"fmt"
	"time"

	"github.com/MacJediWizard/dealbook/internal/api/handlers"
	"github.com/MacJediWizard/dealbook/internal/api/middleware"
	"github.com/MacJediWizard/dealbook/internal/auth"
	"github.com/MacJediWizard/dealbook/internal/catalog"
	"github.com/MacJediWizard/dealbook/internal/config"
	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/MacJediWizard/dealbook/internal/metrics"
	"github.com/MacJediWizard/dealbook/internal/notify"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"

	_ "github.com/MacJediWizard/dealbook/docs/api"
)

// Config holds configuration for the API router.
type Config struct {
	Environment config.Environment
	// AllowedOrigins for CORS. Empty is only accepted outside production.
	AllowedOrigins []string
	MaxBodyBytes   int64
	Version        string
	Auth           handlers.AuthConfig
	// Failed login/refresh attempts allowed per IP within AuthAttemptWindow
	// before the IP is blocked for AuthBlockDuration.
	AuthAttemptLimit  int
	AuthAttemptWindow time.Duration
	AuthBlockDuration time.Duration
}

// ConfigFromServer maps the server configuration onto the router settings.
func ConfigFromServer(cfg config.ServerConfig, version string) Config {
	return Config{
		Environment:    cfg.Environment,
		AllowedOrigins: cfg.CORSOrigins,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		Version:        version,
		Auth: handlers.AuthConfig{
			RefreshTokenTTL:  cfg.RefreshTokenTTL,
			FrontendURL:      cfg.FrontendURL,
			AdminEmailDomain: cfg.AdminEmailDomain,
		},
		AuthAttemptLimit:  cfg.AuthAttemptLimit,
		AuthAttemptWindow: cfg.AuthAttemptWindow,
		AuthBlockDuration: cfg.AuthBlockDuration,
	}
}

// Dependencies are the services the handlers are built from.
type Dependencies struct {
	DB       *db.DB
	Tokens   *auth.TokenService
	Notifier notify.Notifier
	Catalog  *catalog.Catalog
	Metrics  *metrics.Metrics
	// LimiterStore backs the rate limiter and the auth guard.
	LimiterStore limiter.Store
	// Google and States enable Google sign-in when both are set.
	Google handlers.GoogleAuthenticator
	States handlers.OAuthStateStore
}

// Router wraps a Gin engine with configured middleware and routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with the given dependencies.
func NewRouter(cfg Config, deps Dependencies, logger zerolog.Logger) (*Router, error) {
	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	cors, err := middleware.CORS(cfg.AllowedOrigins, cfg.Environment, logger)
	if err != nil {
		return nil, fmt.Errorf("configure cors: %w", err)
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))
	r.Engine.Use(middleware.SecurityHeaders())
	r.Engine.Use(cors)
	r.Engine.Use(middleware.BodyLimitMiddleware(cfg.MaxBodyBytes))
	r.Engine.Use(deps.Metrics.Middleware())
	r.Engine.Use(middleware.NewTierRateLimiter(deps.LimiterStore, deps.Tokens, logger).Middleware())

	// Health, metrics and docs (no auth required)
	handlers.NewHealthHandler(deps.DB, cfg.Version, logger).RegisterPublicRoutes(r.Engine)
	r.Engine.GET("/metrics", deps.Metrics.Handler())
	r.Engine.GET("/api/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/api/docs/doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	public := r.Engine.Group("/api/v1")

	guard := middleware.NewAuthGuard(deps.LimiterStore, int64(cfg.AuthAttemptLimit), cfg.AuthAttemptWindow, cfg.AuthBlockDuration, logger)
	authHandler := handlers.NewAuthHandler(deps.DB, deps.Tokens, deps.Notifier, cfg.Auth, logger)
	authHandler.RegisterPublicRoutes(public, guard.Middleware())

	if deps.Google != nil && deps.States != nil {
		handlers.NewGoogleHandler(deps.Google, deps.States, deps.DB, deps.Tokens, cfg.Auth, logger).RegisterRoutes(public)
	} else {
		r.logger.Info().Msg("google sign-in disabled")
	}

	handlers.NewFiltersHandler(deps.Catalog, logger).RegisterRoutes(public)

	// API v1 routes (auth required)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(deps.Tokens, deps.DB, cfg.Auth.AdminEmailDomain, logger))

	authHandler.RegisterRoutes(apiV1)
	handlers.NewUsersHandler(deps.DB, cfg.Auth.AdminEmailDomain, logger).RegisterRoutes(apiV1)
	handlers.NewInvestorsHandler(deps.DB, deps.DB, deps.Metrics, logger).RegisterRoutes(apiV1, "/investors")
	handlers.NewFundsHandler(deps.DB, deps.DB, deps.Metrics, logger).RegisterRoutes(apiV1, "/funds")
	handlers.NewDirectoryHandler(deps.DB, logger).RegisterRoutes(apiV1)
	handlers.NewListsHandler(deps.DB, deps.Metrics, logger).RegisterRoutes(apiV1)
	handlers.NewExportHandler(deps.DB, deps.Metrics, logger).RegisterRoutes(apiV1)

	r.logger.Info().Msg("API router initialized")
	return r, nil
}
