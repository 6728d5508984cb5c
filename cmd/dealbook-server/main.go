// Package main is the entrypoint for the Dealbook server.
//
// @title           Dealbook API
// @version         1.0
// @description     Dealbook - investor and investment fund directory with tiered search, saved lists and exports.
//
// @contact.name   Dealbook Support
// @contact.url    https://github.com/MacJediWizard/dealbook
//
// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT
//
// @host      localhost:8000
// @BasePath  /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Access token from verify-otp, verify-email or refresh. Use format: Bearer <token>
//
// @tag.name Auth
// @tag.description Registration, sign-in codes, password reset and token refresh
// @tag.name Users
// @tag.description Profile, subscription tier and usage
// @tag.name Investors
// @tag.description Investor directory
// @tag.name Funds
// @tag.description Investment fund directory
// @tag.name Lists
// @tag.description Saved lists of investors and funds
// @tag.name Export
// @tag.description CSV and XLSX downloads
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MacJediWizard/dealbook/internal/api"
	"github.com/MacJediWizard/dealbook/internal/api/middleware"
	"github.com/MacJediWizard/dealbook/internal/auth"
	"github.com/MacJediWizard/dealbook/internal/catalog"
	"github.com/MacJediWizard/dealbook/internal/config"
	"github.com/MacJediWizard/dealbook/internal/db"
	"github.com/MacJediWizard/dealbook/internal/jobs"
	"github.com/MacJediWizard/dealbook/internal/metrics"
	"github.com/MacJediWizard/dealbook/internal/notify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loaded, envErr := config.LoadDotEnv()

	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("version", Version).Logger()
	if os.Getenv("ENV") != string(config.EnvProduction) {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if envErr != nil {
		logger.Error().Err(envErr).Msg("Failed to load .env file")
		return 1
	}

	logger.Info().
		Str("commit", Commit).
		Str("build_date", BuildDate).
		Int("env_files", loaded).
		Msg("Starting Dealbook server")

	// Load configuration
	cfg := config.LoadServerConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	// Connect to database
	database, err := db.New(ctx, db.DefaultConfig(cfg.DatabaseURL), logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to connect to database")
		return 1
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to run database migrations")
		return 1
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize token service")
		return 1
	}

	cat, err := catalog.Default()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load filter catalog")
		return 1
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize email notifier")
		return 1
	}

	// Rate limiter state lives in redis when configured.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error().Err(err).Msg("Invalid REDIS_URL")
			return 1
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error().Err(err).Msg("Failed to connect to redis")
			return 1
		}
		logger.Info().Str("addr", opts.Addr).Msg("Rate limiter using redis")
	}
	limiterStore, err := middleware.NewLimiterStore(redisClient)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize rate limiter store")
		return 1
	}

	// Prometheus
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewDirectoryCollector(database, logger),
	)
	appMetrics, err := metrics.NewMetrics(registry)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to register metrics")
		return 1
	}

	deps := api.Dependencies{
		DB:           database,
		Tokens:       tokens,
		Notifier:     notifier,
		Catalog:      cat,
		Metrics:      appMetrics,
		LimiterStore: limiterStore,
	}

	if cfg.GoogleEnabled() {
		provider, err := auth.NewGoogleProvider(ctx, auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize Google sign-in")
			return 1
		}
		states, err := auth.NewStateStore([]byte(cfg.SessionSecret), cfg.Environment.IsProduction(), logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to initialize OAuth state store")
			return 1
		}
		deps.Google = provider
		deps.States = states
	}

	router, err := api.NewRouter(api.ConfigFromServer(cfg, Version), deps, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize router")
		return 1
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.Engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start maintenance jobs
	var scheduler *jobs.Scheduler
	if cfg.JobsEnabled {
		scheduler = jobs.NewScheduler(database, logger)
		if err := scheduler.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start job scheduler")
			scheduler = nil
		}
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down server")
	case err := <-serverErr:
		logger.Error().Err(err).Msg("HTTP server error")
		exitCode = 1
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown error")
		exitCode = 1
	}
	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn().Msg("Timed out waiting for running jobs")
		}
	}

	logger.Info().Msg("Server stopped")
	return exitCode
}

// newNotifier sends email over SMTP when a host is configured and logs it
// otherwise.
func newNotifier(cfg config.ServerConfig, logger zerolog.Logger) (notify.Notifier, error) {
	if cfg.SMTP.Host == "" {
		logger.Warn().Msg("SMTP_HOST not set, account emails are logged instead of sent")
		return notify.NewLogNotifier(logger), nil
	}
	return notify.NewEmailNotifier(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		TLS:      cfg.SMTP.TLS,
	}, logger)
}
