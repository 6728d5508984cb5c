// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment represents the deployment environment.
type Environment string

const (
	// EnvDevelopment is the default local development environment.
	EnvDevelopment Environment = "development"
	// EnvStaging is the staging/pre-production environment.
	EnvStaging Environment = "staging"
	// EnvProduction is the production environment.
	EnvProduction Environment = "production"
)

// IsProduction reports whether e is the production environment.
func (e Environment) IsProduction() bool {
	return e == EnvProduction
}

// ServerConfig holds server-level configuration loaded from environment variables.
type ServerConfig struct {
	Environment Environment
	ListenAddr  string
	DatabaseURL string

	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	SessionSecret   string

	FrontendURL string
	CORSOrigins []string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	RedisURL         string
	AdminEmailDomain string
	MaxBodyBytes     int64

	AuthAttemptLimit    int
	AuthAttemptWindow   time.Duration
	AuthBlockDuration   time.Duration
	SMTP                SMTPSettings
	S3                  S3Settings
	JobsEnabled         bool
	ShutdownGracePeriod time.Duration
}

// SMTPSettings configures outgoing account email. Email is logged instead of
// sent when Host is empty.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	TLS      bool
}

// S3Settings configures the object store used for imports.
type S3Settings struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c ServerConfig) GoogleEnabled() bool {
	return c.GoogleClientID != ""
}

// LoadDotEnv loads .env files that exist, without overriding variables that
// are already set. It returns how many files were loaded.
func LoadDotEnv(files ...string) (int, error) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return 0, fmt.Errorf("load env files: %w", err)
	}
	return len(existing), nil
}

// LoadServerConfig reads server configuration from environment variables.
func LoadServerConfig() ServerConfig {
	env := Environment(os.Getenv("ENV"))
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction:
		// valid
	default:
		env = EnvDevelopment
	}

	listen := os.Getenv("LISTEN_ADDR")
	if listen == "" {
		listen = ":" + getEnv("PORT", "8000")
	}

	frontend := strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/")
	origins := splitList(os.Getenv("CORS_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{frontend}
	}

	return ServerConfig{
		Environment: env,
		ListenAddr:  listen,
		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSecret:       os.Getenv("JWT_SECRET"),
		JWTIssuer:       getEnv("JWT_ISSUER", "dealbook"),
		AccessTokenTTL:  time.Duration(positive(getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 1440), 1440)) * time.Minute,
		RefreshTokenTTL: time.Duration(positive(getEnvInt("REFRESH_TOKEN_TTL_DAYS", 7), 7)) * 24 * time.Hour,
		SessionSecret:   os.Getenv("SESSION_SECRET"),

		FrontendURL: frontend,
		CORSOrigins: origins,

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		RedisURL:         os.Getenv("REDIS_URL"),
		AdminEmailDomain: strings.TrimPrefix(strings.ToLower(os.Getenv("ADMIN_EMAIL_DOMAIN")), "@"),
		MaxBodyBytes:     int64(positive(getEnvInt("MAX_BODY_BYTES", 10<<20), 10<<20)),

		AuthAttemptLimit:  positive(getEnvInt("AUTH_ATTEMPT_LIMIT", 5), 5),
		AuthAttemptWindow: getEnvDuration("AUTH_ATTEMPT_WINDOW", 5*time.Minute),
		AuthBlockDuration: getEnvDuration("AUTH_BLOCK_DURATION", 15*time.Minute),

		SMTP: SMTPSettings{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "noreply@dealbook.local"),
			TLS:      getEnvBool("SMTP_TLS", false),
		},
		S3: S3Settings{
			Region:          os.Getenv("S3_REGION"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		JobsEnabled:         getEnvBool("JOBS_ENABLED", true),
		ShutdownGracePeriod: getEnvDuration("SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}
}

// Validate checks the settings the server cannot start without.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if len(c.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
	}
	if c.GoogleEnabled() && (c.GoogleClientSecret == "" || c.GoogleRedirectURL == "") {
		errs = append(errs, errors.New("GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL are required when GOOGLE_CLIENT_ID is set"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

// getEnvBool reads a boolean from an environment variable, returning the default if unset or invalid.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultVal
	}
}

// getEnvInt reads an integer from an environment variable, returning the default if unset or invalid.
func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// getEnvDuration accepts Go durations ("90s") or whole seconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}

func positive(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, strings.TrimRight(p, "/"))
		}
	}
	return out
}
