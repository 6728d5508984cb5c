package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadServerConfig_DefaultEnvironment(t *testing.T) {
	t.Setenv("ENV", "")
	cfg := LoadServerConfig()
	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected %q, got %q", EnvDevelopment, cfg.Environment)
	}
}

func TestLoadServerConfig_InvalidEnvironment(t *testing.T) {
	t.Setenv("ENV", "invalid")
	cfg := LoadServerConfig()
	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected %q for invalid ENV, got %q", EnvDevelopment, cfg.Environment)
	}
}

func TestLoadServerConfig_ValidEnvironments(t *testing.T) {
	tests := []struct {
		env  string
		want Environment
	}{
		{"development", EnvDevelopment},
		{"staging", EnvStaging},
		{"production", EnvProduction},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv("ENV", tt.env)
			cfg := LoadServerConfig()
			if cfg.Environment != tt.want {
				t.Errorf("expected %q, got %q", tt.want, cfg.Environment)
			}
		})
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LISTEN_ADDR", "PORT", "ACCESS_TOKEN_TTL_MINUTES", "REFRESH_TOKEN_TTL_DAYS",
		"FRONTEND_URL", "CORS_ORIGINS", "ADMIN_EMAIL_DOMAIN", "MAX_BODY_BYTES",
		"AUTH_ATTEMPT_LIMIT", "AUTH_ATTEMPT_WINDOW", "AUTH_BLOCK_DURATION", "JWT_ISSUER",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	clearEnv(t)
	cfg := LoadServerConfig()

	if cfg.ListenAddr != ":8000" {
		t.Errorf("expected :8000, got %q", cfg.ListenAddr)
	}
	if cfg.AccessTokenTTL != 24*time.Hour {
		t.Errorf("expected 24h access TTL, got %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("expected 7d refresh TTL, got %v", cfg.RefreshTokenTTL)
	}
	if cfg.AuthAttemptLimit != 5 || cfg.AuthAttemptWindow != 5*time.Minute || cfg.AuthBlockDuration != 15*time.Minute {
		t.Errorf("unexpected auth guard defaults: %d %v %v", cfg.AuthAttemptLimit, cfg.AuthAttemptWindow, cfg.AuthBlockDuration)
	}
	if cfg.MaxBodyBytes != 10<<20 {
		t.Errorf("expected 10MiB body limit, got %d", cfg.MaxBodyBytes)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("expected CORS to default to the frontend, got %v", cfg.CORSOrigins)
	}
	if cfg.JWTIssuer != "dealbook" {
		t.Errorf("expected default issuer, got %q", cfg.JWTIssuer)
	}
}

func TestLoadServerConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "30")
	t.Setenv("REFRESH_TOKEN_TTL_DAYS", "-1")
	t.Setenv("CORS_ORIGINS", "https://a.example.com/, https://b.example.com")
	t.Setenv("ADMIN_EMAIL_DOMAIN", "@Dealbook.IO")
	t.Setenv("AUTH_ATTEMPT_WINDOW", "120")
	t.Setenv("AUTH_BLOCK_DURATION", "1h")

	cfg := LoadServerConfig()
	if cfg.ListenAddr != ":9090" {
		t.Errorf("expected :9090, got %q", cfg.ListenAddr)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Errorf("expected 30m, got %v", cfg.AccessTokenTTL)
	}
	if cfg.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("negative refresh TTL should fall back to 7d, got %v", cfg.RefreshTokenTTL)
	}
	if strings.Join(cfg.CORSOrigins, " ") != "https://a.example.com https://b.example.com" {
		t.Errorf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.AdminEmailDomain != "dealbook.io" {
		t.Errorf("expected normalized admin domain, got %q", cfg.AdminEmailDomain)
	}
	if cfg.AuthAttemptWindow != 2*time.Minute || cfg.AuthBlockDuration != time.Hour {
		t.Errorf("unexpected durations %v %v", cfg.AuthAttemptWindow, cfg.AuthBlockDuration)
	}
}

func TestServerConfig_Validate(t *testing.T) {
	secret := strings.Repeat("s", 32)
	valid := ServerConfig{DatabaseURL: "postgres://x", JWTSecret: secret, SessionSecret: secret}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	missing := ServerConfig{JWTSecret: "short"}
	err := missing.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"DATABASE_URL", "JWT_SECRET", "SESSION_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}

	google := valid
	google.GoogleClientID = "client"
	if err := google.Validate(); err == nil {
		t.Error("expected error for partial google config")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DEALBOOK_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("DEALBOOK_TEST_VALUE") })

	n, err := LoadDotEnv(path, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 file loaded, got %d", n)
	}
	if got := os.Getenv("DEALBOOK_TEST_VALUE"); got != "from-file" {
		t.Errorf("expected value from file, got %q", got)
	}
}
