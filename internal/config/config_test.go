package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadFrom(tmpDir)
	if err != nil {
		t.Fatalf("expected no error loading defaults, got %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.APIPrefix != "/api" {
		t.Errorf("expected default api prefix /api, got %s", cfg.Server.APIPrefix)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected default provider openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.AnalysisModel != "gpt-4o" {
		t.Errorf("expected analysis model gpt-4o, got %s", cfg.LLM.AnalysisModel)
	}
	if cfg.Billing.MonthlyPrice != 29 || cfg.Billing.LifetimePrice != 140 {
		t.Errorf("unexpected default prices: %v / %v", cfg.Billing.MonthlyPrice, cfg.Billing.LifetimePrice)
	}
	if cfg.Autosave.Debounce != 1500*time.Millisecond {
		t.Errorf("expected 1500ms debounce, got %v", cfg.Autosave.Debounce)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development environment by default")
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `
environment: production
server:
  port: 9090
  host: 127.0.0.1
auth:
  jwt_secret: file-secret
llm:
  provider: gemini
  timeout: 5s
billing:
  free_credits: 10
`
	if err := os.WriteFile(filepath.Join(tmpDir, "resumate.yaml"), []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFrom(tmpDir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Server.Addr() != "127.0.0.1:9090" {
		t.Errorf("expected addr 127.0.0.1:9090, got %s", cfg.Server.Addr())
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected provider gemini, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.LLM.Timeout)
	}
	if cfg.Billing.FreeCredits != 10 {
		t.Errorf("expected 10 free credits, got %d", cfg.Billing.FreeCredits)
	}
	if cfg.IsDevelopment() {
		t.Error("expected production environment")
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	tmpDir := t.TempDir()

	t.Setenv("RESUMATE_SERVER_PORT", "7000")
	t.Setenv("RESUMATE_AUTH_JWT_SECRET", "env-secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/resumate")

	cfg, err := LoadFrom(tmpDir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000 from env, got %d", cfg.Server.Port)
	}
	if cfg.Auth.JWTSecret != "env-secret" {
		t.Errorf("expected jwt secret from env, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Database.URL != "postgres://localhost/resumate" {
		t.Errorf("expected DATABASE_URL fallback, got %q", cfg.Database.URL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("RESUMATE_MAIL_FROM=Team <team@example.com>\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("RESUMATE_MAIL_FROM") })

	cfg, err := LoadFrom(tmpDir)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Mail.From != "Team <team@example.com>" {
		t.Errorf("expected mail.from from .env, got %q", cfg.Mail.From)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment: "production",
			Server:      ServerConfig{APIPrefix: "/api"},
			Auth:        AuthConfig{JWTSecret: "secret"},
			LLM:         LLMConfig{Provider: "openai"},
			Billing:     BillingConfig{MonthlyPrice: 29, LifetimePrice: 140},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"prefix without slash", func(c *Config) { c.Server.APIPrefix = "api" }, true},
		{"prefix with trailing slash", func(c *Config) { c.Server.APIPrefix = "/api/" }, true},
		{"missing secret in production", func(c *Config) { c.Auth.JWTSecret = "" }, true},
		{"missing secret in development", func(c *Config) { c.Auth.JWTSecret = ""; c.Environment = "development" }, false},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "llama" }, true},
		{"zero price", func(c *Config) { c.Billing.MonthlyPrice = 0 }, true},
		{"negative credits", func(c *Config) { c.Billing.FreeCredits = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
