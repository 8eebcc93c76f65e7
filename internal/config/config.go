// Package config loads Resumate configuration from resumate.yaml, .env and
// RESUMATE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the Resumate configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Auth        AuthConfig      `mapstructure:"auth"`
	LLM         LLMConfig       `mapstructure:"llm"`
	Billing     BillingConfig   `mapstructure:"billing"`
	Mail        MailConfig      `mapstructure:"mail"`
	Storage     StorageConfig   `mapstructure:"storage"`
	AMQP        AMQPConfig      `mapstructure:"amqp"`
	RateLimit   RateLimitConfig `mapstructure:"ratelimit"`
	Log         LogConfig       `mapstructure:"log"`
	Jobs        JobsConfig      `mapstructure:"jobs"`
	Autosave    AutosaveConfig  `mapstructure:"autosave"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	APIPrefix       string        `mapstructure:"api_prefix"`
	BaseURL         string        `mapstructure:"base_url"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TLSCertFile     string        `mapstructure:"tls_cert_file"`
	TLSKeyFile      string        `mapstructure:"tls_key_file"`
	Profiling       bool          `mapstructure:"profiling"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig represents Redis configuration. An empty Addr selects the
// in-memory cache and rate limiter.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// AuthConfig represents token and sign-in configuration
type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
	VerificationTTL    time.Duration `mapstructure:"verification_ttl"`
	GoogleClientID     string        `mapstructure:"google_client_id"`
	GoogleClientSecret string        `mapstructure:"google_client_secret"`
	GoogleRedirectURL  string        `mapstructure:"google_redirect_url"`
}

// LLMConfig selects and configures the completion backend
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"`
	OpenAIAPIKey    string        `mapstructure:"openai_api_key"`
	OpenAIBaseURL   string        `mapstructure:"openai_base_url"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	AnalysisModel   string        `mapstructure:"analysis_model"`
	GenerationModel string        `mapstructure:"generation_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

// BillingConfig holds payment gateway credentials and plan pricing
type BillingConfig struct {
	KeyID           string  `mapstructure:"razorpay_key_id"`
	KeySecret       string  `mapstructure:"razorpay_key_secret"`
	GatewayURL      string  `mapstructure:"razorpay_base_url"`
	Currency        string  `mapstructure:"currency"`
	MonthlyPrice    float64 `mapstructure:"monthly_price"`
	LifetimePrice   float64 `mapstructure:"lifetime_price"`
	FreeCredits     int     `mapstructure:"free_credits"`
	FreeResumeLimit int     `mapstructure:"free_resume_limit"`
}

// MailConfig configures the transactional email provider
type MailConfig struct {
	APIKey  string `mapstructure:"resend_api_key"`
	BaseURL string `mapstructure:"resend_base_url"`
	From    string `mapstructure:"from"`
}

// StorageConfig configures S3-compatible object storage for resume photos
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// AMQPConfig configures the domain event publisher
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

// RateLimitConfig holds per-minute request budgets
type RateLimitConfig struct {
	AIPerMinute   int `mapstructure:"ai_per_minute"`
	AuthPerMinute int `mapstructure:"auth_per_minute"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// JobsConfig configures the background worker pool
type JobsConfig struct {
	Queue       string        `mapstructure:"queue"`
	Workers     int           `mapstructure:"workers"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	PurgeAfter  time.Duration `mapstructure:"purge_after"`
	InProcess   bool          `mapstructure:"in_process"`
}

// AutosaveConfig configures editor autosave
type AutosaveConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development"
}

// Load loads the configuration from resumate.yml or resumate.yaml in the
// current directory.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads the configuration, looking for resumate.yaml and .env in dir
func LoadFrom(dir string) (*Config, error) {
	// A missing .env is the normal case in production.
	_ = godotenv.Load(dir + "/.env")

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("resumate")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("RESUMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.api_prefix", "/api")
	v.SetDefault("server.base_url", "http://localhost:3000")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.profiling", false)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "resumate:")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.verification_ttl", time.Hour)
	v.SetDefault("auth.google_client_id", "")
	v.SetDefault("auth.google_client_secret", "")
	v.SetDefault("auth.google_redirect_url", "http://localhost:8080/api/auth/google/callback")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.openai_base_url", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.analysis_model", "gpt-4o")
	v.SetDefault("llm.generation_model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.cache_ttl", 24*time.Hour)

	v.SetDefault("billing.razorpay_key_id", "")
	v.SetDefault("billing.razorpay_key_secret", "")
	v.SetDefault("billing.razorpay_base_url", "https://api.razorpay.com")
	v.SetDefault("billing.currency", "USD")
	v.SetDefault("billing.monthly_price", 29.0)
	v.SetDefault("billing.lifetime_price", 140.0)
	v.SetDefault("billing.free_credits", 5)
	v.SetDefault("billing.free_resume_limit", 3)

	v.SetDefault("mail.resend_api_key", "")
	v.SetDefault("mail.resend_base_url", "https://api.resend.com")
	v.SetDefault("mail.from", "Resumate <noreply@resumate.app>")

	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.use_path_style", false)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "resumate.events")

	v.SetDefault("ratelimit.ai_per_minute", 20)
	v.SetDefault("ratelimit.auth_per_minute", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("jobs.queue", "default")
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.max_attempts", 5)
	v.SetDefault("jobs.purge_after", 7*24*time.Hour)
	v.SetDefault("jobs.in_process", true)

	v.SetDefault("autosave.debounce", 1500*time.Millisecond)
}

// Validate checks the configuration for values the service cannot run with
func Validate(cfg *Config) error {
	if cfg.Server.APIPrefix != "" {
		if !strings.HasPrefix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must start with '/', got: %s", cfg.Server.APIPrefix)
		}
		if strings.HasSuffix(cfg.Server.APIPrefix, "/") {
			return fmt.Errorf("server.api_prefix must not end with '/', got: %s", cfg.Server.APIPrefix)
		}
	}

	if cfg.Auth.JWTSecret == "" && !cfg.IsDevelopment() {
		return fmt.Errorf("auth.jwt_secret is required outside development")
	}

	switch cfg.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider must be one of openai, gemini, got: %s", cfg.LLM.Provider)
	}

	if cfg.Billing.MonthlyPrice <= 0 || cfg.Billing.LifetimePrice <= 0 {
		return fmt.Errorf("billing prices must be positive")
	}

	if cfg.Billing.FreeCredits < 0 || cfg.Billing.FreeResumeLimit < 0 {
		return fmt.Errorf("billing.free_credits and billing.free_resume_limit must not be negative")
	}

	return nil
}
