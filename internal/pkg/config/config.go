package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8080"`
	AdminAddr string `env:"ADMIN_ADDR" envDefault:":9091"`

	SupabaseURL       string `env:"SUPABASE_URL,notEmpty"`
	SupabaseSecretKey string `env:"SUPABASE_SECRET_KEY,notEmpty"`
	// SupabaseJWTSecret enables local access-token verification.
	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET"`

	DirectoryBackend string `env:"DIRECTORY_BACKEND" envDefault:"supabase"`
	PostgresURL      string `env:"POSTGRES_URL"`
	PostgresMigrate  bool   `env:"POSTGRES_MIGRATE" envDefault:"false"`

	RedisURL      string        `env:"REDIS_URL"`
	PhoneCacheTTL time.Duration `env:"PHONE_CACHE_TTL" envDefault:"1m"`
	TokenCacheTTL time.Duration `env:"TOKEN_CACHE_TTL" envDefault:"30s"`

	ProviderTimeout    time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	MaxBodyBytes       int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"` // 1MB
	AuthRateLimitRPS   float64       `env:"AUTH_RATE_LIMIT_RPS" envDefault:"1"`
	AuthRateLimitBurst int           `env:"AUTH_RATE_LIMIT_BURST" envDefault:"5"`

	DefaultTimezone    string   `env:"DEFAULT_TIMEZONE" envDefault:"America/Toronto"`
	SignupCompensate   bool     `env:"SIGNUP_COMPENSATE" envDefault:"false"`
	PIIRedactionFields []string `env:"PII_REDACTION_FIELDS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.DirectoryBackend {
	case BackendSupabase:
	case BackendPostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required when DIRECTORY_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown DIRECTORY_BACKEND %q", c.DirectoryBackend)
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("MAX_BODY_BYTES must be positive")
	}
	if c.AuthRateLimitRPS > 0 && c.AuthRateLimitBurst < 1 {
		return errors.New("AUTH_RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	return nil
}
