package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage
	DBPath string `envconfig:"FOCUSDECK_DB_PATH" default:"focusdeck.db"`

	// Seed data (optional YAML file; embedded defaults otherwise)
	SeedPath string `envconfig:"FOCUSDECK_SEED_PATH"`

	// HTTP API
	ListenAddr     string `envconfig:"FOCUSDECK_LISTEN_ADDR" default:":8450"`
	AuthMode       string `envconfig:"FOCUSDECK_AUTH_MODE" default:"none"` // none | api-key | jwt
	APIKey         string `envconfig:"FOCUSDECK_API_KEY"`
	JWTSecret      string `envconfig:"FOCUSDECK_JWT_SECRET"`
	RateLimitRPS   int    `envconfig:"FOCUSDECK_RATE_LIMIT_RPS" default:"50"`
	RateLimitBurst int    `envconfig:"FOCUSDECK_RATE_LIMIT_BURST" default:"100"`
	CORSOrigins    string `envconfig:"FOCUSDECK_CORS_ORIGINS"`
	TLSCert        string `envconfig:"FOCUSDECK_TLS_CERT"`
	TLSKey         string `envconfig:"FOCUSDECK_TLS_KEY"`
}

// Validate checks cross-field constraints that envconfig cannot express.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case "none":
	case "api-key":
		if c.APIKey == "" {
			return fmt.Errorf("FOCUSDECK_API_KEY is required when auth mode is api-key")
		}
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("FOCUSDECK_JWT_SECRET is required when auth mode is jwt")
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.AuthMode)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit values must be non-negative")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
