package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"auraroll/internal/validation"
)

// Identity provider names accepted by IDENTITY_PROVIDER.
const (
	ProviderSteam = "steam"
	ProviderOIDC  = "oidc"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string `env:"ENV" envDefault:"development"`

	// Server
	ServerAddr  string `env:"SERVER_ADDR" envDefault:":3000"`
	CORSOrigins string `env:"CORS_ORIGINS"` // Comma-separated allowed origins

	// Per-IP request limiter, independent of the per-identity cooldown
	RateLimitMax    int    `env:"RATE_LIMIT_MAX" envDefault:"100"` // requests per minute per IP
	LimiterRedisURL string `env:"LIMITER_REDIS_URL"`               // optional shared limiter storage

	// TLS/mTLS
	TLSEnabled  bool   `env:"TLS_ENABLED"`
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`
	TLSCAFile   string `env:"TLS_CA_FILE"` // CA for verifying client certs (mTLS)

	// Steam application
	AppID  string `env:"STEAM_APP_ID"`
	APIKey string `env:"STEAM_WEB_API_KEY"`

	// Identity verification
	IdentityProvider string        `env:"IDENTITY_PROVIDER" envDefault:"steam"`
	RequireAssertion bool          `env:"REQUIRE_ASSERTION" envDefault:"true"`
	SteamAuthURL     string        `env:"STEAM_AUTH_URL" envDefault:"https://api.steampowered.com/ISteamUserAuth/AuthenticateUserTicket/v1/"`
	OIDCIssuer       string        `env:"OIDC_ISSUER"`
	OIDCClientID     string        `env:"OIDC_CLIENT_ID"`
	VerifyTimeout    time.Duration `env:"VERIFY_TIMEOUT" envDefault:"5s"`

	// Reward grant
	SteamGrantURL string        `env:"STEAM_GRANT_URL" envDefault:"https://partner.steam-api.com/IInventoryService/AddItem/v1/"`
	GrantTimeout  time.Duration `env:"GRANT_TIMEOUT" envDefault:"5s"`

	// Roll policy
	CooldownSeconds int    `env:"COOLDOWN_SECONDS" envDefault:"60"`
	RewardWeights   string `env:"REWARD_WEIGHTS" envDefault:"100:75,101:30,102:10,103:3,104:1"`
	RewardTableFile string `env:"REWARD_TABLE_FILE"` // YAML; takes precedence over REWARD_WEIGHTS

	// Expired cooldown entries are kept for the process lifetime unless set
	CooldownPruneInterval time.Duration `env:"COOLDOWN_PRUNE_INTERVAL" envDefault:"0s"`

	// Tracing
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required values and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	if c.AppID == "" {
		errs = append(errs, errors.New("STEAM_APP_ID is required"))
	}
	if c.APIKey == "" {
		errs = append(errs, errors.New("STEAM_WEB_API_KEY is required"))
	}
	if c.CooldownSeconds <= 0 {
		errs = append(errs, fmt.Errorf("COOLDOWN_SECONDS must be positive, got %d", c.CooldownSeconds))
	}
	if c.VerifyTimeout <= 0 {
		errs = append(errs, errors.New("VERIFY_TIMEOUT must be positive"))
	}
	if c.GrantTimeout <= 0 {
		errs = append(errs, errors.New("GRANT_TIMEOUT must be positive"))
	}
	if c.CooldownPruneInterval < 0 {
		errs = append(errs, errors.New("COOLDOWN_PRUNE_INTERVAL must not be negative"))
	}
	if c.RateLimitMax <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_MAX must be positive"))
	}
	if ok, msg := validation.ValidateURL(c.SteamGrantURL); !ok {
		errs = append(errs, fmt.Errorf("STEAM_GRANT_URL: %s", msg))
	}

	switch c.IdentityProvider {
	case ProviderSteam:
		if ok, msg := validation.ValidateURL(c.SteamAuthURL); !ok {
			errs = append(errs, fmt.Errorf("STEAM_AUTH_URL: %s", msg))
		}
	case ProviderOIDC:
		if ok, msg := validation.ValidateURL(c.OIDCIssuer); !ok {
			errs = append(errs, fmt.Errorf("OIDC_ISSUER: %s", msg))
		}
		if c.OIDCClientID == "" {
			errs = append(errs, errors.New("OIDC_CLIENT_ID is required when IDENTITY_PROVIDER=oidc"))
		}
	default:
		errs = append(errs, fmt.Errorf("IDENTITY_PROVIDER must be %q or %q, got %q", ProviderSteam, ProviderOIDC, c.IdentityProvider))
	}

	if c.TLSEnabled && (c.TLSCertFile == "" || c.TLSKeyFile == "") {
		errs = append(errs, errors.New("TLS_CERT_FILE and TLS_KEY_FILE are required when TLS_ENABLED"))
	}

	return errors.Join(errs...)
}

// Cooldown returns the cooldown window as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsMTLSEnabled returns true if mTLS is configured with a CA file.
func (c *Config) IsMTLSEnabled() bool {
	return c.TLSEnabled && c.TLSCAFile != ""
}
