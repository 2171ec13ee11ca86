// Package config loads tradeline-engine configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Store backend selectors.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Verifier provider selectors.
const (
	VerifierSimulated = "simulated"
	VerifierOpenAI    = "openai"
	VerifierAnthropic = "anthropic"
)

// Config holds all configuration for tradeline-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values. Secrets (keys, passwords)
// must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// FrontendURL is the base URL templated into deal invite links.
	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`

	// Store selects the repository backend: "memory" or "postgres".
	Store string `yaml:"store" env:"STORE" env-default:"memory"`

	// Database configuration (PostgreSQL, used when store = postgres)
	Database DatabaseConfig `yaml:"database"`

	// Auth holds bearer-token settings.
	Auth AuthConfig `yaml:"auth"`

	// Verification holds document verification collaborator settings.
	Verification VerificationConfig `yaml:"verification"`

	// EncryptionKey protects deal details and document payloads at rest.
	// Accepts a base64- or hex-encoded 32-byte key, or any passphrase.
	// Empty falls back to the insecure development key.
	EncryptionKey string `yaml:"-" env:"ENCRYPTION_KEY"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"tradeline"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"tradeline_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// URL returns the connection string for the database.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// AuthConfig holds bearer-token configuration.
type AuthConfig struct {
	// SigningKey signs HS256 session tokens. Empty is allowed only in the
	// local environment.
	SigningKey string `yaml:"-" env:"TOKEN_SIGNING_KEY"` // Secret - not in YAML

	// TokenTTLMinutes is how long issued tokens stay valid.
	TokenTTLMinutes int `yaml:"token_ttl_minutes" env:"TOKEN_TTL_MINUTES" env-default:"720"`
}

// VerificationConfig holds settings for the document verification
// collaborator. The simulated provider needs no credentials; the LLM
// providers call an external model to detect principal-identifying content.
type VerificationConfig struct {
	Provider string `yaml:"provider" env:"VERIFICATION_PROVIDER" env-default:"simulated"`

	// DelayMs is the simulated provider's processing delay.
	DelayMs int `yaml:"delay_ms" env:"VERIFICATION_DELAY_MS" env-default:"2000"`

	// Endpoint and Model configure the LLM providers.
	Endpoint string `yaml:"endpoint" env:"VERIFICATION_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"VERIFICATION_MODEL" env-default:""`
	APIKey   string `yaml:"-" env:"VERIFICATION_API_KEY"` // Secret - not in YAML
}

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml does not exist, configuration comes from the
// environment alone. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("invalid store %q: must be %q or %q", c.Store, StoreMemory, StorePostgres)
	}

	switch c.Verification.Provider {
	case VerifierSimulated, VerifierOpenAI, VerifierAnthropic:
	default:
		return fmt.Errorf("invalid verification provider %q", c.Verification.Provider)
	}

	if c.Verification.Provider != VerifierSimulated && c.Verification.Model == "" {
		return fmt.Errorf("verification provider %q requires VERIFICATION_MODEL", c.Verification.Provider)
	}

	if c.Env != "local" {
		if c.EncryptionKey == "" {
			return fmt.Errorf("ENCRYPTION_KEY is required outside the local environment")
		}
		if c.Auth.SigningKey == "" {
			return fmt.Errorf("TOKEN_SIGNING_KEY is required outside the local environment")
		}
	}

	c.FrontendURL = strings.TrimSuffix(c.FrontendURL, "/")

	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return c.BindAddr + ":" + c.Port
}
