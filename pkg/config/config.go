package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-catalog.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"5050"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// MigrationsPath is the directory holding the golang-migrate SQL files.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`

	Auth     AuthConfig     `yaml:"auth"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Import   ImportConfig   `yaml:"import"`
	LLM      LLMConfig      `yaml:"llm"`

	// CredentialsKey encrypts stored LLM provider secrets.
	// Base64 32-byte key or any passphrase. Generate with: openssl rand -base64 32
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"` // Secret - not in YAML
}

// AuthConfig holds session and token settings.
type AuthConfig struct {
	// SessionSecret signs the session cookie. Secret - env only.
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"`
	// SessionMaxAge is the session cookie lifetime in seconds.
	SessionMaxAge int `yaml:"session_max_age" env:"SESSION_MAX_AGE" env-default:"86400"`
	// JWTSecret signs API tokens (HS256). Secret - env only.
	JWTSecret string `yaml:"-" env:"JWT_SECRET"`
	// TokenTTL is the lifetime of issued API tokens.
	TokenTTL time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"12h"`
	// CookieDomain is the domain for session cookies (optional).
	CookieDomain string `yaml:"cookie_domain" env:"COOKIE_DOMAIN" env-default:""`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"catalog"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ekaya_catalog"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis configuration. Redis is optional; an empty host
// keeps staged import previews in process memory.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ImportConfig controls bulk import behaviour.
type ImportConfig struct {
	// MaxUploadBytes caps the size of an uploaded import file.
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"IMPORT_MAX_UPLOAD_BYTES" env-default:"33554432"`
	// PreviewTTL is how long a staged preview survives before it must be re-uploaded.
	PreviewTTL time.Duration `yaml:"preview_ttl" env:"IMPORT_PREVIEW_TTL" env-default:"30m"`
}

// LLMConfig holds server-level defaults for LLM-assisted analysis.
// Per-user credentials live in the llm_settings table.
type LLMConfig struct {
	DefaultProvider string        `yaml:"default_provider" env:"LLM_DEFAULT_PROVIDER" env-default:"openai"`
	DefaultModel    string        `yaml:"default_model" env:"LLM_DEFAULT_MODEL" env-default:"gpt-4o-mini"`
	OllamaBaseURL   string        `yaml:"ollama_base_url" env:"OLLAMA_BASE_URL" env-default:"http://localhost:11434/v1"`
	ApolloBaseURL   string        `yaml:"apollo_base_url" env:"APOLLO_BASE_URL" env-default:""`
	ApolloTokenURL  string        `yaml:"apollo_token_url" env:"APOLLO_TOKEN_URL" env-default:""`
	Timeout         time.Duration `yaml:"timeout" env:"LLM_TIMEOUT" env-default:"120s"`
	MaxTokens       int           `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"2048"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error; defaults and environment variables apply.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if err := cfg.validateSecrets(); err != nil {
		return nil, err
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// IsLocal reports whether the server runs in a local development environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "test"
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// validateSecrets requires real secrets outside local environments.
// Local runs fall back to fixed development secrets.
func (c *Config) validateSecrets() error {
	if c.IsLocal() {
		if c.Auth.SessionSecret == "" {
			c.Auth.SessionSecret = "local-session-secret"
		}
		if c.Auth.JWTSecret == "" {
			c.Auth.JWTSecret = "local-jwt-secret"
		}
		if c.CredentialsKey == "" {
			c.CredentialsKey = "local-credentials-key"
		}
		return nil
	}

	if c.Auth.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in %s environment", c.Env)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in %s environment", c.Env)
	}
	if c.CredentialsKey == "" {
		return fmt.Errorf("CREDENTIALS_KEY is required in %s environment", c.Env)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as required by golang-migrate.
func (c *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
