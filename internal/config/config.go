// Package config loads and validates application configuration from YAML
// files and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Identity  IdentityConfig  `yaml:"identity"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Mail      MailConfig      `yaml:"mail"`
	Tokens    TokenConfig     `yaml:"tokens"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// PublicBaseURL is the externally reachable base URL used when
	// building agreement links for outbound email.
	PublicBaseURL string `yaml:"public_base_url"`
}

// IdentityConfig describes verification of administrator JWTs. Admin
// identity is issued elsewhere; this service only validates the bearer
// token and its role claim.
type IdentityConfig struct {
	Issuer    string `yaml:"issuer"`
	Audience  string `yaml:"audience"`
	SecretEnv string `yaml:"secret_env"`
	AdminRole string `yaml:"admin_role"`
}

// DatabaseConfig describes the PostgreSQL connection pool.
type DatabaseConfig struct {
	DSNEnv          string        `yaml:"dsn_env"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// StorageConfig describes the object storage gateway.
type StorageConfig struct {
	Endpoint     string `yaml:"endpoint"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	Bucket       string `yaml:"bucket"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// TokenConfig describes bearer token issuance.
type TokenConfig struct {
	TTL time.Duration `yaml:"ttl"`
	// DocumentURLTTL bounds the presigned retrieval URLs handed to
	// anonymous viewers.
	DocumentURLTTL time.Duration `yaml:"document_url_ttl"`
}

// MailConfig describes the outbound SMTP gateway and sender identity.
// It is resolved once per operation invocation and passed explicitly into
// the notification gateway, never read as ambient global state.
type MailConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"password_env"`
	FromName    string `yaml:"from_name"`
	FromAddress string `yaml:"from_address"`
	// ReplyTo is optional; empty means no Reply-To header.
	ReplyTo string `yaml:"reply_to"`
}

// RateLimitConfig describes per-client-IP rate limiting, scoped separately
// for read (View) and mutating (Send, Act) operations.
type RateLimitConfig struct {
	Read   RateScopeConfig `yaml:"read"`
	Mutate RateScopeConfig `yaml:"mutate"`
}

// RateScopeConfig is one rate limiting scope.
type RateScopeConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LogConfig describes structured logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Identity: IdentityConfig{
			SecretEnv: "ESIGN_ADMIN_JWT_SECRET",
			AdminRole: "admin",
		},
		Database: DatabaseConfig{
			DSNEnv:          "ESIGN_DATABASE_DSN",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Storage: StorageConfig{
			AccessKeyEnv: "ESIGN_STORAGE_ACCESS_KEY",
			SecretKeyEnv: "ESIGN_STORAGE_SECRET_KEY",
		},
		Tokens: TokenConfig{
			TTL:            30 * 24 * time.Hour,
			DocumentURLTTL: 1 * time.Hour,
		},
		Mail: MailConfig{
			Port:        587,
			PasswordEnv: "ESIGN_SMTP_PASSWORD",
		},
		RateLimit: RateLimitConfig{
			Read:   RateScopeConfig{Requests: 60, Window: time.Minute},
			Mutate: RateScopeConfig{Requests: 10, Window: time.Minute},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Server.PublicBaseURL == "" {
		errs = append(errs, "server.public_base_url is required")
	}
	if c.Identity.Issuer == "" {
		errs = append(errs, "identity.issuer is required")
	}
	if c.Identity.SecretEnv == "" {
		errs = append(errs, "identity.secret_env is required")
	}
	if c.Storage.Endpoint == "" {
		errs = append(errs, "storage.endpoint is required")
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, "storage.bucket is required")
	}
	if c.Mail.Host == "" {
		errs = append(errs, "mail.host is required")
	}
	if c.Mail.FromAddress == "" {
		errs = append(errs, "mail.from_address is required")
	}
	if c.Tokens.TTL <= 0 {
		errs = append(errs, "tokens.ttl must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyEnvOverrides reads ESIGN_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ESIGN_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ESIGN_PUBLIC_BASE_URL"); v != "" {
		cfg.Server.PublicBaseURL = v
	}
	if v := os.Getenv("ESIGN_IDENTITY_ISSUER"); v != "" {
		cfg.Identity.Issuer = v
	}
	if v := os.Getenv("ESIGN_MAIL_HOST"); v != "" {
		cfg.Mail.Host = v
	}
	if v := os.Getenv("ESIGN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
