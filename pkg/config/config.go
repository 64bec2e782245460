package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for haulflow.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL profile store)
	Database DatabaseConfig `yaml:"database"`

	// Pipeline limits and reference data
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"haulflow"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"haulflow"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// PipelineConfig holds validation pipeline settings.
type PipelineConfig struct {
	// MaxExcludedRows caps the excluded rows returned in a validation summary.
	MaxExcludedRows int `yaml:"max_excluded_rows" env:"PIPELINE_MAX_EXCLUDED_ROWS" env-default:"100"`
	// MaxRequestBytes limits request bodies; validation runs carry whole source tables.
	MaxRequestBytes int64 `yaml:"max_request_bytes" env:"PIPELINE_MAX_REQUEST_BYTES" env-default:"33554432"`
	// ReferenceListsPath optionally points at a YAML file of city and town names.
	ReferenceListsPath string `yaml:"reference_lists_path" env:"PIPELINE_REFERENCE_LISTS_PATH" env-default:""`
	// MigrationsPath is the directory holding the SQL migrations.
	MigrationsPath string `yaml:"migrations_path" env:"PIPELINE_MIGRATIONS_PATH" env-default:"migrations"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile reads configuration from the given YAML file with environment variable
// overrides and validates it.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("port must be numeric: %w", err)
	}
	if c.Pipeline.MaxExcludedRows <= 0 {
		return fmt.Errorf("pipeline.max_excluded_rows must be positive, got %d", c.Pipeline.MaxExcludedRows)
	}
	if c.Pipeline.MaxRequestBytes <= 0 {
		return fmt.Errorf("pipeline.max_request_bytes must be positive, got %d", c.Pipeline.MaxRequestBytes)
	}
	if c.Pipeline.MigrationsPath == "" {
		return fmt.Errorf("pipeline.migrations_path is required")
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindAddr, c.Port)
}

// IsLocal reports whether the server runs in local development mode.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}
	return u.String()
}
