package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for knowhy-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (database password, JWT secret) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Authentication configuration
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Report template configuration
	Reports ReportsConfig `yaml:"reports"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// JWTSecret signs and verifies HS256 tokens. The server refuses to
	// start without it.
	JWTSecret string `yaml:"-" env:"JWT_SECRET"` // Secret - not in YAML

	// TokenTTLSeconds is the lifetime of issued tokens.
	TokenTTLSeconds int `yaml:"token_ttl_seconds" env:"TOKEN_TTL_SECONDS" env-default:"86400"`

	// Default admin credentials accepted before the setup wizard has run.
	DefaultAdminUsername string `yaml:"default_admin_username" env:"DEFAULT_ADMIN_USERNAME" env-default:"admin"`
	DefaultAdminPassword string `yaml:"-" env:"DEFAULT_ADMIN_PASSWORD" env-default:"admin123"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"knowhy"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"knowhy_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ReportsConfig holds the template directory and tenant table namespace.
type ReportsConfig struct {
	// ScriptsDir is the root template directory with <name>.md files and
	// the derived sql_files/ subdirectory.
	ScriptsDir string `yaml:"scripts_dir" env:"SQL_SCRIPTS_DIR" env-default:"sql_scripts"`

	// TablePrefix namespaces the tenant's system tables (users, config,
	// reports, logs, favorites). It is spliced into table names in DDL
	// and queries, so it is restricted to identifier-safe characters.
	TablePrefix string `yaml:"table_prefix" env:"SYSTEM_TABLE_PREFIX" env-default:"knowhy_"`
}

var tablePrefixRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Load reads configuration from config.yaml with environment variable
// overrides. When config.yaml does not exist, environment variables and
// defaults alone are used. The version parameter is injected at build time
// and set on the returned Config.
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

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if !tablePrefixRegex.MatchString(c.Reports.TablePrefix) {
		return fmt.Errorf("table prefix %q must match %s", c.Reports.TablePrefix, tablePrefixRegex)
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
