// Package config loads dbgate settings from a YAML file and DBGATE_
// environment variables and turns them into backend dependencies.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ruslano69/dbgate/pkg/brokers"
	"github.com/ruslano69/dbgate/pkg/crypto"
	"github.com/ruslano69/dbgate/pkg/resultlog"
)

// EnvPrefix selects the environment variables read by Load. A double
// underscore separates levels: DBGATE_DATABASE__CONNECTION_STRING maps to
// database.connection_string.
const EnvPrefix = "DBGATE_"

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Timeouts TimeoutsConfig `koanf:"timeouts" yaml:"timeouts"`
	Logging  LoggingConfig  `koanf:"logging" yaml:"logging"`
	Security SecurityConfig `koanf:"security" yaml:"security"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Audit    AuditConfig    `koanf:"audit" yaml:"audit"`
}

// DatabaseConfig selects the backend and how to reach it. DSN wins over the
// individual fields.
type DatabaseConfig struct {
	Provider         string `koanf:"provider" yaml:"provider" validate:"omitempty,oneof=sqlserver sqlserverexpress localdb mssql postgres postgresql mysql mariadb"`
	DSN              string `koanf:"connection_string" yaml:"connection_string,omitempty" validate:"required_without=Host"`
	Host             string `koanf:"host" yaml:"host,omitempty"`
	Port             int    `koanf:"port" yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Name             string `koanf:"name" yaml:"name,omitempty"`
	User             string `koanf:"user" yaml:"user,omitempty"`
	Password         string `koanf:"password" yaml:"password,omitempty"`
	SSLMode          string `koanf:"ssl_mode" yaml:"ssl_mode,omitempty"`
	WindowsAuth      bool   `koanf:"windows_auth" yaml:"windows_auth,omitempty"`
	MaxOpenConns     int    `koanf:"max_open_conns" yaml:"max_open_conns" validate:"min=0"`
	MaxIdleConns     int    `koanf:"max_idle_conns" yaml:"max_idle_conns" validate:"min=0"`
}

// TimeoutsConfig holds per-command deadlines; zero keeps the default.
type TimeoutsConfig struct {
	Validate  time.Duration `koanf:"validate" yaml:"validate" validate:"min=0"`
	Query     time.Duration `koanf:"query" yaml:"query" validate:"min=0"`
	Procedure time.Duration `koanf:"procedure" yaml:"procedure" validate:"min=0"`
	Catalog   time.Duration `koanf:"catalog" yaml:"catalog" validate:"min=0"`
}

// LoggingConfig selects the zerolog level and output format.
type LoggingConfig struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=console json"`
}

// SecurityConfig lists forbidden tables and the bcrypt cost for encrypted fields.
type SecurityConfig struct {
	ForbiddenTables []string `koanf:"forbidden_tables" yaml:"forbidden_tables,omitempty"`
	BcryptCost      int      `koanf:"bcrypt_cost" yaml:"bcrypt_cost" validate:"min=4,max=31"`
}

// MetricsConfig toggles the Prometheus observer.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Listen  string `koanf:"listen" yaml:"listen,omitempty" validate:"required_if=Enabled true"`
}

// AuditConfig enables the per-call audit trail. File "-" routes it into the
// application log instead of a file.
type AuditConfig struct {
	Enabled    bool   `koanf:"enabled" yaml:"enabled"`
	File       string `koanf:"file" yaml:"file,omitempty" validate:"required_if=Enabled true"`
	Level      string `koanf:"level" yaml:"level" validate:"oneof=minimal standard full"`
	Format     string `koanf:"format" yaml:"format" validate:"oneof=json text"`
	MaxSizeMB  int    `koanf:"max_size_mb" yaml:"max_size_mb,omitempty" validate:"min=0"`
	MaxBackups int    `koanf:"max_backups" yaml:"max_backups,omitempty" validate:"min=0"`
	Compress   bool   `koanf:"compress" yaml:"compress,omitempty"`
	Async      bool   `koanf:"async" yaml:"async"`
	User       string `koanf:"user" yaml:"user,omitempty"`

	// Optional extra sinks, enabled by a non-empty address or type.
	Redis  resultlog.Config `koanf:"redis" yaml:"redis,omitempty"`
	Broker brokers.Config   `koanf:"broker" yaml:"broker,omitempty"`
}

// Default returns the configuration used for keys absent from every source.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Provider:     "sqlserver",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Security: SecurityConfig{
			BcryptCost: crypto.DefaultCost,
		},
		Metrics: MetricsConfig{
			Listen: ":9090",
		},
		Audit: AuditConfig{
			File:   "dbgate-audit.log",
			Level:  "standard",
			Format: "json",
			Async:  true,
		},
	}
}

// Load reads path (skipped when empty), applies DBGATE_ overrides on top,
// and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// listKeys take a comma-separated value in the environment.
var listKeys = map[string]bool{
	"security.forbidden_tables": true,
	"audit.broker.brokers":      true,
}

// envValue maps DBGATE_SECTION__KEY to section.key.
func envValue(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if listKeys[key] {
		var list []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
		return key, list
	}
	return key, value
}

func (c *Config) normalize() {
	c.Database.Provider = strings.ToLower(strings.TrimSpace(c.Database.Provider))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Audit.Level = strings.ToLower(strings.TrimSpace(c.Audit.Level))
	c.Audit.Format = strings.ToLower(strings.TrimSpace(c.Audit.Format))
	c.Audit.Broker.Type = strings.ToLower(strings.TrimSpace(c.Audit.Broker.Type))
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes cfg as YAML.
func Save(filename string, cfg *Config) error {
	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Sample returns a starting configuration for provider with local defaults.
func Sample(provider string) *Config {
	cfg := Default()
	cfg.Database.Provider = provider
	cfg.Database.Host = "localhost"
	cfg.Database.Name = "mydb"

	switch provider {
	case "postgres", "postgresql":
		cfg.Database.Port = 5432
		cfg.Database.User = "postgres"
		cfg.Database.Password = "password"
		cfg.Database.SSLMode = "disable"
	case "mysql", "mariadb":
		cfg.Database.Port = 3306
		cfg.Database.User = "root"
		cfg.Database.Password = "password"
	default:
		cfg.Database.Port = 1433
		cfg.Database.User = "sa"
		cfg.Database.Password = "YourPassword123"
	}
	return cfg
}
