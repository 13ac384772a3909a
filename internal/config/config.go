// Package config loads seedling configuration from defaults, an optional
// YAML file and SEEDLING_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/roach88/seedling/internal/tracing"
)

// Provider names.
const (
	ProviderMemory  = "memory"
	ProviderRecords = "records"
)

// Database drivers for the records provider.
const (
	DriverSQLite     = "sqlite"
	DriverGormSQLite = "gorm-sqlite"
	DriverPostgres   = "postgres"
	DriverBadger     = "badger"
	DriverBolt       = "bolt"
)

// DefaultFileName is the config file looked up in the working directory
// when no path is given.
const DefaultFileName = "seedling.yaml"

// Config is the complete seedling configuration.
//
// Sources, highest precedence first:
//  1. CLI flags
//  2. Environment variables (SEEDLING_*)
//  3. Configuration file
//  4. Defaults
type Config struct {
	Fixtures FixturesConfig `mapstructure:"fixtures" yaml:"fixtures"`

	// Provider selects where fixtures are stored: memory or records.
	Provider string `mapstructure:"provider" validate:"required,oneof=memory records" yaml:"provider"`

	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	Log LogConfig `mapstructure:"log" yaml:"log"`

	Tracing tracing.Config `mapstructure:"tracing" yaml:"tracing"`
}

// FixturesConfig locates the script tree.
type FixturesConfig struct {
	// Root is the directory scanned for definition scripts.
	Root string `mapstructure:"root" validate:"required" yaml:"root"`

	// Types lists CUE files whose record types are defined before loading.
	Types []string `mapstructure:"types" yaml:"types,omitempty"`

	// Strict rejects registering type names no types file declares.
	Strict bool `mapstructure:"strict" yaml:"strict"`

	// Debounce is how long --watch waits for changes to settle.
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// DatabaseConfig configures the durable backend of the records provider.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"omitempty,oneof=sqlite gorm-sqlite postgres badger bolt" yaml:"driver"`

	// Path is the database file (sqlite, gorm-sqlite, bolt) or directory
	// (badger). An empty badger path keeps the database in memory.
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// DSN is the postgres connection string.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is DEBUG, INFO, WARN or ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
}

var validate = validator.New()

// Load reads configuration. An empty path looks for seedling.yaml in the
// working directory; a missing default file is not an error, a missing
// explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setupViper(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, ".yaml"))
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func setupViper(v *viper.Viper) {
	v.SetEnvPrefix("SEEDLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("fixtures.root", d.Fixtures.Root)
	v.SetDefault("fixtures.types", d.Fixtures.Types)
	v.SetDefault("fixtures.strict", d.Fixtures.Strict)
	v.SetDefault("fixtures.debounce", d.Fixtures.Debounce)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Fixtures: FixturesConfig{
			Root:     "db/seeds",
			Types:    []string{},
			Debounce: 250 * time.Millisecond,
		},
		Provider: ProviderMemory,
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			Path:   "seedling.db",
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// ApplyDefaults fills zero values and normalizes the log level.
func ApplyDefaults(cfg *Config) {
	d := Default()
	if cfg.Fixtures.Root == "" {
		cfg.Fixtures.Root = d.Fixtures.Root
	}
	if cfg.Fixtures.Debounce == 0 {
		cfg.Fixtures.Debounce = d.Fixtures.Debounce
	}
	if cfg.Provider == "" {
		cfg.Provider = d.Provider
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	cfg.Log.Level = strings.ToUpper(cfg.Log.Level)
	if cfg.Log.Format == "" {
		cfg.Log.Format = d.Log.Format
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = d.Tracing.ServiceName
	}
}

// Validate checks struct tags and the rules that span fields.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if cfg.Provider != ProviderRecords {
		return nil
	}
	switch cfg.Database.Driver {
	case "":
		return errors.New("database.driver is required for the records provider")
	case DriverPostgres:
		if cfg.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver")
		}
	case DriverSQLite, DriverGormSQLite, DriverBolt:
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is required for the %s driver", cfg.Database.Driver)
		}
	}
	return nil
}
