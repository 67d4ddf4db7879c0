// Package config loads sitetree configuration from file, environment and
// flags through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/jmylchreest/sitetree/internal/validation"
)

// EnvPrefix is prepended to every environment variable, e.g.
// SITETREE_STORE_BACKEND for store.backend.
const EnvPrefix = "SITETREE"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config is the complete application configuration.
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Tree    TreeConfig    `mapstructure:"tree"`
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LogConfig configures internal/logger.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `mapstructure:"json"`
}

// TreeConfig holds the tree-shaping defaults applied when a request does
// not override them.
type TreeConfig struct {
	FolderFirst           bool   `mapstructure:"folder_first"`
	LinksOrder            string `mapstructure:"links_order" validate:"oneof=page alphabetical"`
	IncludeExtractedLinks bool   `mapstructure:"include_extracted_links"`
}

// StoreConfig selects and configures the tree store.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend" validate:"oneof=memory redis postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// PostgresConfig configures the PostgreSQL store.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
	MaxBodySize     string        `mapstructure:"max_body_size"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// SetDefaults registers default values on v. Every key must have a default
// for AutomaticEnv to pick up its environment variable.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("tree.folder_first", true)
	v.SetDefault("tree.links_order", "page")
	v.SetDefault("tree.include_extracted_links", true)

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.key_prefix", "sitetree:")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.max_open_conns", 10)
	v.SetDefault("store.postgres.max_idle_conns", 5)
	v.SetDefault("store.postgres.conn_max_lifetime", "5m")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_size", "50MB")

	v.SetDefault("metrics.enabled", true)
}

// Setup wires environment lookup and defaults into v. When cfgFile is empty
// a .sitetree.yaml in the home or working directory is used if present.
func Setup(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".sitetree")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration produced by the defaults alone.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(fmt.Sprintf("config defaults are invalid: %v", err))
	}
	return cfg
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validation.New()
	v.RegisterStructValidation(validateStore, StoreConfig{})
	return v
}

// validateStore requires the connection settings of the selected backend.
func validateStore(sl validator.StructLevel) {
	s := sl.Current().Interface().(StoreConfig)
	switch s.Backend {
	case BackendRedis:
		if s.Redis.Addr == "" {
			sl.ReportError(s.Redis.Addr, "redis.addr", "Addr", "required_if", "backend redis")
		}
	case BackendPostgres:
		if s.Postgres.DSN == "" {
			sl.ReportError(s.Postgres.DSN, "postgres.dsn", "DSN", "required_if", "backend postgres")
		}
	}
}

// Validate checks cfg against its constraints.
func (c *Config) Validate() error {
	if err := validation.Struct(validate, c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
