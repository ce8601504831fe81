package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SCHEMASYNC_DATABASE_URL
const EnvPrefix = "SCHEMASYNC"

// Config represents the schemasync configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	URL    string `mapstructure:"url"`
}

// CacheConfig selects the shared definition hash store
type CacheConfig struct {
	Backend string      `mapstructure:"backend"`
	Prefix  string      `mapstructure:"prefix"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig represents the redis connection
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SyncConfig controls how deletions of governing records are mirrored
type SyncConfig struct {
	ManageDeletions bool `mapstructure:"manage_deletions"`
	SoftDelete      bool `mapstructure:"soft_delete"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// CatalogConfig points at the definition catalog
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads the configuration from schemasync.yml or schemasync.yaml in
// the working directory, or from file when it is not empty
func Load(file string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.url", "")
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.prefix", "schemasync:")
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("sync.manage_deletions", false)
	v.SetDefault("sync.soft_delete", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("catalog.path", "catalog.yaml")

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("schemasync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "pgx", "postgres", "postgresql", "sqlite3", "sqlite":
	default:
		return fmt.Errorf("database.driver must be one of pgx, postgres, sqlite3, got: %s", cfg.Database.Driver)
	}

	switch cfg.Cache.Backend {
	case "memory":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr is required when cache.backend is redis")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got: %s", cfg.Cache.Backend)
	}

	return nil
}
