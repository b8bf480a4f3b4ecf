// Package config loads server configuration from an optional YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Storage       StorageConfig       `yaml:"storage"`
	Import        ImportConfig        `yaml:"import"`
	Profiling     ProfilingConfig     `yaml:"profiling"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	RateLimitPerSecond int    `yaml:"rate_limit_per_second"`
	RateLimitBurst     int    `yaml:"rate_limit_burst"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// DSN returns URL when set, otherwise a postgres URL built from the parts.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// StorageConfig selects where committed datasets live.
type StorageConfig struct {
	Backend string `yaml:"backend"`
}

type ImportConfig struct {
	SessionTTL          time.Duration `yaml:"session_ttl"`
	MaxUploadBytes      int64         `yaml:"max_upload_bytes"`
	AutoAcceptThreshold float64       `yaml:"auto_accept_threshold"`
}

type ProfilingConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type ObservabilityConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			RateLimitPerSecond: 50,
			RateLimitBurst:     100,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "dashboard",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "dashboard:",
		},
		Storage: StorageConfig{Backend: BackendPostgres},
		Import: ImportConfig{
			SessionTTL:          30 * time.Minute,
			MaxUploadBytes:      10 << 20,
			AutoAcceptThreshold: 0.98,
		},
		Profiling:     ProfilingConfig{Port: 6060},
		Observability: ObservabilityConfig{MetricsEnabled: true},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Host, "SERVER_HOST")
	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Redis.KeyPrefix, "REDIS_KEY_PREFIX")
	setString(&c.Storage.Backend, "STORAGE_BACKEND")

	ints := []struct {
		dst *int
		key string
	}{
		{&c.Server.Port, "SERVER_PORT"},
		{&c.Server.RateLimitPerSecond, "RATE_LIMIT_PER_SECOND"},
		{&c.Server.RateLimitBurst, "RATE_LIMIT_BURST"},
		{&c.Database.Port, "DB_PORT"},
		{&c.Redis.DB, "REDIS_DB"},
		{&c.Profiling.Port, "PPROF_PORT"},
	}
	for _, v := range ints {
		if err := setInt(v.dst, v.key); err != nil {
			return err
		}
	}

	if raw := os.Getenv("IMPORT_MAX_UPLOAD_BYTES"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: IMPORT_MAX_UPLOAD_BYTES: %w", ErrInvalidConfig, err)
		}
		c.Import.MaxUploadBytes = n
	}
	if raw := os.Getenv("IMPORT_SESSION_TTL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("%w: IMPORT_SESSION_TTL: %w", ErrInvalidConfig, err)
		}
		c.Import.SessionTTL = d
	}
	if raw := os.Getenv("IMPORT_AUTO_ACCEPT_THRESHOLD"); raw != "" {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: IMPORT_AUTO_ACCEPT_THRESHOLD: %w", ErrInvalidConfig, err)
		}
		c.Import.AutoAcceptThreshold = f
	}
	if err := setBool(&c.Profiling.Enabled, "PPROF_ENABLED"); err != nil {
		return err
	}
	return setBool(&c.Observability.MetricsEnabled, "METRICS_ENABLED")
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Import.AutoAcceptThreshold <= 0 || c.Import.AutoAcceptThreshold > 1 {
		return fmt.Errorf("%w: auto accept threshold must be in (0, 1]", ErrInvalidConfig)
	}
	if c.Import.MaxUploadBytes <= 0 {
		return fmt.Errorf("%w: max upload bytes must be positive", ErrInvalidConfig)
	}
	if c.Import.SessionTTL <= 0 {
		return fmt.Errorf("%w: session ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	*dst = b
	return nil
}
