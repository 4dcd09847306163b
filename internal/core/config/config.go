package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gridlab/gridcore/internal/catalog"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "GRIDCORE_"

// Config represents the top-level application config plus the loaded catalog.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Condense CondenseConfig `koanf:"condense"`
	Warmup   WarmupConfig   `koanf:"warmup"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`

	// Loaded is populated by Load after parsing the catalog directory.
	Loaded *catalog.Catalog `koanf:"-"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"` // postgres | pgx | memory
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type CatalogConfig struct {
	Dir            string `koanf:"dir"`
	RequireSources bool   `koanf:"require_sources"`
}

type CondenseConfig struct {
	// Border is how far beyond a requested range raw readings are fetched
	// to interpolate the edges.
	Border string `koanf:"border"`
}

type WarmupConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Interval    string `koanf:"interval"`
	Lookback    string `koanf:"lookback"`
	WorkerCount int    `koanf:"worker_count"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug | info | warn | error
	Format string `koanf:"format"` // text | json
}

// SlogLevel maps the configured level to a slog level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c CondenseConfig) BorderDuration() time.Duration {
	d, _ := time.ParseDuration(c.Border)
	return d
}

func (c WarmupConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

func (c WarmupConfig) LookbackDuration() time.Duration {
	d, _ := time.ParseDuration(c.Lookback)
	return d
}

func positiveDuration(name, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be > 0", name)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Driver {
	case "memory":
	case "postgres", "pgx":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	if strings.TrimSpace(c.Catalog.Dir) == "" {
		return fmt.Errorf("catalog.dir is required")
	}
	if err := positiveDuration("condense.border", c.Condense.Border); err != nil {
		return err
	}

	if c.Warmup.Enabled {
		if err := positiveDuration("warmup.interval", c.Warmup.Interval); err != nil {
			return err
		}
		if err := positiveDuration("warmup.lookback", c.Warmup.Lookback); err != nil {
			return err
		}
		if c.Warmup.WorkerCount <= 0 {
			return fmt.Errorf("warmup.worker_count must be > 0")
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log.format %q (must be text or json)", c.Log.Format)
	}

	return nil
}

// Load parses config from file + env, validates it, then loads the catalog.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.max_body_size_mb": 4,
		"server.mode":             "release",
		"database.driver":         "postgres",
		"database.dsn":            "",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"catalog.dir":             "./config/catalog",
		"catalog.require_sources": false,
		"condense.border":         "1m",
		"warmup.enabled":          true,
		"warmup.interval":         "15m",
		"warmup.lookback":         "6h",
		"warmup.worker_count":     4,
		"metrics.enabled":         true,
		"metrics.path":            "/metrics",
		"log.level":               "info",
		"log.format":              "text",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loaded, err := catalog.Load(cfg.Catalog.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if cfg.Catalog.RequireSources && len(loaded.Sources()) == 0 {
		return nil, fmt.Errorf("no sources found in %q", cfg.Catalog.Dir)
	}
	cfg.Loaded = loaded

	return &cfg, nil
}
