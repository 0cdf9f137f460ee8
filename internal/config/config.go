// Package config loads artwork table settings from defaults, an optional
// TOML file, ARTWORK_TABLE_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/artwork-table/pkg/artwork"
	"github.com/Sternrassler/artwork-table/pkg/client"
	"github.com/Sternrassler/artwork-table/pkg/logging"
	"github.com/Sternrassler/artwork-table/pkg/ratelimit"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ARTWORK_TABLE_API_BASE_URL.
const EnvPrefix = "ARTWORK_TABLE"

// Config holds application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Table     TableConfig     `mapstructure:"table"`
	Bulk      BulkConfig      `mapstructure:"bulk"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// APIConfig holds artwork API settings.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	UserAgent  string        `mapstructure:"user_agent"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	Fields     []string      `mapstructure:"fields"`
}

// TableConfig holds table presentation settings.
type TableConfig struct {
	PageSize    int `mapstructure:"page_size"`
	TopNDefault int `mapstructure:"top_n_default"`
}

// BulkConfig holds bulk selection fetch settings.
type BulkConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	PageTimeout time.Duration `mapstructure:"page_timeout"`
}

// RateLimitConfig holds the request budget.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

// RedisConfig holds the shared request counter location. Empty Addr keeps
// the counter in memory.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
}

// LogConfig holds logging settings. An empty File discards logs.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// MetricsConfig holds the optional metrics listener address.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"base-url":            "api.base_url",
	"user-agent":          "api.user_agent",
	"timeout":             "api.timeout",
	"max-retries":         "api.max_retries",
	"page-size":           "table.page_size",
	"top-n":               "table.top_n_default",
	"concurrency":         "bulk.concurrency",
	"rate-limit":          "ratelimit.enabled",
	"requests-per-minute": "ratelimit.requests_per_minute",
	"redis-addr":          "redis.addr",
	"log-level":           "log.level",
	"log-file":            "log.file",
	"metrics-addr":        "metrics.addr",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", client.DefaultBaseURL)
	v.SetDefault("api.user_agent", "artwork-table/0.1.0")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.max_retries", 0)
	v.SetDefault("api.fields", client.DefaultFields)
	v.SetDefault("table.page_size", artwork.DefaultPageSize)
	v.SetDefault("table.top_n_default", artwork.DefaultTopN)
	v.SetDefault("bulk.concurrency", 1)
	v.SetDefault("bulk.page_timeout", 15*time.Second)
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", ratelimit.DefaultRequestsPerMinute)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log.level", string(logging.LevelInfo))
	v.SetDefault("log.file", "")
	v.SetDefault("metrics.addr", "")
}

// RegisterFlags defines the command line flags Load understands.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default $HOME/.config/artwork-table/config.toml)")
	fs.String("base-url", client.DefaultBaseURL, "artwork API base URL")
	fs.String("user-agent", "artwork-table/0.1.0", "User-Agent sent to the API")
	fs.Duration("timeout", 30*time.Second, "per-request timeout")
	fs.Int("max-retries", 0, "retries for server and network errors")
	fs.Int("page-size", artwork.DefaultPageSize, "rows per page")
	fs.Int("top-n", artwork.DefaultTopN, "default count in the bulk selection dialog")
	fs.Int("concurrency", 1, "parallel page fetches for bulk selection")
	fs.Bool("rate-limit", true, "gate requests with the per-minute budget")
	fs.Int("requests-per-minute", ratelimit.DefaultRequestsPerMinute, "request budget per minute")
	fs.String("redis-addr", "", "redis address for a shared request budget")
	fs.String("log-level", string(logging.LevelInfo), "log level (debug, info, warn, error, disabled)")
	fs.String("log-file", "", "log file; empty discards logs, - writes to stderr")
	fs.String("metrics-addr", "", "serve /metrics on this address")
}

// Load builds the configuration. Flags that were set on fs override the
// config file and the environment. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("toml")

	cfgPath := os.Getenv(EnvPrefix + "_CONFIG")
	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			cfgPath = f.Value.String()
		}
	}
	explicit := cfgPath != ""
	if explicit {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "artwork-table"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.UserAgent == "" {
		errs = append(errs, errors.New("api.user_agent is required"))
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("api.max_retries must be >= 0 (got %d)", c.API.MaxRetries))
	}
	if c.Table.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("table.page_size must be > 0 (got %d)", c.Table.PageSize))
	}
	if c.Table.TopNDefault <= 0 {
		errs = append(errs, fmt.Errorf("table.top_n_default must be > 0 (got %d)", c.Table.TopNDefault))
	}
	if c.Bulk.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("bulk.concurrency must be >= 1 (got %d)", c.Bulk.Concurrency))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("ratelimit.requests_per_minute must be > 0 (got %d)", c.RateLimit.RequestsPerMinute))
	}
	if !logging.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not a known level", c.Log.Level))
	}
	return errors.Join(errs...)
}
