package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sternrassler/jobsuche-client/pkg/client"
	"github.com/Sternrassler/jobsuche-client/pkg/logging"
	"github.com/Sternrassler/jobsuche-client/pkg/ratelimit"
)

// envPrefix namespaces environment overrides, e.g. JOBSUCHE_API_KEY.
const envPrefix = "JOBSUCHE"

// appConfig is the CLI configuration as loaded by viper.
type appConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	UserAgent         string        `mapstructure:"user_agent"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	BreakerThreshold  uint32        `mapstructure:"breaker_threshold"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
	RedisURL          string        `mapstructure:"redis_url"`

	Retry   retryConfig   `mapstructure:"retry"`
	Logging loggingConfig `mapstructure:"logging"`
	Server  serverConfig  `mapstructure:"server"`
}

type retryConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier"`
	Jitter         float64       `mapstructure:"jitter"`
}

type loggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type serverConfig struct {
	Addr string `mapstructure:"addr"`
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	defaults := client.DefaultConfig()

	v.SetDefault("base_url", defaults.BaseURL)
	v.SetDefault("api_key", defaults.APIKey)
	v.SetDefault("user_agent", defaults.UserAgent)
	v.SetDefault("connect_timeout", defaults.ConnectTimeout)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("requests_per_second", 0.0)
	v.SetDefault("burst", defaults.Burst)
	v.SetDefault("breaker_threshold", 0)
	v.SetDefault("breaker_timeout", defaults.BreakerTimeout)
	v.SetDefault("redis_url", "")

	v.SetDefault("retry.enabled", defaults.Retry.Enabled)
	v.SetDefault("retry.max_retries", defaults.Retry.MaxRetries)
	v.SetDefault("retry.initial_backoff", defaults.Retry.InitialBackoff)
	v.SetDefault("retry.max_backoff", defaults.Retry.MaxBackoff)
	v.SetDefault("retry.multiplier", defaults.Retry.BackoffMultiplier)
	v.SetDefault("retry.jitter", defaults.Retry.Jitter)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.addr", ":8080")
}

// loadConfig layers defaults, an optional config file, .env, JOBSUCHE_*
// environment variables and the flags bound to viper, in that order.
func loadConfig(v *viper.Viper, configPath string, flags *pflag.FlagSet) (*appConfig, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("jobsuche")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "jobsuche"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// flagBindings maps config keys to persistent flag names.
var flagBindings = map[string]string{
	"base_url":            "base-url",
	"api_key":             "api-key",
	"request_timeout":     "timeout",
	"requests_per_second": "rps",
	"redis_url":           "redis-url",
	"retry.enabled":       "retry",
	"logging.level":       "log-level",
	"logging.format":      "log-format",
}

// validate checks if the configuration is valid
func validate(cfg *appConfig) error {
	if cfg.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if cfg.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be > 0")
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must be >= 0")
	}

	switch cfg.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

func (cfg *appConfig) loggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.Logging.Level)
	lc.Pretty = cfg.Logging.Format == "console"
	return lc
}

// clientConfig converts the CLI configuration. The returned close func
// releases the Redis connection when one was opened.
func (cfg *appConfig) clientConfig(logger zerolog.Logger) (client.Config, func() error, error) {
	cc := client.DefaultConfig()
	cc.BaseURL = cfg.BaseURL
	cc.APIKey = cfg.APIKey
	cc.UserAgent = cfg.UserAgent
	cc.ConnectTimeout = cfg.ConnectTimeout
	cc.RequestTimeout = cfg.RequestTimeout
	cc.RequestsPerSecond = cfg.RequestsPerSecond
	cc.Burst = cfg.Burst
	cc.BreakerThreshold = cfg.BreakerThreshold
	cc.BreakerTimeout = cfg.BreakerTimeout
	cc.Retry = client.RetryConfig{
		Enabled:           cfg.Retry.Enabled,
		MaxRetries:        cfg.Retry.MaxRetries,
		InitialBackoff:    cfg.Retry.InitialBackoff,
		MaxBackoff:        cfg.Retry.MaxBackoff,
		BackoffMultiplier: cfg.Retry.Multiplier,
		Jitter:            cfg.Retry.Jitter,
	}
	cc.Logger = &logger

	closeFn := func() error { return nil }
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return client.Config{}, nil, fmt.Errorf("parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		cc.RateLimitStore = ratelimit.NewRedisStore(redisClient)
		closeFn = redisClient.Close
	}

	return cc, closeFn, nil
}
