// Package config loads process configuration from defaults, an optional
// .swaptoon.yaml file, a .env file and the environment (highest priority).
//
// Every key can be set as SWAPTOON_<KEY>. PORT, DATABASE_URL, REDIS_URL,
// AMQP_URL, API_KEY, CATALOG_FILE and FAIL_RATE are also read without the
// prefix.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrInvalid = errors.New("config: invalid value")

// Config holds the application configuration.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string
	AMQPURL     string
	CacheTTL    time.Duration

	APIKey          string
	InsightModel    string
	InsightEndpoint string
	InsightTTL      time.Duration
	InsightRPS      float64

	CatalogFile string

	ConfirmDelay  time.Duration
	ExecuteDelay  time.Duration
	DebounceDelay time.Duration
	JoinDelay     time.Duration
	FailRate      float64

	SessionIdleTTL time.Duration
}

// bare env names accepted next to the prefixed ones.
var unprefixed = map[string]string{
	"port":         "PORT",
	"database_url": "DATABASE_URL",
	"redis_url":    "REDIS_URL",
	"amqp_url":     "AMQP_URL",
	"api_key":      "API_KEY",
	"catalog_file": "CATALOG_FILE",
	"fail_rate":    "FAIL_RATE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("port", "8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("cache_ttl", 30*time.Second)
	v.SetDefault("insight_model", "gemini-3-flash-preview")
	v.SetDefault("insight_endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("insight_ttl", 10*time.Minute)
	v.SetDefault("insight_rps", 2.0)
	v.SetDefault("confirm_delay", 1500*time.Millisecond)
	v.SetDefault("execute_delay", 2000*time.Millisecond)
	v.SetDefault("debounce_delay", 500*time.Millisecond)
	v.SetDefault("join_delay", 1500*time.Millisecond)
	v.SetDefault("fail_rate", 0.0)
	v.SetDefault("session_idle_ttl", 30*time.Minute)
}

// Load reads configuration. file, when non-empty, names an explicit config
// file that must exist; otherwise .swaptoon.yaml is looked up in $HOME and
// the working directory and is optional.
func Load(file string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SWAPTOON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, bare := range unprefixed {
		if err := v.BindEnv(key, "SWAPTOON_"+strings.ToUpper(key), bare); err != nil {
			return nil, err
		}
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName(".swaptoon")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{
		Env:      v.GetString("env"),
		Port:     v.GetString("port"),
		LogLevel: v.GetString("log_level"),

		DatabaseURL: v.GetString("database_url"),
		RedisURL:    v.GetString("redis_url"),
		AMQPURL:     v.GetString("amqp_url"),
		CacheTTL:    v.GetDuration("cache_ttl"),

		APIKey:          v.GetString("api_key"),
		InsightModel:    v.GetString("insight_model"),
		InsightEndpoint: v.GetString("insight_endpoint"),
		InsightTTL:      v.GetDuration("insight_ttl"),
		InsightRPS:      v.GetFloat64("insight_rps"),

		CatalogFile: v.GetString("catalog_file"),

		ConfirmDelay:  v.GetDuration("confirm_delay"),
		ExecuteDelay:  v.GetDuration("execute_delay"),
		DebounceDelay: v.GetDuration("debounce_delay"),
		JoinDelay:     v.GetDuration("join_delay"),
		FailRate:      v.GetFloat64("fail_rate"),

		SessionIdleTTL: v.GetDuration("session_idle_ttl"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise surface as odd runtime
// behavior.
func (c *Config) Validate() error {
	for name, d := range map[string]time.Duration{
		"confirm_delay":  c.ConfirmDelay,
		"execute_delay":  c.ExecuteDelay,
		"debounce_delay": c.DebounceDelay,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalid, name, d)
		}
	}
	if c.SessionIdleTTL < 0 {
		return fmt.Errorf("%w: session_idle_ttl must not be negative", ErrInvalid)
	}
	if c.JoinDelay < 0 {
		return fmt.Errorf("%w: join_delay must not be negative", ErrInvalid)
	}
	if c.FailRate < 0 || c.FailRate > 1 {
		return fmt.Errorf("%w: fail_rate must be within [0,1], got %v", ErrInvalid, c.FailRate)
	}
	if c.InsightRPS <= 0 {
		return fmt.Errorf("%w: insight_rps must be positive", ErrInvalid)
	}
	if c.Port == "" {
		return fmt.Errorf("%w: port is required", ErrInvalid)
	}
	return nil
}
