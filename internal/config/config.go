package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"pocketpin/internal/logger"
	"pocketpin/internal/models"
	"pocketpin/internal/requester"
)

// DefaultPath is read when no config file is given. It may be absent.
const DefaultPath = "config.yaml"

// envKeys maps the environment variables that are honoured to config keys.
var envKeys = map[string]string{
	"POCKET_CONSUMER_KEY":     "pocket.consumer_key",
	"POCKET_ACCESS_TOKEN":     "pocket.access_token",
	"PINBOARD_AUTH_TOKEN":     "pinboard.auth_token",
	"POCKETPIN_LOG_LEVEL":     "log_level",
	"POCKETPIN_SYNC_TAG":      "sync.tag",
	"POCKETPIN_SYNC_DURATION": "sync.duration",
}

type ConfigPocket struct {
	BaseURL     string        `koanf:"base_url" validate:"required,url"`
	ConsumerKey string        `koanf:"consumer_key" validate:"required"`
	AccessToken string        `koanf:"access_token" validate:"required"`
	RateLimit   time.Duration `koanf:"rate_limit" validate:"gte=0s"`
}

type ConfigPinboard struct {
	BaseURL   string        `koanf:"base_url" validate:"required,url"`
	AuthToken string        `koanf:"auth_token" validate:"required"`
	RateLimit time.Duration `koanf:"rate_limit" validate:"gte=0s"`
}

// ConfigRetry shapes the exponential backoff applied to failed requests.
// MaxAttempts 0 retries forever.
type ConfigRetry struct {
	MaxAttempts     int           `koanf:"max_attempts" validate:"gte=0"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"gte=0s"`
	MaxInterval     time.Duration `koanf:"max_interval" validate:"gtefield=InitialInterval"`
	Multiplier      float64       `koanf:"multiplier" validate:"gte=1"`
	Jitter          float64       `koanf:"jitter" validate:"gte=0,lte=1"`
}

type ConfigHTTP struct {
	// Timeout bounds a single attempt. 0 disables it.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0s"`
}

type ConfigSync struct {
	Tag          string        `koanf:"tag" validate:"required"`
	Loop         bool          `koanf:"loop"`
	Duration     time.Duration `koanf:"duration" validate:"gte=0s"`
	PassInterval time.Duration `koanf:"pass_interval" validate:"gte=0s"`
}

type Config struct {
	Pocket   ConfigPocket   `koanf:"pocket"`
	Pinboard ConfigPinboard `koanf:"pinboard"`
	Retry    ConfigRetry    `koanf:"retry"`
	HTTP     ConfigHTTP     `koanf:"http"`
	Sync     ConfigSync     `koanf:"sync"`
	LogLevel string         `koanf:"log_level" validate:"oneof=error warn info debug"`
}

func (c *Config) Validate() error {
	validate := validator.New()
	err := validate.Struct(c)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return fmt.Errorf("configuration validation failed: %v", validationErrors)
		}
		return err
	}

	// Pinboard separates tags with commas and whitespace.
	if strings.ContainsFunc(c.Sync.Tag, func(r rune) bool { return r == ',' || unicode.IsSpace(r) }) {
		return fmt.Errorf("configuration validation failed: sync.tag %q must not contain whitespace or commas", c.Sync.Tag)
	}
	return nil
}

// RetryPolicy returns the requester policy described by c.Retry.
func (c *Config) RetryPolicy() requester.Policy {
	p := requester.DefaultPolicy()
	p.MaxAttempts = c.Retry.MaxAttempts
	p.InitialInterval = c.Retry.InitialInterval
	p.MaxInterval = c.Retry.MaxInterval
	p.Multiplier = c.Retry.Multiplier
	p.Jitter = c.Retry.Jitter
	return p
}

// Level returns the parsed log level. Validate guarantees it parses.
func (c *Config) Level() logger.Level {
	lvl, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.INFO
	}
	return lvl
}

// Load reads the configuration from defaults, the YAML file at path, a .env
// file in the working directory and the environment, later layers winning.
// An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path string, envFiles ...string) (*Config, error) {
	k := koanf.New(".")
	parser := yaml.Parser()

	if err := setDefaultValues(k); err != nil {
		return nil, err
	}

	optional := path == ""
	if optional {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil || !optional {
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// A missing .env file is fine. Variables already set take precedence.
	_ = godotenv.Load(envFiles...)

	if err := k.Load(env.ProviderWithValue("", ".", mapEnv), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mapEnv drops every variable that is unknown or empty.
func mapEnv(name, value string) (string, any) {
	key, ok := envKeys[name]
	if !ok || value == "" {
		return "", nil
	}
	return key, value
}

func setDefaultValues(k *koanf.Koanf) error {
	return k.Load(confmap.Provider(map[string]any{
		"pocket.base_url":        "https://getpocket.com",
		"pocket.rate_limit":      "24s",
		"pinboard.base_url":      "https://api.pinboard.in/v1",
		"pinboard.rate_limit":    "6s",
		"retry.max_attempts":     10,
		"retry.initial_interval": "10s",
		"retry.max_interval":     "300s",
		"retry.multiplier":       2.0,
		"retry.jitter":           0.1,
		"http.timeout":           "0s",
		"sync.tag":               models.DefaultSyncTag,
		"sync.loop":              false,
		"sync.duration":          "3h",
		"sync.pass_interval":     "0s",
		"log_level":              "info",
	}, "."), nil)
}
