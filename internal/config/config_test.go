package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"pocketpin/internal/logger"
)

// isolateEnv blanks every honoured variable for the duration of the test.
// Blank variables are ignored by Load and are not overwritten by .env files
// unless unset is true.
func isolateEnv(t *testing.T, unset bool) {
	t.Helper()
	for name := range envKeys {
		t.Setenv(name, "")
		if unset {
			require.NoError(t, os.Unsetenv(name))
		}
	}
}

func writeConfig(t *testing.T, config map[string]any) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	data, err := yaml.Marshal(config)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0644))
	return configPath
}

func credentials() map[string]any {
	return map[string]any{
		"pocket": map[string]any{
			"consumer_key": "consumer",
			"access_token": "access",
		},
		"pinboard": map[string]any{
			"auth_token": "user:TOKEN",
		},
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  credentials(),
			wantErr: false,
		},
		{
			name: "invalid config missing pocket.consumer_key",
			config: map[string]any{
				"pocket":   map[string]any{"access_token": "access"},
				"pinboard": map[string]any{"auth_token": "user:TOKEN"},
			},
			wantErr: true,
		},
		{
			name: "invalid config missing pocket.access_token",
			config: map[string]any{
				"pocket":   map[string]any{"consumer_key": "consumer"},
				"pinboard": map[string]any{"auth_token": "user:TOKEN"},
			},
			wantErr: true,
		},
		{
			name: "invalid config missing pinboard.auth_token",
			config: map[string]any{
				"pocket": map[string]any{"consumer_key": "consumer", "access_token": "access"},
			},
			wantErr: true,
		},
		{
			name: "invalid pinboard.base_url format",
			config: map[string]any{
				"pocket":   map[string]any{"consumer_key": "consumer", "access_token": "access"},
				"pinboard": map[string]any{"auth_token": "user:TOKEN", "base_url": "invalid-url"},
			},
			wantErr: true,
		},
		{
			name: "invalid log_level",
			config: func() map[string]any {
				c := credentials()
				c["log_level"] = "verbose"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "sync.tag with space",
			config: func() map[string]any {
				c := credentials()
				c["sync"] = map[string]any{"tag": "from pocket"}
				return c
			}(),
			wantErr: true,
		},
		{
			name: "sync.tag with comma",
			config: func() map[string]any {
				c := credentials()
				c["sync"] = map[string]any{"tag": "a,b"}
				return c
			}(),
			wantErr: true,
		},
		{
			name: "negative retry.max_attempts",
			config: func() map[string]any {
				c := credentials()
				c["retry"] = map[string]any{"max_attempts": -1}
				return c
			}(),
			wantErr: true,
		},
		{
			name: "retry.max_interval below initial_interval",
			config: func() map[string]any {
				c := credentials()
				c["retry"] = map[string]any{"initial_interval": "1m", "max_interval": "10s"}
				return c
			}(),
			wantErr: true,
		},
		{
			name: "unbounded retries",
			config: func() map[string]any {
				c := credentials()
				c["retry"] = map[string]any{"max_attempts": 0}
				return c
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t, false)
			configPath := writeConfig(t, tt.config)

			_, err := load(configPath, filepath.Join(t.TempDir(), ".env"))

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	isolateEnv(t, false)
	configPath := writeConfig(t, credentials())

	cfg, err := load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://getpocket.com", cfg.Pocket.BaseURL)
	assert.Equal(t, 24*time.Second, cfg.Pocket.RateLimit)
	assert.Equal(t, "https://api.pinboard.in/v1", cfg.Pinboard.BaseURL)
	assert.Equal(t, 6*time.Second, cfg.Pinboard.RateLimit)
	assert.Equal(t, ConfigRetry{
		MaxAttempts:     10,
		InitialInterval: 10 * time.Second,
		MaxInterval:     300 * time.Second,
		Multiplier:      2,
		Jitter:          0.1,
	}, cfg.Retry)
	assert.Zero(t, cfg.HTTP.Timeout)
	assert.Equal(t, ConfigSync{Tag: "via:pocket", Duration: 3 * time.Hour}, cfg.Sync)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, logger.INFO, cfg.Level())
}

func TestLoadOverridesFromFile(t *testing.T) {
	isolateEnv(t, false)
	config := credentials()
	config["pocket"].(map[string]any)["rate_limit"] = "30s"
	config["retry"] = map[string]any{"max_attempts": 3, "initial_interval": "1s", "max_interval": "4s", "multiplier": 1.5, "jitter": 0}
	config["http"] = map[string]any{"timeout": "45s"}
	config["sync"] = map[string]any{"tag": "from:pocket", "loop": true, "duration": "90m", "pass_interval": "5m"}
	config["log_level"] = "debug"

	cfg, err := load(writeConfig(t, config))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Pocket.RateLimit)
	assert.Equal(t, 45*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, ConfigSync{Tag: "from:pocket", Loop: true, Duration: 90 * time.Minute, PassInterval: 5 * time.Minute}, cfg.Sync)
	assert.Equal(t, logger.DEBUG, cfg.Level())

	p := cfg.RetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialInterval)
	assert.Equal(t, 4*time.Second, p.MaxInterval)
	assert.Equal(t, 1.5, p.Multiplier)
	assert.Zero(t, p.Jitter)
	assert.NotNil(t, p.Retryable)
}

func TestLoadFromEnvironment(t *testing.T) {
	isolateEnv(t, false)
	t.Setenv("POCKET_CONSUMER_KEY", "env-consumer")
	t.Setenv("POCKET_ACCESS_TOKEN", "env-access")
	t.Setenv("PINBOARD_AUTH_TOKEN", "env:TOKEN")
	t.Setenv("POCKETPIN_LOG_LEVEL", "warn")
	t.Setenv("POCKETPIN_SYNC_TAG", "env:pocket")
	t.Setenv("POCKETPIN_SYNC_DURATION", "45m")
	t.Setenv("POCKETPIN_UNRELATED", "ignored")

	cfg, err := load(writeConfig(t, credentials()))
	require.NoError(t, err)

	assert.Equal(t, "env-consumer", cfg.Pocket.ConsumerKey)
	assert.Equal(t, "env-access", cfg.Pocket.AccessToken)
	assert.Equal(t, "env:TOKEN", cfg.Pinboard.AuthToken)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "env:pocket", cfg.Sync.Tag)
	assert.Equal(t, 45*time.Minute, cfg.Sync.Duration)
}

func TestLoadFromDotEnv(t *testing.T) {
	isolateEnv(t, true)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"POCKET_CONSUMER_KEY=dotenv-consumer\n"+
			"POCKET_ACCESS_TOKEN=dotenv-access\n"+
			"PINBOARD_AUTH_TOKEN=dotenv:TOKEN\n"), 0600))

	// The environment beats .env.
	t.Setenv("PINBOARD_AUTH_TOKEN", "env:TOKEN")

	cfg, err := load(writeConfig(t, map[string]any{}), envPath)
	require.NoError(t, err)

	assert.Equal(t, "dotenv-consumer", cfg.Pocket.ConsumerKey)
	assert.Equal(t, "dotenv-access", cfg.Pocket.AccessToken)
	assert.Equal(t, "env:TOKEN", cfg.Pinboard.AuthToken)
}

func TestLoadMissingFile(t *testing.T) {
	isolateEnv(t, false)

	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to load config file")
}

func TestLoadWithoutConfigFile(t *testing.T) {
	isolateEnv(t, false)
	t.Chdir(t.TempDir())
	t.Setenv("POCKET_CONSUMER_KEY", "consumer")
	t.Setenv("POCKET_ACCESS_TOKEN", "access")
	t.Setenv("PINBOARD_AUTH_TOKEN", "user:TOKEN")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "consumer", cfg.Pocket.ConsumerKey)
}
