package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets keys for the duration of the test.
func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		prev, ok := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if ok {
				os.Setenv(key, prev)
			} else {
				os.Unsetenv(key)
			}
		})
	}
}

var allKeys = []string{
	"PLANET_API_KEY", "PLANET_BASE_URL", "PLANET_USER_AGENT", "PLANET_REDIS_URL",
	"PLANET_RATE_LIMIT", "PLANET_BURST", "PLANET_MAX_RETRIES", "PLANET_TIMEOUT",
	"PLANET_CACHE_TTL", "PLANET_LOG_LEVEL", "PLANET_LOG_PRETTY",
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, allKeys...)
	t.Setenv("PLANET_API_KEY", "env-key")

	s, err := Load(LoaderOptions{})
	require.NoError(t, err)

	assert.Equal(t, "env-key", s.APIKey)
	assert.Equal(t, "https://api.planet.com", s.BaseURL)
	assert.Equal(t, 10.0, s.RateLimit)
	assert.Equal(t, 5, s.Burst)
	assert.Equal(t, 3, s.MaxRetries)
	assert.Equal(t, 30*time.Second, s.Timeout)
	assert.Equal(t, "info", s.LogLevel)
	assert.Empty(t, s.RedisURL)
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	clearEnv(t, allKeys...)
	cfgFile := writeFile(t, "config.yml", `
api_key: file-key
base_url: https://staging.example.test
rate_limit: 2.5
timeout: 5s
log_level: debug
`)
	t.Setenv("PLANET_API_KEY", "env-key")
	t.Setenv("PLANET_BURST", "9")

	s, err := Load(LoaderOptions{ConfigFile: cfgFile})
	require.NoError(t, err)

	assert.Equal(t, "env-key", s.APIKey)
	assert.Equal(t, "https://staging.example.test", s.BaseURL)
	assert.Equal(t, 2.5, s.RateLimit)
	assert.Equal(t, 9, s.Burst)
	assert.Equal(t, 5*time.Second, s.Timeout)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t, allKeys...)
	envFile := writeFile(t, ".env", "PLANET_API_KEY=dotenv-key\nPLANET_MAX_RETRIES=5\n")

	s, err := Load(LoaderOptions{EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "dotenv-key", s.APIKey)
	assert.Equal(t, 5, s.MaxRetries)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t, allKeys...)
	t.Setenv("PLANET_API_KEY", "k")

	_, err := Load(LoaderOptions{EnvFile: filepath.Join(t.TempDir(), "absent.env")})
	assert.NoError(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t, allKeys...)
	t.Setenv("PLANET_API_KEY", "k")

	_, err := Load(LoaderOptions{ConfigFile: filepath.Join(t.TempDir(), "absent.yml")})
	assert.Error(t, err)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing api key", map[string]string{}, "APIKey"},
		{"bad log level", map[string]string{"PLANET_API_KEY": "k", "PLANET_LOG_LEVEL": "loud"}, "LogLevel"},
		{"zero retries", map[string]string{"PLANET_API_KEY": "k", "PLANET_MAX_RETRIES": "0"}, "MaxRetries"},
		{"negative rate", map[string]string{"PLANET_API_KEY": "k", "PLANET_RATE_LIMIT": "-1"}, "RateLimit"},
		{"bad base url", map[string]string{"PLANET_API_KEY": "k", "PLANET_BASE_URL": "not a url"}, "BaseURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t, allKeys...)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(LoaderOptions{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_RedactsAPIKey(t *testing.T) {
	s := &Settings{APIKey: "secret", BaseURL: "https://x.test", MaxRetries: 0, Timeout: time.Second, LogLevel: "info"}

	err := s.Validate()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}

func TestClientConfig(t *testing.T) {
	s := &Settings{
		APIKey:     "k",
		BaseURL:    "https://x.test",
		UserAgent:  "ua/1",
		RateLimit:  3,
		Burst:      2,
		MaxRetries: 4,
		Timeout:    7 * time.Second,
		CacheTTL:   time.Minute,
	}

	cfg := s.ClientConfig(nil)
	assert.Equal(t, "k", cfg.APIKey)
	assert.Equal(t, "https://x.test", cfg.BaseURL)
	assert.Equal(t, "ua/1", cfg.UserAgent)
	assert.Equal(t, 3.0, cfg.RateLimit)
	assert.Equal(t, 2, cfg.Burst)
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.Equal(t, 7*time.Second, cfg.Timeout)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Nil(t, cfg.Redis)
}

func TestRedisClient(t *testing.T) {
	s := &Settings{}
	rdb, err := s.RedisClient()
	require.NoError(t, err)
	assert.Nil(t, rdb)

	s.RedisURL = "://bad"
	_, err = s.RedisClient()
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	s.RedisURL = "redis://" + mr.Addr()
	rdb, err = s.RedisClient()
	require.NoError(t, err)
	defer rdb.Close()
	assert.NoError(t, rdb.Ping(context.Background()).Err())
}
