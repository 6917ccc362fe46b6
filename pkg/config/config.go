// Package config loads client settings from an optional .env file, an optional
// YAML file and PLANET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/planet-client-go/pkg/client"
	"github.com/Sternrassler/planet-client-go/pkg/urls"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. PLANET_API_KEY.
const EnvPrefix = "PLANET"

// Settings are the user-facing client settings.
type Settings struct {
	APIKey     string        `mapstructure:"api_key" validate:"required"`
	BaseURL    string        `mapstructure:"base_url" validate:"required,url"`
	UserAgent  string        `mapstructure:"user_agent"`
	RedisURL   string        `mapstructure:"redis_url" validate:"omitempty,url"`
	RateLimit  float64       `mapstructure:"rate_limit" validate:"gte=0"`
	Burst      int           `mapstructure:"burst" validate:"gte=0"`
	MaxRetries int           `mapstructure:"max_retries" validate:"gte=1,lte=10"`
	Timeout    time.Duration `mapstructure:"timeout" validate:"gt=0"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	LogLevel   string        `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`
	LogPretty  bool          `mapstructure:"log_pretty"`
}

// LoaderOptions selects the files read by Load. Empty paths are skipped.
type LoaderOptions struct {
	ConfigFile string
	EnvFile    string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// setDefaults mirrors client.DefaultConfig.
func setDefaults(v *viper.Viper) {
	def := client.DefaultConfig("")

	v.SetDefault("api_key", "")
	v.SetDefault("base_url", urls.DefaultBase)
	v.SetDefault("user_agent", def.UserAgent)
	v.SetDefault("redis_url", "")
	v.SetDefault("rate_limit", def.RateLimit)
	v.SetDefault("burst", def.Burst)
	v.SetDefault("max_retries", def.MaxRetries)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("cache_ttl", def.CacheTTL)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_pretty", false)
}

// Load reads settings. Precedence, highest first: environment (including
// variables from the .env file), YAML file, defaults.
func Load(opts LoaderOptions) (*Settings, error) {
	if opts.EnvFile != "" {
		if _, err := os.Stat(opts.EnvFile); err == nil {
			if err := godotenv.Load(opts.EnvFile); err != nil {
				return nil, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
			}
		}
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", opts.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Field(), fe.Tag(), redact(fe)))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func redact(fe validator.FieldError) any {
	if fe.Field() == "APIKey" {
		return "<redacted>"
	}
	return fe.Value()
}

// RedisClient connects to RedisURL, or returns nil when it is unset.
func (s *Settings) RedisClient() (*redis.Client, error) {
	if s.RedisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(s.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis_url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// ClientConfig converts the settings into a client configuration. rdb may be nil.
func (s *Settings) ClientConfig(rdb *redis.Client) client.Config {
	cfg := client.DefaultConfig(s.APIKey)
	cfg.BaseURL = s.BaseURL
	cfg.UserAgent = s.UserAgent
	cfg.Redis = rdb
	cfg.RateLimit = s.RateLimit
	cfg.Burst = s.Burst
	cfg.MaxRetries = s.MaxRetries
	cfg.Timeout = s.Timeout
	cfg.CacheTTL = s.CacheTTL
	return cfg
}
