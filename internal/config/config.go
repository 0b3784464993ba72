package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Sternrassler/canvas-assignments/pkg/client"
	"github.com/Sternrassler/canvas-assignments/pkg/logging"
)

// EnvPrefix prefixes every environment override except the two credentials.
const EnvPrefix = "CANVAS_ASSIGNMENTS"

// ErrMissingCredentials is returned when the base URL or token is not set.
var ErrMissingCredentials = errors.New("missing Canvas credentials")

// Load reads configuration from defaults, an optional file and the
// environment. An empty configPath searches the standard locations and
// tolerates a missing file; an explicit path must exist.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnv(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".canvas-assignments"))
		}
		v.AddConfigPath("/etc/canvas-assignments/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	retry := client.DefaultRetryConfig()

	// Canvas defaults
	v.SetDefault("canvas.base_url", "")
	v.SetDefault("canvas.token", "")
	v.SetDefault("canvas.user_agent", client.DefaultUserAgent)

	// HTTP defaults
	v.SetDefault("http.timeout", client.DefaultTimeout)
	v.SetDefault("http.max_retries", retry.MaxRetries)
	v.SetDefault("http.backoff_base", retry.BackoffBase)
	v.SetDefault("http.default_retry_after", retry.DefaultRetryAfter)

	// Redis defaults (disabled)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", string(logging.FormatAuto))

	// Metrics defaults (disabled)
	v.SetDefault("metrics.textfile", "")
}

// bindEnv maps CANVAS_ASSIGNMENTS_<SECTION>_<KEY> onto every key, and the
// credentials onto their conventional names as well.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("canvas.base_url", "CANVAS_BASE_URL", EnvPrefix+"_CANVAS_BASE_URL")
	_ = v.BindEnv("canvas.token", "CANVAS_TOKEN", EnvPrefix+"_CANVAS_TOKEN")
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	cfg.Canvas.BaseURL = strings.TrimSpace(cfg.Canvas.BaseURL)
	cfg.Canvas.Token = strings.TrimSpace(cfg.Canvas.Token)

	var missing []string
	if cfg.Canvas.BaseURL == "" {
		missing = append(missing, "CANVAS_BASE_URL")
	}
	if cfg.Canvas.Token == "" {
		missing = append(missing, "CANVAS_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingCredentials, strings.Join(missing, " and "))
	}

	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive (got %s)", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must be >= 0 (got %d)", cfg.HTTP.MaxRetries)
	}
	if cfg.HTTP.BackoffBase < 0 {
		return fmt.Errorf("http.backoff_base must be >= 0 (got %s)", cfg.HTTP.BackoffBase)
	}
	if cfg.HTTP.DefaultRetryAfter < 0 {
		return fmt.Errorf("http.default_retry_after must be >= 0 (got %s)", cfg.HTTP.DefaultRetryAfter)
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0 (got %d)", cfg.Redis.DB)
	}

	if !logging.ValidLevel(cfg.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}
	if !logging.ValidFormat(cfg.Logging.Format) {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// ClientConfig converts the HTTP and Canvas sections into a client.Config.
func (c *Config) ClientConfig() client.Config {
	cc := client.DefaultConfig(c.Canvas.BaseURL, c.Canvas.Token)
	if c.Canvas.UserAgent != "" {
		cc.UserAgent = c.Canvas.UserAgent
	}
	cc.Timeout = c.HTTP.Timeout
	cc.Retry = client.RetryConfig{
		MaxRetries:        c.HTTP.MaxRetries,
		BackoffBase:       c.HTTP.BackoffBase,
		DefaultRetryAfter: c.HTTP.DefaultRetryAfter,
	}
	return cc
}
