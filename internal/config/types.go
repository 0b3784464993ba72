package config

import "time"

// Config represents the application configuration
type Config struct {
	Canvas  CanvasConfig  `mapstructure:"canvas"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CanvasConfig contains the Canvas instance and credentials
type CanvasConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Token     string `mapstructure:"token"`
	UserAgent string `mapstructure:"user_agent"`
}

// HTTPConfig contains request timeout and retry settings
type HTTPConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
	DefaultRetryAfter time.Duration `mapstructure:"default_retry_after"`
}

// RedisConfig enables shared rate limit pacing when Addr is set
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig contains the optional Prometheus textfile export
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}
