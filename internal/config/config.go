// Package config loads the lobgate gateway's configuration from a YAML file
// overlaid with environment variables, in the style of the originating
// codebase's per-service config packages.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for cmd/lobgate.
type Config struct {
	Book       BookConfig       `mapstructure:"book"`
	Server     ServerConfig     `mapstructure:"server"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// BookConfig controls the in-process order book core.
type BookConfig struct {
	// AssertInvariants enables expensive structural assertions after every
	// mutation. Meant for development and CI, never production.
	AssertInvariants bool `mapstructure:"assert_invariants"`
	// DefaultDepth is the number of levels returned by GET /v1/book/levels
	// when the caller does not specify one explicitly.
	DefaultDepth int `mapstructure:"default_depth"`
}

// ServerConfig holds the HTTP/WS gateway's listen and timeout settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// RateLimitConfig bounds the rate of accepted HTTP requests. The gateway
// applies one limiter to every route, not only order entry.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// CORSConfig controls the gateway's cross-origin policy.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
}

// LoggingConfig controls pkg/logger's zap construction.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Encoding    string `mapstructure:"encoding"`
	Development bool   `mapstructure:"development"`
}

// MonitoringConfig controls the /metrics endpoint.
type MonitoringConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configPath (if it exists) and overlays environment variables
// (LOB_SERVER_PORT etc., '.' replaced with '_'), falling back to the
// defaults set by setDefaults when neither supplies a value.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("lob")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("book.assert_invariants", false)
	v.SetDefault("book.default_depth", 20)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "5s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("rate_limit.requests_per_second", 5000.0)
	v.SetDefault("rate_limit.burst", 500)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "DELETE"})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "json")
	v.SetDefault("logging.development", false)

	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.path", "/metrics")
}
