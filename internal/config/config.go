package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/turbine-power-curve/internal/logger"
	"github.com/i474232898/turbine-power-curve/internal/powercurve/analytics"
)

type AppConfig struct {
	// APIBaseURL is the root of the turbine analytics API.
	APIBaseURL string

	// HTTPTimeout bounds each outbound request (0 = no timeout).
	HTTPTimeout time.Duration

	// RefreshInterval re-fetches the current selection periodically (0 = disabled).
	RefreshInterval time.Duration

	// BreakerMaxRequests is how many requests a half-open breaker admits.
	BreakerMaxRequests uint32

	// BreakerTimeout is how long an open breaker rejects calls.
	BreakerTimeout time.Duration

	Port string

	Log logger.Config
}

// fileConfig is the optional YAML overlay named by POWERCURVE_CONFIG_FILE.
type fileConfig struct {
	APIBaseURL         string        `yaml:"api_base_url"`
	HTTPTimeout        string        `yaml:"http_timeout"`
	RefreshInterval    string        `yaml:"refresh_interval"`
	BreakerMaxRequests uint32        `yaml:"breaker_max_requests"`
	BreakerTimeout     string        `yaml:"breaker_timeout"`
	Port               string        `yaml:"port"`
	Log                logger.Config `yaml:"log"`
}

// Load reads configuration with sensible defaults, then the optional YAML
// file, then the environment. Later sources win.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	cfg := &AppConfig{
		APIBaseURL:         analytics.DefaultBaseURL,
		BreakerMaxRequests: analytics.DefaultBreakerMaxRequests,
		BreakerTimeout:     analytics.DefaultBreakerTimeout,
		Port:               "8080",
		Log:                logger.Config{Level: "info", Output: "stderr"},
	}

	if path := os.Getenv("POWERCURVE_CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.APIBaseURL = getenvDefault("POWERCURVE_API_URL", cfg.APIBaseURL)
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Output = getenvDefault("LOG_OUTPUT", cfg.Log.Output)

	timeout, err := getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	interval, err := getenvDuration("REFRESH_INTERVAL", cfg.RefreshInterval)
	if err != nil {
		return nil, err
	}
	cfg.RefreshInterval = interval

	breakerTimeout, err := getenvDuration("BREAKER_TIMEOUT", cfg.BreakerTimeout)
	if err != nil {
		return nil, err
	}
	cfg.BreakerTimeout = breakerTimeout

	if v := os.Getenv("BREAKER_MAX_REQUESTS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid BREAKER_MAX_REQUESTS: %w", err)
		}
		cfg.BreakerMaxRequests = uint32(n)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *AppConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.APIBaseURL != "" {
		cfg.APIBaseURL = fc.APIBaseURL
	}
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.Log.Level != "" {
		cfg.Log.Level = fc.Log.Level
	}
	if fc.Log.Output != "" {
		cfg.Log.Output = fc.Log.Output
	}
	if fc.Log.TimeFormat != "" {
		cfg.Log.TimeFormat = fc.Log.TimeFormat
	}
	if fc.HTTPTimeout != "" {
		d, err := time.ParseDuration(fc.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("invalid http_timeout in %s: %w", path, err)
		}
		cfg.HTTPTimeout = d
	}
	if fc.RefreshInterval != "" {
		d, err := time.ParseDuration(fc.RefreshInterval)
		if err != nil {
			return fmt.Errorf("invalid refresh_interval in %s: %w", path, err)
		}
		cfg.RefreshInterval = d
	}
	if fc.BreakerMaxRequests != 0 {
		cfg.BreakerMaxRequests = fc.BreakerMaxRequests
	}
	if fc.BreakerTimeout != "" {
		d, err := time.ParseDuration(fc.BreakerTimeout)
		if err != nil {
			return fmt.Errorf("invalid breaker_timeout in %s: %w", path, err)
		}
		cfg.BreakerTimeout = d
	}
	return nil
}

func (c *AppConfig) validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid POWERCURVE_API_URL %q", c.APIBaseURL)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP_TIMEOUT must not be negative")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("REFRESH_INTERVAL must not be negative")
	}
	if c.BreakerMaxRequests == 0 {
		return fmt.Errorf("BREAKER_MAX_REQUESTS must be positive")
	}
	if c.BreakerTimeout <= 0 {
		return fmt.Errorf("BREAKER_TIMEOUT must be positive")
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
