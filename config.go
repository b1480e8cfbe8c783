package thunderauth

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the development API address.
const DefaultBaseURL = "http://localhost:5246"

// Config is the full client configuration.
type Config struct {
	API         APIConfig         `yaml:"api"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Refresh     RefreshConfig     `yaml:"refresh"`
	Audit       AuditConfig       `yaml:"audit"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the auth API. Timeout 0 leaves the HTTP client default.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

/*
====================================
CREDENTIALS CONFIG
====================================
*/

// CredentialsConfig controls credential store keys and expiry bookkeeping.
type CredentialsConfig struct {
	Namespace        string        `yaml:"namespace"`
	DefaultExpiresIn time.Duration `yaml:"default_expires_in"`
	ValidityMargin   time.Duration `yaml:"validity_margin"`
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls recovery from expired access tokens. With
// SingleFlight, concurrent Unauthorized calls share one refresh request.
type RefreshConfig struct {
	SingleFlight bool `yaml:"single_flight"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters and the request latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:   DefaultBaseURL,
			Timeout:   30 * time.Second,
			UserAgent: "thunderauth/1.0",
		},
		Credentials: CredentialsConfig{
			Namespace:        "com.projectthunder",
			DefaultExpiresIn: time.Hour,
			ValidityMargin:   5 * time.Minute,
		},
		Refresh: RefreshConfig{
			SingleFlight: false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

// LoadConfigFile reads YAML from path over DefaultConfig and validates the
// result.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// API
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("API BaseURL must be set")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("API BaseURL %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}

	// Credentials
	if strings.TrimSpace(c.Credentials.Namespace) == "" {
		return errors.New("Credentials Namespace must be set")
	}
	if c.Credentials.DefaultExpiresIn <= 0 {
		return errors.New("Credentials DefaultExpiresIn must be > 0")
	}
	if c.Credentials.ValidityMargin < 0 {
		return errors.New("Credentials ValidityMargin must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
