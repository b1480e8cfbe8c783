package thunderauth

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "https base url valid",
			mutate: func(c *Config) {
				c.API.BaseURL = "https://api.projectthunder.example"
			},
			wantValid: true,
		},
		{
			name: "base url blank invalid",
			mutate: func(c *Config) {
				c.API.BaseURL = "   "
			},
			wantValid: false,
		},
		{
			name: "base url relative invalid",
			mutate: func(c *Config) {
				c.API.BaseURL = "/api"
			},
			wantValid: false,
		},
		{
			name: "base url scheme invalid",
			mutate: func(c *Config) {
				c.API.BaseURL = "ftp://localhost:5246"
			},
			wantValid: false,
		},
		{
			name: "zero timeout valid",
			mutate: func(c *Config) {
				c.API.Timeout = 0
			},
			wantValid: true,
		},
		{
			name: "negative timeout invalid",
			mutate: func(c *Config) {
				c.API.Timeout = -time.Second
			},
			wantValid: false,
		},
		{
			name: "namespace blank invalid",
			mutate: func(c *Config) {
				c.Credentials.Namespace = ""
			},
			wantValid: false,
		},
		{
			name: "default expires in zero invalid",
			mutate: func(c *Config) {
				c.Credentials.DefaultExpiresIn = 0
			},
			wantValid: false,
		},
		{
			name: "zero margin valid",
			mutate: func(c *Config) {
				c.Credentials.ValidityMargin = 0
			},
			wantValid: true,
		},
		{
			name: "negative margin invalid",
			mutate: func(c *Config) {
				c.Credentials.ValidityMargin = -time.Minute
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "histograms without metrics invalid",
			mutate: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.EnableLatencyHistograms = true
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.API.BaseURL != "http://localhost:5246" {
		t.Fatalf("unexpected default base url %q", cfg.API.BaseURL)
	}
	if cfg.Credentials.Namespace != "com.projectthunder" {
		t.Fatalf("unexpected default namespace %q", cfg.Credentials.Namespace)
	}
	if cfg.Credentials.DefaultExpiresIn != time.Hour || cfg.Credentials.ValidityMargin != 5*time.Minute {
		t.Fatalf("unexpected credential defaults %+v", cfg.Credentials)
	}
	if cfg.Refresh.SingleFlight {
		t.Fatal("single-flight refresh must be off by default")
	}
}

func TestLoadConfigFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thunder.yaml")
	raw := "api:\n  base_url: https://api.example.com\n  timeout: 5s\nrefresh:\n  single_flight: true\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com" || cfg.API.Timeout != 5*time.Second {
		t.Fatalf("api section not applied: %+v", cfg.API)
	}
	if !cfg.Refresh.SingleFlight {
		t.Fatal("refresh section not applied")
	}
	if cfg.API.UserAgent != "thunderauth/1.0" || cfg.Credentials.Namespace != "com.projectthunder" {
		t.Fatal("unset fields should keep their defaults")
	}
}

func TestLoadConfigFileRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadConfigFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("api:\n  base_url: [\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfigFile(bad); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}

	invalid := filepath.Join(dir, "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("credentials:\n  namespace: \"\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfigFile(invalid); err == nil || !strings.Contains(err.Error(), "Namespace") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuilderRejectsReuseAndInvalidConfig(t *testing.T) {
	b := New()
	c, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	c.Close()
	if _, err := b.Build(); !errors.Is(err, ErrBuilderUsed) {
		t.Fatalf("expected ErrBuilderUsed, got %v", err)
	}

	if _, err := New().WithBaseURL("not a url").Build(); err == nil {
		t.Fatal("expected invalid base url to fail Build")
	}
}
