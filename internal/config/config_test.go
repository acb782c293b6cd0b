package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("Expected sqlite3 driver, got %s", cfg.Database.Driver)
	}
	if cfg.RateLimit.Window != time.Minute {
		t.Errorf("Expected a one minute window, got %s", cfg.RateLimit.Window)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Expected addr ':8080', got %q", cfg.Addr())
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: "9090"
  shutdown_timeout: 30s
database:
  driver: pgx
  url: postgres://localhost/promotions
rate_limit:
  enabled: false
log:
  level: debug
  format: console
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Expected env to override port, got %s", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected 30s shutdown timeout, got %s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Database.Driver != "pgx" || cfg.Database.URL != "postgres://localhost/promotions" {
		t.Errorf("Unexpected database config %+v", cfg.Database)
	}
	if cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting to be disabled")
	}
	if cfg.RateLimit.Rate != 100 {
		t.Errorf("Expected default rate to survive, got %d", cfg.RateLimit.Rate)
	}
	if len(cfg.Security.AllowedOrigins) != 2 {
		t.Errorf("Expected 2 origins, got %v", cfg.Security.AllowedOrigins)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected an error for a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := map[string]func(c *Config){
		"empty port":     func(c *Config) { c.Server.Port = "" },
		"bad driver":     func(c *Config) { c.Database.Driver = "mysql" },
		"empty url":      func(c *Config) { c.Database.URL = "" },
		"zero body size": func(c *Config) { c.Security.MaxRequestBodySize = 0 },
		"zero rate":      func(c *Config) { c.RateLimit.Rate = 0 },
		"zero window":    func(c *Config) { c.RateLimit.Window = 0 },
		"no endpoint":    func(c *Config) { c.Tracing = TracingConfig{Enabled: true} },
		"bad log format": func(c *Config) { c.Log.Format = "xml" },
	}

	for name, mutate := range tests {
		cfg := Default()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
}
