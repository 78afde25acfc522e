package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Triage.ConfidenceThreshold != 0.6 {
		t.Errorf("expected default threshold 0.6, got %f", cfg.Triage.ConfidenceThreshold)
	}
	if cfg.Classifier.Timeout() != 30*time.Second {
		t.Errorf("expected 30s classifier timeout, got %v", cfg.Classifier.Timeout())
	}
	if cfg.Hospitals.Provider != "static" {
		t.Errorf("expected static hospitals provider, got %q", cfg.Hospitals.Provider)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Triage.ConfidenceThreshold != 0.6 {
		t.Errorf("missing file should yield defaults: %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
port = 9090

[triage]
confidence_threshold = 0.75

[classifier]
model = "gpt-4o"
timeout_seconds = 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port override not applied: %d", cfg.Server.Port)
	}
	if cfg.Triage.ConfidenceThreshold != 0.75 {
		t.Errorf("threshold override not applied: %f", cfg.Triage.ConfidenceThreshold)
	}
	if cfg.Classifier.Model != "gpt-4o" || cfg.Classifier.Timeout() != 10*time.Second {
		t.Errorf("classifier overrides not applied: %+v", cfg.Classifier)
	}
	// Untouched sections keep their defaults
	if cfg.Storage.SQLitePath != "sahayak.db" {
		t.Errorf("unrelated defaults lost: %q", cfg.Storage.SQLitePath)
	}
}

func TestLoad_EnvironmentAPIKeyWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[classifier]\napi_key = \"from-file\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OPENAI_API_KEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Classifier.APIKey != "from-env" {
		t.Errorf("environment should win over the file, got %q", cfg.Classifier.APIKey)
	}
}

func TestLoad_InvalidFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not valid toml ]["), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"threshold below zero", func(c *Config) { c.Triage.ConfidenceThreshold = -0.1 }, true},
		{"threshold above one", func(c *Config) { c.Triage.ConfidenceThreshold = 1.1 }, true},
		{"threshold at bounds", func(c *Config) { c.Triage.ConfidenceThreshold = 1.0 }, false},
		{"zero classifier timeout", func(c *Config) { c.Classifier.TimeoutSeconds = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Error("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
