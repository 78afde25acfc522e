package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Logging    LoggingConfig    `toml:"logging"`
	Triage     TriageConfig     `toml:"triage"`
	Classifier ClassifierConfig `toml:"classifier"`
	Hospitals  HospitalsConfig  `toml:"hospitals"`
	Storage    StorageConfig    `toml:"storage"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	ReadTimeoutSecs    int      `toml:"read_timeout_secs"`
	WriteTimeoutSecs   int      `toml:"write_timeout_secs"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TriageConfig represents the triage orchestrator configuration
type TriageConfig struct {
	// ConfidenceThreshold is the minimum classifier confidence (exclusive)
	// for a flagged utterance to be treated as an emergency.
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
}

// ClassifierConfig represents the classification service configuration
type ClassifierConfig struct {
	// APIKey is the OpenAI API key. The OPENAI_API_KEY environment
	// variable takes precedence when set.
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
}

// HospitalsConfig represents the hospital lookup configuration
type HospitalsConfig struct {
	// Provider selects the lookup backend. Only "static" is built in.
	Provider string `toml:"provider"`
}

// StorageConfig represents the persistence configuration
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"`
}

// Timeout returns the classifier call timeout as a duration
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			CORSAllowedOrigins: []string{"*"},
			ReadTimeoutSecs:    30,
			WriteTimeoutSecs:   60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Triage: TriageConfig{
			ConfidenceThreshold: 0.6,
		},
		Classifier: ClassifierConfig{
			Model:          "gpt-4o-mini",
			TimeoutSeconds: 30,
			MaxTokens:      1024,
			Temperature:    0.2,
		},
		Hospitals: HospitalsConfig{
			Provider: "static",
		},
		Storage: StorageConfig{
			SQLitePath: "sahayak.db",
		},
	}
}

// Load loads the configuration from the given TOML file, applying defaults
// for any missing values. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Environment override for the API key so it never has to live in the file
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Classifier.APIKey = key
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Triage.ConfidenceThreshold < 0 || c.Triage.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %f", c.Triage.ConfidenceThreshold)
	}
	if c.Classifier.TimeoutSeconds <= 0 {
		return fmt.Errorf("classifier timeout_seconds must be positive, got %d", c.Classifier.TimeoutSeconds)
	}
	return nil
}
