// Package config declares the engine configuration and its layered
// loader (yaml base, environment overlay, env vars).
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Backend BackendConfig `mapstructure:"backend"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	ListenAddress  string   `mapstructure:"listen_address"`
	MetricsAddress string   `mapstructure:"metrics_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	ReadTimeout    int      `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout   int      `mapstructure:"write_timeout"` // milliseconds
}

// BackendConfig points the engine at the campaign/intelligence backend.
type BackendConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// GetTimeout returns the per-call backend timeout.
func (b BackendConfig) GetTimeout() time.Duration {
	if b.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.Timeout) * time.Millisecond
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SessionConfig holds workflow session tuning knobs.
type SessionConfig struct {
	AutoSaveInterval  int `mapstructure:"auto_save_interval"`  // milliseconds
	AnalysisTimeout   int `mapstructure:"analysis_timeout"`    // milliseconds
	QuickAdvanceDelay int `mapstructure:"quick_advance_delay"` // milliseconds
	AutoAdvanceDelay  int `mapstructure:"auto_advance_delay"`  // milliseconds
}

func (s SessionConfig) GetAutoSaveInterval() time.Duration {
	if s.AutoSaveInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.AutoSaveInterval) * time.Millisecond
}

func (s SessionConfig) GetAnalysisTimeout() time.Duration {
	if s.AnalysisTimeout <= 0 {
		return 120 * time.Second
	}
	return time.Duration(s.AnalysisTimeout) * time.Millisecond
}

func (s SessionConfig) GetQuickAdvanceDelay() time.Duration {
	if s.QuickAdvanceDelay <= 0 {
		return 800 * time.Millisecond
	}
	return time.Duration(s.QuickAdvanceDelay) * time.Millisecond
}

func (s SessionConfig) GetAutoAdvanceDelay() time.Duration {
	if s.AutoAdvanceDelay <= 0 {
		return 1500 * time.Millisecond
	}
	return time.Duration(s.AutoAdvanceDelay) * time.Millisecond
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func validateConfig(cfg *Config) error {
	if cfg.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address is required")
	}
	return nil
}
