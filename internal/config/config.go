package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	AI      AIConfig
	Cache   CacheConfig
	Log     LogConfig
	Metrics MetricsConfig
}

// ServerConfig points at the remote incident API.
type ServerConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// SessionConfig is the identity used for development runs. In a deployed
// setup the authentication collaborator supplies these instead.
type SessionConfig struct {
	UserID string
	Role   string
}

// AIConfig holds defaults for analysis requests.
type AIConfig struct {
	Provider        string
	AnalysisType    string
	ComplianceLevel string
}

// CacheConfig tunes the query cache.
type CacheConfig struct {
	TTLSeconds int
}

// LogConfig holds log output settings. The TUI owns stdout, so logs go to a
// file.
type LogConfig struct {
	Path  string
	Level string
}

// MetricsConfig controls the optional localhost metrics endpoint.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// Load reads configuration from file and env. Env var overrides use prefix SNOWDESK_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("server.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("session.user_id", os.Getenv("USER"))
	v.SetDefault("session.role", "USER")
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.analysis_type", "general")
	v.SetDefault("ai.compliance_level", "internal")
	v.SetDefault("cache.ttl_seconds", 30)
	v.SetDefault("log.path", filepath.Join(os.Getenv("HOME"), ".local", "state", "snowdesk", "snowdesk.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "127.0.0.1:9190")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("SNOWDESK_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "snowdesk"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SNOWDESK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if
// needed. Only non-sensitive preferences belong here; session identity stays
// in the environment.
func Save(cfg Config) error {
	path := os.Getenv("SNOWDESK_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "snowdesk", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("server.base_url", cfg.Server.BaseURL)
	v.Set("server.timeout_seconds", cfg.Server.TimeoutSeconds)
	v.Set("session.user_id", cfg.Session.UserID)
	v.Set("session.role", cfg.Session.Role)
	v.Set("ai.provider", cfg.AI.Provider)
	v.Set("ai.analysis_type", cfg.AI.AnalysisType)
	v.Set("ai.compliance_level", cfg.AI.ComplianceLevel)
	v.Set("cache.ttl_seconds", cfg.Cache.TTLSeconds)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("metrics.enabled", cfg.Metrics.Enabled)
	v.Set("metrics.addr", cfg.Metrics.Addr)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
