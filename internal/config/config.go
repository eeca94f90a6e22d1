// Package config loads and validates psikit configuration from
// .psikit/config.yaml, with defaults and environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all psikit configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Action selection settings
	Selection SelectionConfig `yaml:"selection"`

	// World model (Mangle) configuration
	Kernel KernelConfig `yaml:"kernel"`

	// Rule script settings
	Rules RulesConfig `yaml:"rules"`

	// Selection history persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SelectionConfig configures the action-selection engine.
type SelectionConfig struct {
	// ImportanceEnabled switches rule weighting between real attention
	// scores and the topic-boost fallback.
	ImportanceEnabled bool `yaml:"importance_enabled"`

	// TopicBoost is the importance substitute for rules in the active topic.
	TopicBoost float64 `yaml:"topic_boost"`

	// OffTopicBoost is the importance substitute for all other rules.
	OffTopicBoost float64 `yaml:"off_topic_boost"`

	// FocusFilter restricts focus-mode passes to the salient rule subset.
	// When false, focus passes draw from the entire pool.
	FocusFilter bool `yaml:"focus_filter"`
}

// KernelConfig configures the Mangle world model.
type KernelConfig struct {
	FactLimit    int    `yaml:"fact_limit"`
	QueryTimeout string `yaml:"query_timeout"`
}

// RulesConfig configures rule script loading.
type RulesConfig struct {
	// Dir holds the *.yaml rule scripts.
	Dir string `yaml:"dir"`

	// Watch enables hot reload of edited scripts.
	Watch bool `yaml:"watch"`
}

// StoreConfig configures selection history persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig configures categorized debug logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "psikit",
		Version: "0.3.0",

		Selection: SelectionConfig{
			ImportanceEnabled: false,
			TopicBoost:        1.0,
			OffTopicBoost:     0.5,
			FocusFilter:       true,
		},

		Kernel: KernelConfig{
			FactLimit:    100000,
			QueryTimeout: "5s",
		},

		Rules: RulesConfig{
			Dir:   "rules",
			Watch: false,
		},

		Store: StoreConfig{
			DatabasePath: ".psikit/history.db",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".psikit", "config.yaml")
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if dir := os.Getenv("PSIKIT_RULES_DIR"); dir != "" {
		c.Rules.Dir = dir
	}
	if path := os.Getenv("PSIKIT_DB"); path != "" {
		c.Store.DatabasePath = path
	}
	if v := os.Getenv("PSIKIT_IMPORTANCE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Selection.ImportanceEnabled = b
		}
	}
	if v := os.Getenv("PSIKIT_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if level := os.Getenv("PSIKIT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// validate rejects configurations the selection math cannot work with.
func (c *Config) validate() error {
	if c.Selection.TopicBoost <= 0 {
		return fmt.Errorf("selection.topic_boost must be positive, got %v", c.Selection.TopicBoost)
	}
	if c.Selection.OffTopicBoost < 0 {
		return fmt.Errorf("selection.off_topic_boost must be >= 0, got %v", c.Selection.OffTopicBoost)
	}
	if c.Kernel.FactLimit < 0 {
		return fmt.Errorf("kernel.fact_limit must be >= 0, got %d", c.Kernel.FactLimit)
	}
	return nil
}
