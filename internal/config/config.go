// Package config holds the patchwright configuration, loaded from
// .patchwright/config.yaml with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all patchwright configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Apply configures the edit application engine defaults.
	Apply ApplyConfig `yaml:"apply"`

	// Workspace configures the local file store.
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ApplyConfig configures edit application.
type ApplyConfig struct {
	// Source labels staging notifications.
	Source string `yaml:"source"`

	// EnableEscalation toggles the repair/rewrite chain for failed
	// modify edits.
	EnableEscalation bool `yaml:"enable_escalation"`

	// Stage names the pipeline stage reported in repair requests.
	Stage string `yaml:"stage"`
}

// WorkspaceConfig configures the local workspace store.
type WorkspaceConfig struct {
	// IgnoreDirs are directory names skipped when building the known
	// path set.
	IgnoreDirs []string `yaml:"ignore_dirs"`

	// MaxFileSize caps the bytes read from a single file.
	MaxFileSize int64 `yaml:"max_file_size"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "patchwright",
		Version: "0.1.0",
		Apply: ApplyConfig{
			Source:           "automation",
			EnableEscalation: true,
			Stage:            "coding",
		},
		Workspace: WorkspaceConfig{
			IgnoreDirs:  []string{".git", "node_modules", "dist", "build", ".patchwright", "vendor"},
			MaxFileSize: 2 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Path returns the conventional config location inside a workspace.
func Path(workspace string) string {
	return filepath.Join(workspace, ".patchwright", "config.yaml")
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
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
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

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PATCHWRIGHT_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
	if v := os.Getenv("PATCHWRIGHT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("PATCHWRIGHT_SOURCE"); v != "" {
		c.Apply.Source = v
	}
}
