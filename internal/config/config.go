// Package config loads the application configuration.
// Order: defaults -> config.yml -> config.local.yml -> env overrides -> validation.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Repository RepositoryConfig `yaml:"repository"`
}

// Load reads configuration from configDir and applies the configuration
// lifecycle to every section.
func Load(configDir string) (*Config, error) {
	// 1. Start with default values (so YAML can override them, including bool fields)
	cfg := &Config{
		Logging:    DefaultLoggingConfig(),
		Server:     DefaultServerConfig(),
		Repository: DefaultRepositoryConfig(),
	}

	// 2. Load config.yml (overrides defaults)
	loadFile(filepath.Join(configDir, "config.yml"), cfg)

	// 3. Load config.local.yml (overrides config.yml)
	loadFile(filepath.Join(configDir, "config.local.yml"), cfg)

	// 4. Apply the lifecycle: ApplyDefaults fills gaps, ApplyEnvOverrides, Validate
	if err := ApplyServiceConfigs(
		&cfg.Logging,
		&cfg.Server,
		&cfg.Repository,
	); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

func loadFile(filename string, cfg *Config) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return // File doesn't exist, skip
		}
		log.Printf("Warning: Error reading %s: %v", filename, err)
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("Warning: Error parsing %s: %v", filename, err)
	}
}
