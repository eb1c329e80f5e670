package config

import (
	"fmt"
	"os"
	"time"
)

// RepositoryConfig holds the index location, the raw package source, and the
// sizing of the metadata caches.
type RepositoryConfig struct {
	// IndexPath locates the index archive, as a file path or URL.
	IndexPath string `yaml:"index_path"`
	// RawBase is the locator prefix of the raw package source tree.
	RawBase string `yaml:"raw_base"`

	// CacheTTL is how long resolved metadata, including failed resolutions,
	// is retained.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// PackageCacheSize bounds the assembled full-package cache.
	PackageCacheSize int `yaml:"package_cache_size"`
	// MetadataCacheSize bounds each raw metadata document cache.
	MetadataCacheSize int `yaml:"metadata_cache_size"`

	// FetchRetries is the retry budget for transient upstream failures.
	FetchRetries int `yaml:"fetch_retries"`
}

// DefaultRepositoryConfig returns default repository configuration.
func DefaultRepositoryConfig() RepositoryConfig {
	return RepositoryConfig{
		CacheTTL:          5 * time.Minute,
		PackageCacheSize:  64,
		MetadataCacheSize: 256,
		FetchRetries:      3,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *RepositoryConfig) ApplyDefaults() {
	defaults := DefaultRepositoryConfig()
	if c.CacheTTL == 0 {
		c.CacheTTL = defaults.CacheTTL
	}
	if c.PackageCacheSize == 0 {
		c.PackageCacheSize = defaults.PackageCacheSize
	}
	if c.MetadataCacheSize == 0 {
		c.MetadataCacheSize = defaults.MetadataCacheSize
	}
	if c.FetchRetries == 0 {
		c.FetchRetries = defaults.FetchRetries
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (c *RepositoryConfig) ApplyEnvOverrides() {
	if v := os.Getenv("MODVAULT_INDEX_PATH"); v != "" {
		c.IndexPath = v
	}
	if v := os.Getenv("MODVAULT_RAW_BASE"); v != "" {
		c.RawBase = v
	}
}

// Validate returns an error if the configuration is invalid.
func (c *RepositoryConfig) Validate() error {
	if c.IndexPath == "" {
		return fmt.Errorf("repository index_path is required")
	}
	if c.RawBase == "" {
		return fmt.Errorf("repository raw_base is required")
	}
	if c.PackageCacheSize < 1 || c.MetadataCacheSize < 1 {
		return fmt.Errorf("cache sizes must be positive")
	}
	return nil
}
