package config

// ServiceConfig defines the standard configuration lifecycle methods.
// Each section of the application config implements this interface so the
// loader can process them uniformly.
type ServiceConfig interface {
	// ApplyDefaults fills zero values with sensible defaults
	ApplyDefaults()

	// ApplyEnvOverrides applies environment variable overrides
	ApplyEnvOverrides()

	// Validate returns an error if the configuration is invalid
	Validate() error
}

// ApplyServiceConfigs applies the configuration lifecycle to all sections.
// It calls ApplyDefaults, ApplyEnvOverrides, and Validate in order.
func ApplyServiceConfigs(configs ...ServiceConfig) error {
	for _, cfg := range configs {
		cfg.ApplyDefaults()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	return nil
}
