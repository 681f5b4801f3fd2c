package config

import "context"

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads the configuration at path on top of Default and validates
	// the result.
	Load(ctx context.Context, path string) (*Config, error)
}
