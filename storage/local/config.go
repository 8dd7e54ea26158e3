package local

import "fmt"

// Default configuration values.
const (
	DefaultBasePath    = "./uploads"
	DefaultServePrefix = "/uploads"
)

// Config holds local filesystem backend configuration.
type Config struct {
	// BasePath is the directory files are written into.
	BasePath string `yaml:"base_path" mapstructure:"base_path"`

	// ServePrefix is the URL prefix the directory is served under.
	ServePrefix string `yaml:"serve_prefix" mapstructure:"serve_prefix"`

	// MaxFiles is the ceiling on sequential db<N> slots.
	MaxFiles int `yaml:"max_files" mapstructure:"max_files"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.BasePath == "" {
		c.BasePath = DefaultBasePath
	}
	if c.ServePrefix == "" {
		c.ServePrefix = DefaultServePrefix
	}
	if c.MaxFiles <= 0 {
		c.MaxFiles = DefaultMaxFiles
	}
}

// Validate checks that the local configuration is valid.
func (c *Config) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("local: base_path is required")
	}
	return nil
}
