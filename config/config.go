// Package config defines the trackd configuration tree and the loader that
// fills it from a YAML file, a .env file, and process environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/getiva/trackd/logger"
	"github.com/getiva/trackd/record"
	"github.com/getiva/trackd/storage/cloudinary"
	"github.com/getiva/trackd/storage/drive"
	"github.com/getiva/trackd/storage/local"
	"github.com/getiva/trackd/storage/supabase"
)

// ServiceName is the canonical name used for config discovery and logging.
const ServiceName = "trackd"

// Config is the full service configuration.
type Config struct {
	Base    BaseConfig    `yaml:"base" mapstructure:"base"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Records record.Config `yaml:"records" mapstructure:"records"`
}

// BaseConfig carries service identity fields.
type BaseConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`
	Environment string `yaml:"environment" mapstructure:"environment"`
	Version     string `yaml:"version" mapstructure:"version"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string   `yaml:"host" mapstructure:"host"`
	Port         int      `yaml:"port" mapstructure:"port"`
	ReadTimeout  int      `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int      `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds
	IdleTimeout  int      `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	CORSOrigins  []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// StorageConfig configures the ingestion chain and its backends. The chain
// order is fixed; a backend left unconfigured is skipped at ingest time.
type StorageConfig struct {
	AttemptTimeout time.Duration     `yaml:"attempt_timeout" mapstructure:"attempt_timeout"`
	FetchTimeout   time.Duration     `yaml:"fetch_timeout" mapstructure:"fetch_timeout"`
	Drive          drive.Config      `yaml:"drive" mapstructure:"drive"`
	Supabase       supabase.Config   `yaml:"supabase" mapstructure:"supabase"`
	Cloudinary     cloudinary.Config `yaml:"cloudinary" mapstructure:"cloudinary"`
	Local          local.Config      `yaml:"local" mapstructure:"local"`
}

// ApplyDefaults fills unset fields across the whole tree.
func (c *Config) ApplyDefaults() {
	if c.Base.Name == "" {
		c.Base.Name = ServiceName
	}
	if c.Base.Environment == "" {
		c.Base.Environment = "development"
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}

	c.Logging.ApplyDefaults()

	if c.Storage.AttemptTimeout <= 0 {
		c.Storage.AttemptTimeout = 30 * time.Second
	}
	if c.Storage.FetchTimeout <= 0 {
		c.Storage.FetchTimeout = 15 * time.Second
	}
	c.Storage.Supabase.ApplyDefaults()
	c.Storage.Cloudinary.ApplyDefaults()
	c.Storage.Local.ApplyDefaults()

	c.Records.ApplyDefaults()
}

// Validate checks the whole tree for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Server.Port)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Local.Validate(); err != nil {
		return err
	}
	return c.Records.Validate()
}
