package record

import "fmt"

// Backend names for the record store selection.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// Config selects and configures the record store.
type Config struct {
	// Backend is "csv" or "sqlite".
	Backend string `mapstructure:"backend" json:"backend"`

	// DataDir holds the CSV files when Backend is "csv".
	DataDir string `mapstructure:"data_dir" json:"data_dir"`

	// DSN is the sqlite database path when Backend is "sqlite".
	DSN string `mapstructure:"dsn" json:"dsn"`
}

// ApplyDefaults fills unset fields with sensible values.
func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendCSV
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.DSN == "" {
		c.DSN = "./data/trackd.db"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("record: backend must be %q or %q, got %q", BackendCSV, BackendSQLite, c.Backend)
	}
	if c.Backend == BackendCSV && c.DataDir == "" {
		return fmt.Errorf("record: data_dir is required for the csv backend")
	}
	if c.Backend == BackendSQLite && c.DSN == "" {
		return fmt.Errorf("record: dsn is required for the sqlite backend")
	}
	return nil
}
