package supabase

// DefaultBucket is the bucket used when none is configured.
const DefaultBucket = "pdfs"

// Config holds Supabase Storage configuration. Leaving URL or SecretKey
// empty disables the backend.
type Config struct {
	// URL is the Supabase project URL (e.g. https://xyz.supabase.co).
	URL string `yaml:"url" mapstructure:"url"`

	// Bucket is the storage bucket name.
	Bucket string `yaml:"bucket" mapstructure:"bucket"`

	// SecretKey is the service-role key used as Bearer token.
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
}
