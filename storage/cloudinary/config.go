package cloudinary

// DefaultFolder is the folder prefix applied to every upload.
const DefaultFolder = "getiva-uploads"

// Config holds Cloudinary configuration. Missing credentials disable the
// backend.
type Config struct {
	// CloudName is the Cloudinary cloud identifier.
	CloudName string `yaml:"cloud_name" mapstructure:"cloud_name"`

	// APIKey authenticates upload requests.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`

	// APISecret signs upload requests.
	APISecret string `yaml:"api_secret" mapstructure:"api_secret"`

	// Folder is the folder prefix for uploaded assets.
	Folder string `yaml:"folder" mapstructure:"folder"`
}

// ApplyDefaults fills in zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Folder == "" {
		c.Folder = DefaultFolder
	}
}
