package drive

// Config holds Google Drive backend configuration. An empty credentials
// path disables the backend.
type Config struct {
	// CredentialsFile is the path to a service-account JSON key file.
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}
