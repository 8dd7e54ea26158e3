package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from a YAML file and the environment. When
// configFile is empty the standard locations are searched; a missing config
// file is fine since every field has a default or can come from env vars.
// Precedence, lowest to highest: YAML file, .env file, process environment.
func Load(configFile string) (*Config, error) {
	if configFile == "" {
		configFile = findFirst(
			"./config.yml",
			"./cmd/trackd/config.yml",
			"./config/config.yml",
		)
	}
	if envFile := findFirst(".env."+ServiceName, ".env"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "[config] warning: failed to load %s: %v\n", envFile, err)
		}
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	v.AutomaticEnv()
	bindEnvVars(v)

	cfg := &Config{}
	// Environment values arrive as strings; decode them into typed fields.
	weaklyTyped := func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }
	if err := v.Unmarshal(cfg, weaklyTyped); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findFirst(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envPrefixes maps environment variable prefixes onto config tree sections,
// so STORAGE_SUPABASE_SECRET_KEY lands on storage.supabase.secret_key.
var envPrefixes = []struct {
	env string
	key string
}{
	{"BASE_", "base."},
	{"SERVER_", "server."},
	{"LOGGING_", "logging."},
	{"STORAGE_DRIVE_", "storage.drive."},
	{"STORAGE_SUPABASE_", "storage.supabase."},
	{"STORAGE_CLOUDINARY_", "storage.cloudinary."},
	{"STORAGE_LOCAL_", "storage.local."},
	{"STORAGE_", "storage."},
	{"RECORDS_", "records."},
}

// bindEnvVars maps prefixed environment variables onto nested viper keys.
// The first matching prefix wins, so the specific storage backend prefixes
// are listed before the generic STORAGE_ one.
func bindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		name, value := pair[0], pair[1]
		for _, p := range envPrefixes {
			if !strings.HasPrefix(name, p.env) {
				continue
			}
			rest := strings.ToLower(strings.TrimPrefix(name, p.env))
			if rest != "" {
				v.Set(p.key+rest, value)
			}
			break
		}
	}
}
