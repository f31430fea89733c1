package config

import (
	"reflect"
	"strings"

	"materiel-tracker/core/database"
	"materiel-tracker/core/logger"
	"materiel-tracker/core/server"
	"materiel-tracker/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the photo object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Engine holds tuning knobs for the reconciliation engine.
	Engine EngineConfig `mapstructure:"engine"`
}

// EngineConfig holds tuning for numbering and scan sessions.
type EngineConfig struct {
	// NumberPrefix is the institution prefix of generated inventory numbers.
	NumberPrefix string `mapstructure:"number_prefix" default:"PSY"`
	// LookupTimeoutSeconds bounds the store round-trip of a code lookup.
	LookupTimeoutSeconds int `mapstructure:"lookup_timeout_seconds" default:"5"`
	// ConfirmTimeoutSeconds bounds the store round-trip of a scan confirmation.
	ConfirmTimeoutSeconds int `mapstructure:"confirm_timeout_seconds" default:"5"`
	// MaxAllocationAttempts caps allocation retries after numbering conflicts.
	MaxAllocationAttempts int `mapstructure:"max_allocation_attempts" default:"3"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// Load .env file if it exists; ignore error if it doesn't (e.g. production).
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. SERVER_PORT -> server.port)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
