// Package config provides application configuration through environment variables.
package config

import (
	"os"
	"path/filepath"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// LogLevel is the logging level (e.g., "debug", "info", "warn", "error").
	LogLevel string

	// KMSKeyURI is the gocloud.dev/secrets URI of the key protecting exported
	// master keys (e.g. "awskms://...", "base64key://...").
	KMSKeyURI string

	// DefaultAlgorithm is the encryption algorithm for newly created keys
	// (e.g. "aes-gcm", "aes-cbc", "chacha20-poly1305").
	DefaultAlgorithm string

	// DefaultKeyLength is the symmetric key length in bits for newly created keys.
	DefaultKeyLength int

	// DefaultValidation is the HMAC validation algorithm paired with CBC-mode
	// keys (e.g. "hmac-sha256").
	DefaultValidation string

	// MasterKeyBytes is the entropy size of newly generated master keys.
	MasterKeyBytes int

	// MetricsEnabled indicates whether metrics collection is enabled.
	MetricsEnabled bool

	// MetricsNamespace is the namespace for the application metrics.
	MetricsNamespace string
}

// Load loads configuration from environment variables and .env file.
func Load() *Config {
	// Try to load .env file recursively
	loadDotEnv()

	return &Config{
		// Logging
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		// Secret protection
		KMSKeyURI: env.GetString("KEYRING_KMS_KEY_URI", ""),

		// New key defaults
		DefaultAlgorithm:  env.GetString("KEYRING_DEFAULT_ALGORITHM", "aes-gcm"),
		DefaultKeyLength:  env.GetInt("KEYRING_DEFAULT_KEY_LENGTH", 256),
		DefaultValidation: env.GetString("KEYRING_DEFAULT_VALIDATION", "hmac-sha256"),
		MasterKeyBytes:    env.GetInt("KEYRING_MASTER_KEY_BYTES", 32),

		// Metrics
		MetricsEnabled:   env.GetBool("METRICS_ENABLED", false),
		MetricsNamespace: env.GetString("METRICS_NAMESPACE", "keyring"),
	}
}

// loadDotEnv searches for a .env file recursively from the current directory
// up to the root directory and loads it if found.
func loadDotEnv() {
	// Get current working directory
	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	// Search for .env file recursively up the directory tree
	dir := cwd
	for {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			// .env file found, load it
			_ = godotenv.Load(envPath)
			return
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root directory
			break
		}
		dir = parent
	}
}
