package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port          string
	PublicBaseURL string

	// Database
	SQLiteDBPath string

	// AMQP (optional; empty URL disables the change bridge)
	AMQPURL      string
	AMQPExchange string

	// Slip storage
	BlobBackend           string
	BlobDir               string
	GCSBucket             string
	GoogleCredentialsFile string

	// Auth
	AdminPasswordHash string
	SessionSecret     string
	SessionTTL        time.Duration
}

func Load() *Config {
	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/cashtrack.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "cashtrack.changes"),

		BlobBackend:           getEnv("BLOB_BACKEND", "fs"),
		BlobDir:               getEnv("BLOB_DIR", "./data/slips"),
		GCSBucket:             getEnv("GCS_BUCKET", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),

		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		SessionSecret:     getEnv("SESSION_SECRET", ""),
		SessionTTL:        getEnvDuration("SESSION_TTL", 12*time.Hour),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.PublicBaseURL != "" {
		if parsed, err := url.Parse(c.PublicBaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid public base URL '%s'", c.PublicBaseURL))
		}
	}

	// Validate SQLite configuration
	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate slip storage backend
	switch c.BlobBackend {
	case "fs":
		if c.BlobDir == "" {
			errors = append(errors, "blob directory cannot be empty when using fs backend")
		}
	case "gcs":
		if c.GCSBucket == "" {
			errors = append(errors, "GCS bucket is required when using gcs backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid blob backend '%s': must be one of [fs gcs]", c.BlobBackend))
	}

	// Validate auth configuration
	if c.AdminPasswordHash == "" {
		errors = append(errors, "ADMIN_PASSWORD_HASH is required")
	}
	if len(c.SessionSecret) < 32 {
		errors = append(errors, "SESSION_SECRET must be at least 32 bytes")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 30*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 30 days", c.SessionTTL))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
