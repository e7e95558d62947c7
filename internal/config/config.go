package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// PasswordPlaceholder is the token in the DATABASE template that DATABASE_PASSWORD replaces.
const PasswordPlaceholder = "<db_password>"

// DatabaseConfig holds database connection settings.
// URL is a connection string template; the password is kept apart and spliced in at connect time.
type DatabaseConfig struct {
	URL                string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnectTimeoutSec  int
}

// ConnectTimeout returns the deadline for the single startup ping.
func (c DatabaseConfig) ConnectTimeout() time.Duration {
	if c.ConnectTimeoutSec <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ConnectTimeoutSec) * time.Second
}

// MinIOConfig holds object storage settings for MinIO.
// An empty Endpoint disables the object storage connector.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether an object storage endpoint was configured.
func (c MinIOConfig) Enabled() bool {
	return c.Endpoint != ""
}

// TracingConfig holds the subset of OpenTelemetry settings read by the app itself.
// Exporter endpoints and samplers are read by the SDK from the standard OTEL_* variables.
type TracingConfig struct {
	Disabled    bool
	ServiceName string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Environment        string
	Port               string
	ShutdownTimeoutSec int
	Database           DatabaseConfig
	MinIO              MinIOConfig
	Tracing            TracingConfig
}

// ShutdownTimeout bounds how long the listener may take to drain.
func (c *AppConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSec) * time.Second
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Environment:        getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "3000"),
		ShutdownTimeoutSec: getEnvInt("SHUTDOWN_TIMEOUT_SEC", 10),
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE", ""),
			Password:           getEnv("DATABASE_PASSWORD", ""),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectTimeoutSec:  getEnvInt("DB_CONNECT_TIMEOUT_SEC", 5),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Tracing: TracingConfig{
			Disabled:    getEnvBool("OTEL_SDK_DISABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "appserver"),
		},
	}
}

// Validate checks the values the bootstrap cannot start without.
func (c *AppConfig) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE is required")
	}
	if strings.Contains(c.Database.URL, PasswordPlaceholder) && c.Database.Password == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required when DATABASE contains %s", PasswordPlaceholder)
	}
	p, err := strconv.Atoi(c.Port)
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
