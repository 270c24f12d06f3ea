// Package config loads the export worker's process configuration from
// environment variables, following the same envOrDefault pattern the
// teacher codebase uses for its cobra flag defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every environment-derived setting the worker needs at
// startup. It is loaded once in cmd/exportworker/main.go and frozen for the
// lifetime of the process — no component re-reads the environment later.
type Config struct {
	AppHost string
	AppPort int

	LogLevel string

	// AWS / object storage
	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// Broker
	SQSQueueURL string

	// Document store (audit log + notification tree)
	MongoDatasourceURL   string
	AuditLogMongoDB      string
	NotificationMongoDB  string

	// Cache (user-role resolution)
	PrimaryRedisHost     string
	PrimaryRedisPort     int
	PrimaryRedisPassword string
	PrimaryRedisDB       int

	// Upstream services
	AnalyticsServiceHost      string
	ClientServiceHost         string
	HTTPProtocol              string
	AnalyticsInsecureSkipTLS  bool

	// Export limits
	ExportFileExpiryHours int
	MaxExportSizeMB       int
}

// Load reads Config from the process environment, applying the defaults
// documented in the external-interfaces contract.
func Load() (*Config, error) {
	cfg := &Config{
		AppHost:                  envOrDefault("APP_HOST", "0.0.0.0"),
		AppPort:                  envOrDefaultInt("APP_PORT", 8087),
		LogLevel:                 envOrDefault("LOG_LEVEL", "info"),
		AWSRegion:                envOrDefault("AWS_REGION", "us-east-1"),
		AWSS3Bucket:              envOrDefault("AWS_S3_BUCKET", "sifthub-exports"),
		AWSAccessKeyID:           os.Getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey:       os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SQSQueueURL:              os.Getenv("SQS_QUEUE_URL"),
		MongoDatasourceURL:       os.Getenv("MONGO_DATASOURCE_URL"),
		AuditLogMongoDB:          envOrDefault("AUDIT_LOG_MONGO_DATABASE", "sifthub_reporting"),
		NotificationMongoDB:      envOrDefault("NOTIFICATION_MONGO_DATABASE", "sifthub_notifications"),
		PrimaryRedisHost:         envOrDefault("PRIMARY_REDIS_HOST", "localhost"),
		PrimaryRedisPort:         envOrDefaultInt("PRIMARY_REDIS_PORT", 6379),
		PrimaryRedisPassword:     os.Getenv("PRIMARY_REDIS_PASSWORD"),
		PrimaryRedisDB:           envOrDefaultInt("PRIMARY_REDIS_DB", 0),
		AnalyticsServiceHost:     os.Getenv("ANALYTICS_SERVICE_HOST"),
		ClientServiceHost:        os.Getenv("CLIENT_SERVICE_HOST"),
		HTTPProtocol:             envOrDefault("HTTP_PROTOCOL", "https"),
		AnalyticsInsecureSkipTLS: envOrDefault("ANALYTICS_INSECURE_SKIP_VERIFY", "false") == "true",
		ExportFileExpiryHours:    envOrDefaultInt("EXPORT_FILE_EXPIRY_HOURS", 24),
		MaxExportSizeMB:          envOrDefaultInt("MAX_EXPORT_SIZE_MB", 100),
	}

	if cfg.SQSQueueURL == "" {
		return nil, fmt.Errorf("config: SQS_QUEUE_URL is required")
	}
	if cfg.MongoDatasourceURL == "" {
		return nil, fmt.Errorf("config: MONGO_DATASOURCE_URL is required")
	}
	if cfg.AnalyticsServiceHost == "" {
		return nil, fmt.Errorf("config: ANALYTICS_SERVICE_HOST is required")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
