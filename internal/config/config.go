package config

import (
	"os"
	"strconv"
	"time"
)

// Platform modes select the storage/messaging backends at process start.
const (
	ModeDev  = "Dev"
	ModeProd = "Prod"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr string
	LogLevel string

	// Platform backend selector: Dev = filesystem backends, Prod = cloud
	PlatformMode string

	// Gateway base URL used to synthesise local pre-signed URLs
	GatewayBaseURL string

	// API key auth (bcrypt hash of the expected X-API-Key; empty disables auth)
	APIKeyHash string

	// Job status store (Prod)
	DatabaseURL string

	// Kafka (Prod)
	KafkaBrokers       []string
	KafkaConsumerGroup string

	// S3/Storage (Prod)
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool

	// Local backends (Dev)
	StorageRootPath   string
	MessagingRootPath string
	PollInterval      time.Duration

	// Upload constraints
	MaxUploadBytes int64
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		PlatformMode: getEnv("PLATFORM_MODE", ModeDev),

		GatewayBaseURL: getEnv("GATEWAY_BASE_URL", "http://localhost:8080"),

		APIKeyHash: getEnv("API_KEY_HASH", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		KafkaBrokers:       []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "docpipe-workers"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "dtce-documents"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3UseSSL:    getEnvBool("S3_USE_SSL", false),

		StorageRootPath:   getEnv("STORAGE_ROOT_PATH", "./data/storage"),
		MessagingRootPath: getEnv("MESSAGING_ROOT_PATH", "./data/queues"),
		PollInterval:      getEnvDuration("MESSAGING_POLL_INTERVAL", 250*time.Millisecond),

		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 50*1024*1024), // 50MB
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
