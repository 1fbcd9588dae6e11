package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the process-wide shared services.
type Config struct {
	Validator *validator.Validate
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port    string
	BaseURL string

	// Gateway credentials and environment. Never logged.
	GatewayClientID            string
	GatewayClientSecret        string
	GatewayExperienceProfileID string
	GatewayEnvironment         string // "sandbox" or "production"
	GatewayTimeout             time.Duration

	OpenSearchURL    string
	OpenSearchUser   string
	OpenSearchPass   string
	EnableLogging    bool
	LoggingLevel     string
	LogRetentionDays int

	ConfigDBPath string
}

var (
	instance          *Config
	appConfigInstance *AppConfig
)

// App returns the shared service singleton.
func App() *Config {
	if instance == nil {
		instance = &Config{
			Validator: validator.New(),
		}
	}
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	if appConfigInstance == nil {
		appConfigInstance = &AppConfig{
			Port:    GetEnv("APP_PORT", "9999"),
			BaseURL: GetEnv("APP_URL", "http://localhost:9999"),

			GatewayClientID:            GetEnv("GATEWAY_CLIENT_ID", ""),
			GatewayClientSecret:        GetEnv("GATEWAY_CLIENT_SECRET", ""),
			GatewayExperienceProfileID: GetEnv("GATEWAY_EXPERIENCE_PROFILE_ID", ""),
			GatewayEnvironment:         GetEnv("GATEWAY_ENVIRONMENT", "sandbox"),
			GatewayTimeout:             time.Duration(GetIntEnv("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,

			OpenSearchURL:    GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
			OpenSearchUser:   GetEnv("OPENSEARCH_USER", ""),
			OpenSearchPass:   GetEnv("OPENSEARCH_PASSWORD", ""),
			EnableLogging:    GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", true),
			LoggingLevel:     GetEnv("LOGGING_LEVEL", "info"),
			LogRetentionDays: GetIntEnv("LOG_RETENTION_DAYS", 30),

			ConfigDBPath: GetEnv("CONFIG_DB_PATH", "data/paylink.db"),
		}
	}
	return appConfigInstance
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
