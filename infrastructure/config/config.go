package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StorageDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string
	Environment     string
	ShutdownTimeout time.Duration

	// Storage
	StorageBackend string
	SQLitePath     string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	EventBusName  string

	// Lambda configuration
	IsLambda bool

	// Embedding cache
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	EmbeddingTTL  time.Duration

	// AI provider
	AIProvider   string
	AIBaseURL    string
	AIModel      string
	AIEmbedModel string
	AIAPIKey     string
	AITimeout    time.Duration

	// Canvas rules file, watched for changes when set
	CanvasConfigPath string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Per-workspace cap on AI requests
	AIRateLimit  int
	AIRateWindow time.Duration

	// Persistence
	PersistFailureThreshold int
	EventLogEnabled         bool

	// Feature flags
	EnableMetrics  bool
	EnableCORS     bool
	AllowedOrigins []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageSQLite)),
		SQLitePath:     getEnv("SQLITE_PATH", "data/nodal.db"),

		AWSRegion:     getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "nodal")),
		EventBusName:  getEnv("EVENT_BUS_NAME", ""),

		IsLambda: getEnvBool("IS_LAMBDA", os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		EmbeddingTTL:  getEnvDuration("EMBEDDING_TTL", 7*24*time.Hour),

		AIProvider:   strings.ToLower(getEnv("AI_PROVIDER", "ollama")),
		AIBaseURL:    getEnv("AI_BASE_URL", ""),
		AIModel:      getEnv("AI_MODEL", ""),
		AIEmbedModel: getEnv("AI_EMBED_MODEL", ""),
		AIAPIKey:     getEnv("AI_API_KEY", getEnv("OPENAI_API_KEY", "")),
		AITimeout:    getEnvDuration("AI_TIMEOUT", 120*time.Second),

		CanvasConfigPath: getEnv("CANVAS_CONFIG", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "nodal"),

		AIRateLimit:  getEnvInt("AI_RATE_LIMIT", 30),
		AIRateWindow: getEnvDuration("AI_RATE_WINDOW", time.Minute),

		PersistFailureThreshold: getEnvInt("PERSIST_FAILURE_THRESHOLD", 3),
		EventLogEnabled:         getEnvBool("EVENT_LOG_ENABLED", true),

		LogLevel:       getEnv("LOG_LEVEL", "info"),
		EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
		EnableCORS:     getEnvBool("ENABLE_CORS", true),
		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMemory:
	case StorageSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	case StorageDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.AIRateLimit < 0 {
		return fmt.Errorf("AI_RATE_LIMIT must not be negative")
	}

	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvDuration parses values such as "30s" or "5m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
