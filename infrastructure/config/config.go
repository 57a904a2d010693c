package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"catalog-backend/infrastructure/persistence/cache"
	"catalog-backend/infrastructure/persistence/resilience"
)

// Store providers
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress   string
	Environment     string
	ShutdownTimeout time.Duration

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Store configuration
	StoreProvider    string
	AWSRegion        string
	DynamoDBTable    string
	DynamoDBEndpoint string

	// Events
	EnableEvents bool
	EventBusName string

	// Cache policy. CacheConfigFile, when set, overlays the env values and
	// is watched for changes.
	CacheItemsTTL         time.Duration
	CacheListsTTL         time.Duration
	CacheInvalidationMode string
	CacheCleanupInterval  time.Duration
	CacheMaxEntries       int
	CacheLoadTimeout      time.Duration
	CacheConfigFile       string

	// Circuit breaker around the store
	BreakerEnabled          bool
	BreakerFailureThreshold float64
	BreakerMinRequests      int
	BreakerTimeout          time.Duration

	// Logging
	LogLevel string

	// Observability
	EnableMetrics    bool
	EnableTracing    bool
	OTLPEndpoint     string
	TraceSampleRatio float64

	// CORS
	EnableCORS         bool
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	defaults := cache.DefaultOptions()
	breaker := resilience.DefaultBreakerConfig()

	cfg := &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),

		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		StoreProvider:    strings.ToLower(getEnv("STORE_PROVIDER", StoreMemory)),
		AWSRegion:        getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:    getEnv("DYNAMODB_TABLE", "catalog"),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),

		EnableEvents: getEnvBool("ENABLE_EVENTS", false),
		EventBusName: getEnv("EVENT_BUS_NAME", "catalog-events"),

		CacheItemsTTL:         getEnvDuration("CACHE_ITEMS_TTL", defaults.ItemsTTL),
		CacheListsTTL:         getEnvDuration("CACHE_LISTS_TTL", defaults.ListsTTL),
		CacheInvalidationMode: getEnv("CACHE_INVALIDATION_MODE", string(defaults.InvalidationMode)),
		CacheCleanupInterval:  getEnvDuration("CACHE_CLEANUP_INTERVAL", time.Minute),
		CacheMaxEntries:       getEnvInt("CACHE_MAX_ENTRIES", 0),
		CacheLoadTimeout:      getEnvDuration("CACHE_LOAD_TIMEOUT", 10*time.Second),
		CacheConfigFile:       getEnv("CONFIG_FILE", ""),

		BreakerEnabled:          getEnvBool("BREAKER_ENABLED", true),
		BreakerFailureThreshold: getEnvFloat("BREAKER_FAILURE_THRESHOLD", breaker.FailureThreshold),
		BreakerMinRequests:      getEnvInt("BREAKER_MIN_REQUESTS", int(breaker.MinRequests)),
		BreakerTimeout:          getEnvDuration("BREAKER_TIMEOUT", breaker.Timeout),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		EnableMetrics:    getEnvBool("ENABLE_METRICS", true),
		EnableTracing:    getEnvBool("ENABLE_TRACING", false),
		OTLPEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TraceSampleRatio: getEnvFloat("TRACE_SAMPLE_RATIO", 1.0),

		EnableCORS:         getEnvBool("ENABLE_CORS", true),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}
	cfg.IsLambda = getEnvBool("IS_LAMBDA", cfg.LambdaFunctionName != "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present and coherent.
// Every problem found is reported, not only the first.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreProvider {
	case StoreMemory:
	case StoreDynamoDB:
		if c.DynamoDBTable == "" {
			errs = append(errs, fmt.Errorf("DYNAMODB_TABLE is required when STORE_PROVIDER=dynamodb"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_PROVIDER must be %q or %q, got %q", StoreMemory, StoreDynamoDB, c.StoreProvider))
	}

	if c.EnableEvents && c.EventBusName == "" {
		errs = append(errs, fmt.Errorf("EVENT_BUS_NAME is required when ENABLE_EVENTS=true"))
	}
	if _, err := c.CacheOptions(); err != nil {
		errs = append(errs, fmt.Errorf("cache policy: %w", err))
	}
	if c.CacheCleanupInterval < 0 {
		errs = append(errs, fmt.Errorf("CACHE_CLEANUP_INTERVAL must not be negative"))
	}
	if c.CacheMaxEntries < 0 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_ENTRIES must not be negative"))
	}
	if c.CacheLoadTimeout <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_LOAD_TIMEOUT must be positive"))
	}
	if c.BreakerFailureThreshold <= 0 || c.BreakerFailureThreshold > 1 {
		errs = append(errs, fmt.Errorf("BREAKER_FAILURE_THRESHOLD must be in (0, 1], got %v", c.BreakerFailureThreshold))
	}
	if c.BreakerMinRequests < 0 {
		errs = append(errs, fmt.Errorf("BREAKER_MIN_REQUESTS must not be negative"))
	}
	if c.EnableTracing && c.OTLPEndpoint == "" {
		errs = append(errs, fmt.Errorf("OTEL_EXPORTER_OTLP_ENDPOINT is required when ENABLE_TRACING=true"))
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		errs = append(errs, fmt.Errorf("TRACE_SAMPLE_RATIO must be in [0, 1]"))
	}

	return errors.Join(errs...)
}

// CacheOptions converts the cache settings into the cache policy.
func (c *Config) CacheOptions() (cache.Options, error) {
	mode, err := cache.ParseInvalidationMode(c.CacheInvalidationMode)
	if err != nil {
		return cache.Options{}, err
	}
	opts := cache.Options{
		ItemsTTL:         c.CacheItemsTTL,
		ListsTTL:         c.CacheListsTTL,
		InvalidationMode: mode,
	}
	return opts, opts.Validate()
}

// BreakerConfig converts the breaker settings.
func (c *Config) BreakerConfig() resilience.BreakerConfig {
	cfg := resilience.DefaultBreakerConfig()
	cfg.FailureThreshold = c.BreakerFailureThreshold
	cfg.MinRequests = uint32(c.BreakerMinRequests)
	cfg.Timeout = c.BreakerTimeout
	return cfg
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
