package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	Collaborators CollaboratorsConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// CacheConfig holds result cache configuration. Backend "redis" is for
// multi-replica deployments; "memory" keeps decisions in-process. The TTL is
// the accepted staleness window for role-derived grants.
type CacheConfig struct {
	Backend       string // redis, memory
	TTL           time.Duration
	MemorySize    int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// CollaboratorsConfig holds the base URLs and timeouts for peer services
type CollaboratorsConfig struct {
	IdentityURL       string
	PermissionURL     string
	ProductURL        string
	CallTimeout       time.Duration
	ValidationTimeout time.Duration
}

// SecurityConfig holds token verification configuration
type SecurityConfig struct {
	JWTSecret string
	JWTIssuer string
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "permitd"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "permitd"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", "memory"),
			TTL:           parseDuration("CACHE_TTL", "15m"),
			MemorySize:    parseInt("CACHE_MEMORY_SIZE", 10000),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       parseInt("REDIS_DB", 0),
		},
		Collaborators: CollaboratorsConfig{
			IdentityURL:       getEnv("IDENTITY_SERVICE_URL", "http://localhost:8081"),
			PermissionURL:     getEnv("PERMISSION_SERVICE_URL", "http://localhost:8080"),
			ProductURL:        getEnv("PRODUCT_SERVICE_URL", "http://localhost:8082"),
			CallTimeout:       parseDuration("COLLABORATOR_CALL_TIMEOUT", "5s"),
			ValidationTimeout: parseDuration("ORDER_VALIDATION_TIMEOUT", "10s"),
		},
		Security: SecurityConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTIssuer: getEnv("JWT_ISSUER", "permitd"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", serviceName),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 50)),
			Burst:             parseInt("RATELIMIT_BURST", 100),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	switch c.Cache.Backend {
	case "redis", "memory":
	default:
		return fmt.Errorf("CACHE_BACKEND must be redis or memory, got %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
