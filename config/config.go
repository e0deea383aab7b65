package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	OAuth    OAuthConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// OAuthConfig holds the token and authorization flow parameters.
type OAuthConfig struct {
	// Issuer is the public base URL of this server.
	Issuer string

	// LoginURL is where unauthenticated resource owners are sent.
	LoginURL string

	// ErrorURL is the browser-facing error page for failed authorize requests.
	ErrorURL string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AuthCodeTTL     time.Duration
	PendingAuthTTL  time.Duration

	// Scopes is the global recognized-scope vocabulary.
	Scopes []string

	// DefaultScope is granted when the request omits scope.
	DefaultScope string
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	AllowedOrigins   []string
	SessionCookie    string
	RateLimitEnabled bool
	RateLimitRPS     int
	RateLimitBurst   int

	// Argon2 parameters for client secret hashing
	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level          string
	Environment    string
	EnableFile     bool
	FilePath       string
	FileMaxSizeMB  int
	FileMaxBackups int
	FileMaxAgeDays int

	// Audit sink buffering
	AuditBufferSize int
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "oauth"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "oauth_core"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		OAuth: OAuthConfig{
			Issuer:          getEnv("OAUTH_ISSUER", "https://auth.paiecashplay.com"),
			LoginURL:        getEnv("OAUTH_LOGIN_URL", "https://auth.paiecashplay.com/login"),
			ErrorURL:        getEnv("OAUTH_ERROR_URL", "https://auth.paiecashplay.com/error"),
			AccessTokenTTL:  getEnvDuration("OAUTH_ACCESS_TOKEN_TTL", 1*time.Hour),
			RefreshTokenTTL: getEnvDuration("OAUTH_REFRESH_TOKEN_TTL", 30*24*time.Hour),
			AuthCodeTTL:     getEnvDuration("OAUTH_AUTH_CODE_TTL", 10*time.Minute),
			PendingAuthTTL:  getEnvDuration("OAUTH_PENDING_AUTH_TTL", 10*time.Minute),
			Scopes:          getEnvSlice("OAUTH_SCOPES", []string{"openid", "profile", "email", "offline_access"}),
			DefaultScope:    getEnv("OAUTH_DEFAULT_SCOPE", "openid profile email"),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvSlice("ALLOWED_ORIGINS", []string{"https://paiecashplay.com"}),
			SessionCookie:    getEnv("SESSION_COOKIE_NAME", "pcp_session"),
			RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			RateLimitRPS:     getEnvInt("RATE_LIMIT_RPS", 100),
			RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 200),

			// Argon2id recommended parameters (OWASP)
			Argon2Memory:      getEnvUint32("ARGON2_MEMORY", 64*1024), // 64 MB
			Argon2Iterations:  getEnvUint32("ARGON2_ITERATIONS", 3),
			Argon2Parallelism: getEnvUint8("ARGON2_PARALLELISM", 4),
			Argon2SaltLength:  getEnvUint32("ARGON2_SALT_LENGTH", 16),
			Argon2KeyLength:   getEnvUint32("ARGON2_KEY_LENGTH", 32),
		},
		Logging: LoggingConfig{
			Level:           getEnv("LOG_LEVEL", "info"),
			Environment:     getEnv("LOG_ENVIRONMENT", "development"),
			EnableFile:      getEnvBool("LOG_FILE_ENABLED", false),
			FilePath:        getEnv("LOG_FILE_PATH", "./data/oauth-core.log"),
			FileMaxSizeMB:   getEnvInt("LOG_FILE_MAX_SIZE_MB", 100),
			FileMaxBackups:  getEnvInt("LOG_FILE_MAX_BACKUPS", 5),
			FileMaxAgeDays:  getEnvInt("LOG_FILE_MAX_AGE_DAYS", 14),
			AuditBufferSize: getEnvInt("AUDIT_BUFFER_SIZE", 1000),
		},
	}
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint32(key string, defaultValue uint32) uint32 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint32(intValue)
		}
	}
	return defaultValue
}

func getEnvUint8(key string, defaultValue uint8) uint8 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 8); err == nil {
			return uint8(intValue)
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
