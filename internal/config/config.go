package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	// TLSAddr enables a second listener with a self-signed certificate.
	TLSAddr string

	LogLevel  string
	LogFormat string

	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string
	PostgresSSLMode  string
	PostgresMaxConns int

	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	MediaPresignTTL time.Duration

	CacheTTLBlogs        time.Duration
	CacheTTLPrograms     time.Duration
	CacheTTLEmpty        time.Duration
	CacheCleanupInterval time.Duration

	QueryWarnThreshold time.Duration
	MetricsBufferSize  int

	BreakerFailures int
	BreakerTimeout  time.Duration

	RateLimit       int
	RateLimitWindow time.Duration

	AccessLogEnabled bool
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		TLSAddr:              getEnv("TLS_ADDR", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "text"),
		PostgresUser:         getEnv("POSTGRES_USER", "cms"),
		PostgresPassword:     getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:         getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:         getEnv("POSTGRES_PORT", "5432"),
		PostgresDatabase:     getEnv("POSTGRES_DATABASE", "cms"),
		PostgresSSLMode:      getEnv("POSTGRES_SSL_MODE", "disable"),
		PostgresMaxConns:     getEnvInt("POSTGRES_MAX_CONNS", 20),
		S3Bucket:             getEnv("S3_BUCKET", "cms-media"),
		S3Region:             getEnv("AWS_REGION", "us-east-1"),
		S3Endpoint:           getEnv("S3_ENDPOINT", ""),
		S3AccessKey:          getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:          getEnv("AWS_SECRET_ACCESS_KEY", ""),
		MediaPresignTTL:      getEnvDuration("MEDIA_PRESIGN_TTL", 0),
		CacheTTLBlogs:        getEnvDuration("CACHE_TTL_BLOGS", 2*time.Minute),
		CacheTTLPrograms:     getEnvDuration("CACHE_TTL_PROGRAMS", 5*time.Minute),
		CacheTTLEmpty:        getEnvDuration("CACHE_TTL_EMPTY", 30*time.Second),
		CacheCleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		QueryWarnThreshold:   getEnvDuration("QUERY_WARN_THRESHOLD", time.Second),
		MetricsBufferSize:    getEnvInt("METRICS_BUFFER_SIZE", 100),
		BreakerFailures:      getEnvInt("BREAKER_FAILURES", 5),
		BreakerTimeout:       getEnvDuration("BREAKER_TIMEOUT", 30*time.Second),
		RateLimit:            getEnvInt("RATE_LIMIT", 100),
		RateLimitWindow:      getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		AccessLogEnabled:     getEnvBool("ACCESS_LOG_ENABLED", true),
	}
}

// Validate rejects settings that would let the page cache outlive the media
// URLs stored in it.
func (c *Config) Validate() error {
	if c.MediaPresignTTL <= 0 {
		return nil
	}
	longest := c.CacheTTLBlogs
	if c.CacheTTLPrograms > longest {
		longest = c.CacheTTLPrograms
	}
	if c.MediaPresignTTL < longest {
		return fmt.Errorf("MEDIA_PRESIGN_TTL (%s) must be at least the longest page cache TTL (%s)", c.MediaPresignTTL, longest)
	}
	return nil
}

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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
