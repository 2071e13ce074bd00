package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName         string
	AppVersion      string
	Environment     string
	HTTPAddr        string
	DefaultBranchID int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RateLimit RateLimitConfig
	Billing   BillingConfig
}

// RateLimitConfig configures the Redis-backed request limiter.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// StoreTimeoutMs bounds every Redis call so fail-open cannot hang.
	StoreTimeoutMs int
}

// BillingConfig selects the billing backend.
type BillingConfig struct {
	// Mode is "internal" (shadow documents) or "fiscal" (SII, unimplemented).
	Mode           string
	FiscalEndpoint string
	FiscalAPIKey   string

	PDFOutputDir string
	PDFBaseURL   string
}

const (
	BillingModeInternal = "internal"
	BillingModeFiscal   = "fiscal"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:         getenv("APP_SERVICE", "opticore"),
		AppVersion:      getenv("APP_VERSION", "0.1.0"),
		Environment:     getenv("ENVIRONMENT", "development"),
		HTTPAddr:        getenv("HTTP_ADDR", ":8080"),
		DefaultBranchID: getenvInt64("DEFAULT_BRANCH", 0),
		OTLPEndpoint:    getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "opticore"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 0),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 0),

		RateLimit: RateLimitConfig{
			Enabled:        getenvBool("RATE_LIMIT_ENABLED", true),
			RedisAddr:      getenv("RATE_LIMIT_REDIS_ADDR", "localhost:6379"),
			RedisPassword:  strings.TrimSpace(getenv("RATE_LIMIT_REDIS_PASSWORD", "")),
			RedisDB:        getenvInt("RATE_LIMIT_REDIS_DB", 0),
			StoreTimeoutMs: getenvInt("RATE_LIMIT_STORE_TIMEOUT_MS", 250),
		},
		Billing: BillingConfig{
			Mode:           normalizeBillingMode(getenv("BILLING_MODE", BillingModeInternal)),
			FiscalEndpoint: strings.TrimSpace(getenv("BILLING_FISCAL_ENDPOINT", "")),
			FiscalAPIKey:   strings.TrimSpace(getenv("BILLING_FISCAL_API_KEY", "")),
			PDFOutputDir:   getenv("BILLING_PDF_DIR", "./documents"),
			PDFBaseURL:     getenv("BILLING_PDF_BASE_URL", "/documents"),
		},
	}

	return cfg
}

func normalizeBillingMode(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case BillingModeFiscal:
		return BillingModeFiscal
	default:
		return BillingModeInternal
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
