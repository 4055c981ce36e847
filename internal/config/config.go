package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	Telemetry TelemetryConfig

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
	DBMigrateOnStart  bool

	Stripe  StripeConfig
	Webhook WebhookConfig
	Redis   RedisConfig

	SnowflakeNode int64
}

// TelemetryConfig drives logging and OTLP export. Export stays off unless an
// endpoint is set or OTEL_ENABLED says otherwise.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OTLPEndpoint  string
	OTLPProtocol  string
	OTelEnabled   bool
	SamplingRatio float64
}

type StripeConfig struct {
	APIKey               string
	WebhookSigningSecret string
}

type WebhookConfig struct {
	Tolerance    time.Duration
	MaxBodyBytes int64
	DedupeTTL    time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

const (
	DBTypePostgres = "postgres"
	DBTypeMySQL    = "mysql"
	DBTypeSQLite   = "sqlite"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "stripesync"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		Telemetry:    loadTelemetry(),

		DBType:            strings.ToLower(getenv("DATABASE_TYPE", DBTypePostgres)),
		DBHost:            strings.TrimSpace(getenv("DATABASE_HOST", "")),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            strings.TrimSpace(getenv("DATABASE_NAME", "")),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 5)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 20)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		DBMigrateOnStart:  getenvBool("DATABASE_MIGRATE_ON_START", true),

		Stripe: StripeConfig{
			APIKey:               strings.TrimSpace(getenv("STRIPE_API_KEY", "")),
			WebhookSigningSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SIGNING_SECRET", "")),
		},
		Webhook: WebhookConfig{
			Tolerance:    getenvDuration("WEBHOOK_TOLERANCE", 5*time.Minute),
			MaxBodyBytes: getenvInt64("WEBHOOK_MAX_BODY_BYTES", 65536),
			DedupeTTL:    getenvDuration("WEBHOOK_DEDUPE_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		SnowflakeNode: getenvInt64("SNOWFLAKE_NODE", 1),
	}

	return cfg
}

func loadTelemetry() TelemetryConfig {
	endpoint := strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", os.Getenv("OTLP_ENDPOINT")))
	protocol := getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))

	ratio := getenvFloat("OTEL_SAMPLING_RATIO", 1)
	if ratio < 0 || ratio > 1 {
		ratio = 1
	}

	return TelemetryConfig{
		LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		OTLPEndpoint:  endpoint,
		OTLPProtocol:  strings.ToLower(strings.TrimSpace(protocol)),
		OTelEnabled:   getenvBool("OTEL_ENABLED", endpoint != ""),
		SamplingRatio: ratio,
	}
}

// StoreConfigured reports whether enough connection settings are present
// to open the projection store.
func (c Config) StoreConfigured() bool {
	switch c.DBType {
	case DBTypeSQLite:
		return c.DBName != ""
	case DBTypePostgres, DBTypeMySQL:
		return c.DBHost != "" && c.DBName != ""
	default:
		return false
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

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
