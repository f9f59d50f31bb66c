package config

import (
	"fmt"     // DSN formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBDriver   string // Database driver: mysql or postgres
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	DBSSLMode  string // Postgres sslmode
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address, empty disables the order cache
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment
	LogLevel   string // Logrus level name

	CORSOrigins    []string // Allowed browser origins, empty allows all
	TrustedProxies []string // Proxies whose forwarding headers are trusted

	OrderHoldWindow time.Duration // How long a pending order keeps its stock
	SweepInterval   time.Duration // Reclaim sweeper period
	SweepBatchSize  int           // Orders reclaimed per sweep at most
	OrderCacheTTL   time.Duration // TTL of cached order summaries
	WalletCurrency  string        // Currency assigned to new wallets

	KafkaBrokers        []string // Kafka bootstrap brokers, empty disables the publisher
	KafkaOrderPaidTopic string   // Topic receiving order paid events
	EventBusBuffer      int      // In-process order paid queue size

	PubNubPublishKey   string // PubNub publish key, empty falls back to log broadcasting
	PubNubSubscribeKey string // PubNub subscribe key
	PubNubSecretKey    string // PubNub secret key
	PubNubUserID       string // PubNub user id of this service

	OtelEndpoint   string // OTLP/HTTP collector host:port, empty disables tracing
	OtelAuthHeader string // Authorization header sent to the collector
	ServiceName    string // Reported service name

	PaymentWebhookSecret string // HMAC secret of payment gateway notifications, empty disables the webhook
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),      // Application port
		DBDriver:   getEnv("DB_DRIVER", "mysql"),    // Database driver
		DBUser:     os.Getenv("DB_USER"),            // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),        // Database password
		DBHost:     getEnv("DB_HOST", "localhost"),  // Database host
		DBPort:     os.Getenv("DB_PORT"),            // Database port
		DBName:     os.Getenv("DB_NAME"),            // Database name
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"), // Postgres sslmode
		JWTSecret:  os.Getenv("JWT_SECRET"),         // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),         // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),         // Redis password
		RedisDB:    getEnvAsInt("REDIS_DB", 0),      // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true",  // Is production environment
		LogLevel:   getEnv("LOG_LEVEL", "info"),     // Log level

		CORSOrigins:    getEnvAsList("CORS_ORIGINS"),
		TrustedProxies: getEnvAsListOr("TRUSTED_PROXIES", []string{"127.0.0.1"}),

		OrderHoldWindow: getEnvAsDuration("ORDER_HOLD_WINDOW", 10*time.Minute),
		SweepInterval:   getEnvAsDuration("SWEEP_INTERVAL", time.Minute),
		SweepBatchSize:  getEnvAsInt("SWEEP_BATCH_SIZE", 100),
		OrderCacheTTL:   getEnvAsDuration("ORDER_CACHE_TTL", 10*time.Minute),
		WalletCurrency:  getEnv("WALLET_CURRENCY", "VND"),

		KafkaBrokers:        getEnvAsList("KAFKA_BROKERS"),
		KafkaOrderPaidTopic: getEnv("KAFKA_ORDER_PAID_TOPIC", "order-paid"),
		EventBusBuffer:      getEnvAsInt("EVENT_BUS_BUFFER", 256),

		PubNubPublishKey:   os.Getenv("PUBNUB_PUBLISH_KEY"),
		PubNubSubscribeKey: os.Getenv("PUBNUB_SUBSCRIBE_KEY"),
		PubNubSecretKey:    os.Getenv("PUBNUB_SECRET_KEY"),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "ticketflow-server"),

		OtelEndpoint:   os.Getenv("OTEL_ENDPOINT"),
		OtelAuthHeader: os.Getenv("OTEL_AUTH_HEADER"),
		ServiceName:    getEnv("SERVICE_NAME", "ticketflow"),

		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
	}
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
	}
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true&loc=UTC"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsListOr(key string, defaultValue []string) []string {
	if list := getEnvAsList(key); len(list) > 0 {
		return list
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
