package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/session-cart/internal/invalidation"
	"github.com/fjod/go_cart/session-cart/internal/poller"
	"github.com/fjod/go_cart/session-cart/internal/pricing"
	"github.com/fjod/go_cart/session-cart/internal/repository"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv   string
	LogLevel string
	HTTPPort string

	MongoURI    string
	MongoDBName string
	Mongo       repository.ConnectOptions

	CatalogDBPath  string
	MigrationsPath string

	RedisAddr     string
	RedisPassword string
	CartCacheTTL  time.Duration

	KafkaBrokers      []string
	InvalidationTopic string
	StockTopic        string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	Pricing         pricing.Policy
	CartMaxAttempts int
}

func Load() Config {
	defaults := pricing.DefaultPolicy()

	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		HTTPPort: getEnv("HTTP_PORT", "8080"),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "cartdb"),
		Mongo: repository.ConnectOptions{
			ConnectTimeout:         getEnvDuration("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			ServerSelectionTimeout: getEnvDuration("MONGO_SERVER_SELECTION_TIMEOUT", 5*time.Second),
			MaxPoolSize:            uint64(getEnvPositiveInt("MONGO_MAX_POOL_SIZE", 100)),
			MinPoolSize:            uint64(getEnvPositiveInt("MONGO_MIN_POOL_SIZE", 10)),
		},

		CatalogDBPath:  getEnv("CATALOG_DB_PATH", "./products.db"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/catalog/migrations"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		CartCacheTTL:  getEnvDuration("CART_CACHE_TTL", 15*time.Minute),

		KafkaBrokers:      getEnvList("KAFKA_BROKERS"),
		InvalidationTopic: getEnv("INVALIDATION_TOPIC", invalidation.DefaultTopic),
		StockTopic:        getEnv("STOCK_TOPIC", poller.DefaultTopic),

		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		Pricing: pricing.Policy{
			FreeShippingThreshold: getEnvDecimal("FREE_SHIPPING_THRESHOLD", defaults.FreeShippingThreshold),
			ShippingFee:           getEnvDecimal("SHIPPING_FEE", defaults.ShippingFee),
			TaxRate:               getEnvDecimal("TAX_RATE", defaults.TaxRate),
		},
		CartMaxAttempts: getEnvInt("CART_MAX_ATTEMPTS", 3),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvPositiveInt(key string, def int) int {
	if n := getEnvInt(key, def); n > 0 {
		return n
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getEnvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	v := os.Getenv(key)
	if v == "" {
		return def
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
