// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fare-crawler-service/internal/domain/entity"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreMongo    = "mongo"
)

// Page fetchers
const (
	FetcherChrome = "chrome"
	FetcherHTTP   = "http"
)

const defaultSearchURL = "https://flights.ctrip.com/online/list/oneway-{origin}-{destination}?depdate={date}&cabin=y_s_c_f&adult=1&child=0&infant=0"

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion       string
	MetricsNamespace string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Storage
	StoreBackend      string
	PostgresDSN       string
	MySQLHost         string
	MySQLPort         int
	MySQLUser         string
	MySQLPassword     string
	MySQLDatabase     string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBAutoMigrate     bool

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Fetcher
	Fetcher          string
	SearchURL        string
	FetchTimeout     time.Duration
	SettleDelay      time.Duration
	ScrollCount      int
	ScrollInterval   time.Duration
	Headless         bool
	UserAgent        string
	FetchMinInterval time.Duration

	// Selectors
	Selectors entity.ListingSelectors

	// Crawl
	RoutesFile     string
	TargetCarriers []string
	DateWindowDays int

	// Persistence retry
	PersistMaxAttempts int
	PersistMultiplier  time.Duration
	PersistBackoffMin  time.Duration
	PersistBackoffMax  time.Duration

	// Scheduler
	WindowStartHour int
	WindowMinutes   int
	MaxTaskDuration time.Duration
	PollInterval    time.Duration
	ErrorCooldown   time.Duration

	// Redis run lock
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockKey       string
	LockTTL       time.Duration

	// Kafka publisher
	KafkaBrokers []string
	KafkaTopic   string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	selectors := entity.DefaultListingSelectors()

	config := &Config{
		AppVersion:       getEnv("APP_VERSION", "1.0.0"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "fare_crawler"),
		Port:             getEnv("PORT", "8080"),
		ReadTimeout:      getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:     getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),

		StoreBackend:      strings.ToLower(getEnv("STORE_BACKEND", StorePostgres)),
		PostgresDSN:       getEnv("POSTGRES_DSN", "host=localhost user=postgres password=postgres dbname=flights port=5432 sslmode=disable"),
		MySQLHost:         getEnv("MYSQL_HOST", "localhost"),
		MySQLPort:         getEnvAsInt("MYSQL_PORT", 3306),
		MySQLUser:         getEnv("MYSQL_USER", "root"),
		MySQLPassword:     getEnv("MYSQL_PASSWORD", ""),
		MySQLDatabase:     getEnv("MYSQL_DATABASE", "flights"),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 5),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		DBConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		DBAutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", false),

		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "flights"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		Fetcher:          strings.ToLower(getEnv("FETCHER", FetcherChrome)),
		SearchURL:        getEnv("SEARCH_URL_TEMPLATE", defaultSearchURL),
		FetchTimeout:     getEnvAsDuration("FETCH_TIMEOUT", 60*time.Second),
		SettleDelay:      getEnvAsDuration("FETCH_SETTLE_DELAY", 5*time.Second),
		ScrollCount:      getEnvAsInt("FETCH_SCROLL_COUNT", 4),
		ScrollInterval:   getEnvAsDuration("FETCH_SCROLL_INTERVAL", 3*time.Second),
		Headless:         getEnvAsBool("CHROME_HEADLESS", true),
		UserAgent:        getEnv("FETCH_USER_AGENT", ""),
		FetchMinInterval: getEnvAsDuration("FETCH_MIN_INTERVAL", 0),

		Selectors: entity.ListingSelectors{
			Listing:         getEnv("SELECTOR_LISTING", selectors.Listing),
			LegMarker:       getEnv("SELECTOR_LEG_MARKER", selectors.LegMarker),
			AirlineName:     getEnv("SELECTOR_AIRLINE_NAME", selectors.AirlineName),
			AirlineFallback: getEnv("SELECTOR_AIRLINE_FALLBACK", selectors.AirlineFallback),
			DepartBox:       getEnv("SELECTOR_DEPART_BOX", selectors.DepartBox),
			ArriveBox:       getEnv("SELECTOR_ARRIVE_BOX", selectors.ArriveBox),
			Airport:         getEnv("SELECTOR_AIRPORT", selectors.Airport),
			Time:            getEnv("SELECTOR_TIME", selectors.Time),
			TransferInfo:    getEnv("SELECTOR_TRANSFER_INFO", selectors.TransferInfo),
			Price:           getEnv("SELECTOR_PRICE", selectors.Price),
		},

		RoutesFile:     getEnv("ROUTES_FILE", "od.csv"),
		TargetCarriers: getEnvAsList("TARGET_CARRIERS", entity.CarrierCodes(entity.DefaultTargetCarriers)),
		DateWindowDays: getEnvAsInt("DATE_WINDOW_DAYS", 6),

		PersistMaxAttempts: getEnvAsInt("PERSIST_MAX_ATTEMPTS", 3),
		PersistMultiplier:  getEnvAsDuration("PERSIST_BACKOFF_MULTIPLIER", time.Second),
		PersistBackoffMin:  getEnvAsDuration("PERSIST_BACKOFF_MIN", 4*time.Second),
		PersistBackoffMax:  getEnvAsDuration("PERSIST_BACKOFF_MAX", 10*time.Second),

		WindowStartHour: getEnvAsInt("SCHEDULE_WINDOW_HOUR", 0),
		WindowMinutes:   getEnvAsInt("SCHEDULE_WINDOW_MINUTES", 40),
		MaxTaskDuration: getEnvAsDuration("MAX_TASK_DURATION", 5*time.Minute),
		PollInterval:    getEnvAsDuration("POLL_INTERVAL", 60*time.Second),
		ErrorCooldown:   getEnvAsDuration("ERROR_COOLDOWN", 60*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		LockKey:       getEnv("RUN_LOCK_KEY", "fare-crawler:run-lock"),
		LockTTL:       getEnvAsDuration("RUN_LOCK_TTL", 6*time.Minute),

		KafkaBrokers: getEnvAsList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "flights.raw"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the values that would make the service misbehave
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StorePostgres, StoreMySQL, StoreMongo:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.Fetcher {
	case FetcherChrome, FetcherHTTP:
	default:
		return fmt.Errorf("unknown FETCHER %q", c.Fetcher)
	}

	positive := map[string]time.Duration{
		"MAX_TASK_DURATION":   c.MaxTaskDuration,
		"POLL_INTERVAL":       c.PollInterval,
		"FETCH_TIMEOUT":       c.FetchTimeout,
		"PERSIST_BACKOFF_MAX": c.PersistBackoffMax,
	}
	for key, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, value)
		}
	}

	if c.PersistBackoffMin > c.PersistBackoffMax {
		return fmt.Errorf("PERSIST_BACKOFF_MIN (%s) exceeds PERSIST_BACKOFF_MAX (%s)", c.PersistBackoffMin, c.PersistBackoffMax)
	}
	if c.PersistMaxAttempts < 1 {
		return fmt.Errorf("PERSIST_MAX_ATTEMPTS must be at least 1, got %d", c.PersistMaxAttempts)
	}
	if c.WindowStartHour < 0 || c.WindowStartHour > 23 {
		return fmt.Errorf("SCHEDULE_WINDOW_HOUR must be within 0-23, got %d", c.WindowStartHour)
	}
	if c.WindowMinutes < 0 || c.WindowMinutes > 59 {
		return fmt.Errorf("SCHEDULE_WINDOW_MINUTES must be within 0-59, got %d", c.WindowMinutes)
	}
	if c.DateWindowDays < 1 {
		return fmt.Errorf("DATE_WINDOW_DAYS must be at least 1, got %d", c.DateWindowDays)
	}
	if len(c.TargetCarriers) == 0 {
		return fmt.Errorf("TARGET_CARRIERS must not be empty")
	}
	if c.Fetcher == FetcherChrome && c.ScrollCount < 0 {
		return fmt.Errorf("FETCH_SCROLL_COUNT must not be negative, got %d", c.ScrollCount)
	}

	return nil
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s", "5m") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
