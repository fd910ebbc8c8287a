package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Providers ProvidersConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	Logging   LoggingConfig
	Notify    NotifyConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// ProvidersConfig holds the endpoints and timeouts of the external data providers.
type ProvidersConfig struct {
	MoexBaseURL      string
	CorpbondsBaseURL string
	CBRURL           string
	// HTTPTimeout bounds single-document requests (bond pages, ISS detail, CBR).
	HTTPTimeout time.Duration
	// ListingTimeout bounds paginated full-market ISS listings.
	ListingTimeout time.Duration
	// ListingRPS limits ISS listing page requests per second.
	ListingRPS float64
}

// CacheConfig holds the in-process cache sizes and lifetimes.
type CacheConfig struct {
	SearchTTL  time.Duration
	SearchSize int
	FxTTL      time.Duration
}

// SchedulerConfig holds the background refresh settings.
type SchedulerConfig struct {
	// RefreshSchedule is a standard 5-field cron spec. Empty disables the scheduler.
	RefreshSchedule    string
	RefreshConcurrency int
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NotifyConfig holds the error notification sink settings.
type NotifyConfig struct {
	WebhookURL  string
	ServiceName string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	httpTimeout, err := getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	listingTimeout, err := getEnvDuration("LISTING_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}
	searchTTL, err := getEnvDuration("SEARCH_CACHE_TTL", 600*time.Second)
	if err != nil {
		return nil, err
	}
	fxTTL, err := getEnvDuration("FX_CACHE_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	searchSize, err := getEnvInt("SEARCH_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	concurrency, err := getEnvInt("REFRESH_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	listingRPS, err := getEnvFloat("MOEX_LISTING_RPS", 5)
	if err != nil {
		return nil, err
	}
	maxSize, err := getEnvInt("LOG_MAX_SIZE_MB", 50)
	if err != nil {
		return nil, err
	}
	maxBackups, err := getEnvInt("LOG_MAX_BACKUPS", 5)
	if err != nil {
		return nil, err
	}
	maxAge, err := getEnvInt("LOG_MAX_AGE_DAYS", 30)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8000"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/bonds.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost")),
		},
		Providers: ProvidersConfig{
			MoexBaseURL:      getEnv("MOEX_BASE_URL", "https://iss.moex.com/iss"),
			CorpbondsBaseURL: getEnv("CORPBONDS_BASE_URL", "https://corpbonds.ru"),
			CBRURL:           getEnv("CBR_URL", "https://www.cbr.ru/scripts/XML_daily.asp"),
			HTTPTimeout:      httpTimeout,
			ListingTimeout:   listingTimeout,
			ListingRPS:       listingRPS,
		},
		Cache: CacheConfig{
			SearchTTL:  searchTTL,
			SearchSize: searchSize,
			FxTTL:      fxTTL,
		},
		Scheduler: SchedulerConfig{
			RefreshSchedule:    getEnv("REFRESH_SCHEDULE", "0 7 * * 1-5"),
			RefreshConcurrency: concurrency,
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  maxSize,
			MaxBackups: maxBackups,
			MaxAgeDays: maxAge,
		},
		Notify: NotifyConfig{
			WebhookURL:  getEnv("NOTIFY_WEBHOOK_URL", ""),
			ServiceName: getEnv("SERVICE_NAME", "backend"),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

// getEnvDuration accepts Go duration strings ("90s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
