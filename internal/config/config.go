package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port      string
	StorePort string
	LogLevel  string
	JWTSecret string

	// storage server
	StoreDriver     string
	DBConn          string
	CleanupSchedule string
	StorageLimitMB  float64
	InitialBudget   int64

	// ledger agent
	StoreURL        string
	PollInterval    time.Duration
	PersistDebounce time.Duration
	GraceWindow     time.Duration
	FetchRetries    int
	FetchRetryDelay time.Duration
	SessionCache    string
	StaffPhone      string
	StaffPassword   string

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
	StaffEmail   string
}

// NewConfig loads configuration from environment variables, after an optional .env file
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		StorePort:       getEnv("STORE_PORT", "8090"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		StoreDriver:     getEnv("STORE_DRIVER", "postgres"),
		DBConn:          getEnv("DB_CONN", "host=localhost port=5436 user=test password=test dbname=ledger sslmode=disable"),
		CleanupSchedule: getEnv("CLEANUP_SCHEDULE", "@every 1h"),
		StoreURL:        getEnv("STORE_URL", "http://localhost:8090"),
		SessionCache:    getEnv("SESSION_CACHE", "session.db"),
		StaffPhone:      getEnv("STAFF_PHONE", "admin"),
		StaffPassword:   getEnv("STAFF_PASSWORD", ""),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getEnv("SMTP_PORT", "587"),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		SenderEmail:     getEnv("SENDER_EMAIL", ""),
		StaffEmail:      getEnv("STAFF_EMAIL", ""),
	}

	var err error
	if cfg.PollInterval, err = getDuration("POLL_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.PersistDebounce, err = getDuration("PERSIST_DEBOUNCE", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.GraceWindow, err = getDuration("GRACE_WINDOW", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchRetryDelay, err = getDuration("FETCH_RETRY_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchRetries, err = getInt("FETCH_RETRIES", 3); err != nil {
		return nil, err
	}
	budget, err := getInt("INITIAL_BUDGET", 30_000_000)
	if err != nil {
		return nil, err
	}
	cfg.InitialBudget = int64(budget)
	limit, err := getInt("STORAGE_LIMIT_MB", 45)
	if err != nil {
		return nil, err
	}
	cfg.StorageLimitMB = float64(limit)

	if cfg.StoreDriver != "postgres" && cfg.StoreDriver != "memory" {
		return nil, fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", cfg.StoreDriver)
	}
	if cfg.StoreDriver == "postgres" && cfg.DBConn == "" {
		return nil, fmt.Errorf("DB_CONN is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	if cfg.FetchRetries < 1 {
		return nil, fmt.Errorf("FETCH_RETRIES must be at least 1")
	}

	return cfg, nil
}

// SMTPEnabled reports whether staff alert emails can be sent
func (c *Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SenderEmail != "" && c.StaffEmail != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultVal int) (int, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
