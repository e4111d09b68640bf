package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken      string
	TelegramAPIURL     string // Bot API prefix the token is appended to
	BotCommandsEnabled bool
	DatabaseURL        string
	DBAutoMigrate      bool
	LogLevel           string
	Environment        string

	CronSpecReminderCheck string // Evaluation trigger, once per minute by default
	RunTimeout            time.Duration

	SendTimeout       time.Duration // Single HTTP attempt
	SendMaxRetries    int
	SendRatePerSecond float64
	DeliveryDeadline  time.Duration // One delivery including retries
	DispatchWorkers   int
	DispatchQueueSize int

	RedisAddr     string // Empty disables the duplicate guard
	RedisPassword string
	RedisDB       int
	DedupTTL      time.Duration

	MetricsAddr string // Empty disables the metrics endpoint
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.TelegramAPIURL = envOr("TELEGRAM_API_URL", "https://api.telegram.org/bot")

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecReminderCheck = envOr("CRON_SPEC_REMINDER_CHECK", "* * * * *")

	if cfg.BotCommandsEnabled, err = boolEnv("BOT_COMMANDS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate, err = boolEnv("DB_AUTO_MIGRATE", false); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = durationEnv("RUN_TIMEOUT", 50*time.Second); err != nil {
		return nil, err
	}
	if cfg.SendTimeout, err = durationEnv("SEND_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SendMaxRetries, err = intEnv("SEND_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.SendMaxRetries < 0 {
		return nil, fmt.Errorf("invalid SEND_MAX_RETRIES: must not be negative")
	}
	if cfg.SendRatePerSecond, err = floatEnv("SEND_RATE_PER_SECOND", 25); err != nil {
		return nil, err
	}
	if cfg.DeliveryDeadline, err = durationEnv("DELIVERY_DEADLINE", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DispatchWorkers, err = intEnv("DISPATCH_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.DispatchQueueSize, err = intEnv("DISPATCH_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.DedupTTL, err = durationEnv("DEDUP_TTL", 48*time.Hour); err != nil {
		return nil, err
	}

	cfg.MetricsAddr = envOr("METRICS_ADDR", ":9090")

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
