package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	NotifierLog      = "log"
	NotifierTelegram = "telegram"
	NotifierKafka    = "kafka"
)

type Config struct {
	DatabaseURI string

	Notifier      string
	TelegramToken string
	KafkaBrokers  []string
	KafkaTopic    string

	// RedisAddr is optional; when set, dispatch ticks are coordinated across replicas.
	RedisAddr string

	PollInterval   time.Duration
	NotifyTimeout  time.Duration
	MaxRangeSpan   time.Duration
	MaxOccurrences int

	LogLevel string
	LogDir   string
}

func Load() (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	pollInterval, err := getEnvDuration("REMINDER_POLL_INTERVAL", 60*time.Second)
	if err != nil {
		return nil, err
	}
	notifyTimeout, err := getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	maxRangeDays, err := getEnvInt("MAX_RANGE_DAYS", 366)
	if err != nil {
		return nil, err
	}
	maxOccurrences, err := getEnvInt("MAX_OCCURRENCES", 5000)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURI:    os.Getenv("DATABASE_URI"),
		Notifier:       strings.ToLower(getEnvOrDefault("NOTIFIER", NotifierLog)),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     getEnvOrDefault("KAFKA_TOPIC", "calendar.reminders"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		PollInterval:   pollInterval,
		NotifyTimeout:  notifyTimeout,
		MaxRangeSpan:   time.Duration(maxRangeDays) * 24 * time.Hour,
		MaxOccurrences: maxOccurrences,
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		LogDir:         os.Getenv("LOG_DIR"),
	}, nil
}

// Validate checks the settings the selected notifier depends on.
func (c *Config) Validate() error {
	if c.DatabaseURI == "" {
		return errors.New("DATABASE_URI is required")
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("REMINDER_POLL_INTERVAL must be at least 1s, got %s", c.PollInterval)
	}
	if c.NotifyTimeout <= 0 {
		return errors.New("NOTIFY_TIMEOUT must be positive")
	}
	if c.MaxRangeSpan <= 0 {
		return errors.New("MAX_RANGE_DAYS must be positive")
	}
	if c.MaxOccurrences <= 0 {
		return errors.New("MAX_OCCURRENCES must be positive")
	}

	switch c.Notifier {
	case NotifierLog:
	case NotifierTelegram:
		if c.TelegramToken == "" {
			return errors.New("TELEGRAM_TOKEN is required when NOTIFIER=telegram")
		}
	case NotifierKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when NOTIFIER=kafka")
		}
	default:
		return fmt.Errorf("unknown NOTIFIER %q", c.Notifier)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
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

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
