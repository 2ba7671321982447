package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the consumer binaries. Both binaries
// share one struct; each validates only the variables it cannot run
// without. Defaults are development fallbacks matching the compose setup —
// production deployments supply everything explicitly.
type Config struct {
	Brokers           []string
	RegistrationTopic string
	EventTopic        string
	NotifierGroupID   string
	IndexerGroupID    string

	DatabaseURL string
	RedisURL    string

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
	FromName     string

	WeaviateURL   string
	WeaviateClass string

	// Location fixes the timestamp rendering convention system-wide.
	Location *time.Location

	OpsPort string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	tzName := getEnv("TIME_ZONE", "UTC")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid TIME_ZONE %q: %w", tzName, err)
	}

	return &Config{
		Brokers:           strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		RegistrationTopic: getEnv("REGISTRATION_TOPIC", "event_management.public.event_registrations"),
		EventTopic:        getEnv("EVENT_TOPIC", "postgres.public.events"),
		NotifierGroupID:   getEnv("NOTIFIER_GROUP_ID", "email-service-group"),
		IndexerGroupID:    getEnv("INDEXER_GROUP_ID", "weaviate-connector"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		FromEmail:    getEnv("FROM_EMAIL", ""),
		FromName:     getEnv("FROM_NAME", "Event Management System"),

		WeaviateURL:   getEnv("WEAVIATE_URL", "http://localhost:8080"),
		WeaviateClass: getEnv("WEAVIATE_CLASS", "Event"),

		Location: loc,
		OpsPort:  getEnv("OPS_PORT", "9090"),
	}, nil
}

// ValidateNotifier checks the variables the notification consumer aborts
// without. Missing credentials are a fatal configuration error caught
// before subscribing.
func (c *Config) ValidateNotifier() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SMTPUser == "" {
		return fmt.Errorf("SMTP_USER is required")
	}
	if c.SMTPPassword == "" {
		return fmt.Errorf("SMTP_PASSWORD is required")
	}
	return nil
}

// ValidateIndexer checks the variables the index sync consumer aborts
// without.
func (c *Config) ValidateIndexer() error {
	if c.WeaviateURL == "" {
		return fmt.Errorf("WEAVIATE_URL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
