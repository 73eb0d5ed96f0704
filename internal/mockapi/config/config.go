package config

import (
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Port           string
	LogLevel       string
	SQLitePath     string
	MQTTBrokerURL  string
	MQTTClientID   string
	TopicPrefix    string
	IngestRetained bool
	Postgres       DBConfig
}

type DBConfig struct {
	User     string
	Password string
	DBName   string
	Host     string
	Port     string
	SSLMode  string
}

// UsePostgres reports whether enough settings are present to use postgres
// instead of the sqlite store.
func (c *Config) UsePostgres() bool {
	return c.Postgres.Host != "" && c.Postgres.User != "" && c.Postgres.DBName != ""
}

// BrokerURL is the MQTT broker in paho form, turning the mqtt:// scheme used
// in compose files into tcp://. Empty when ingest is disabled.
func (c *Config) BrokerURL() string {
	if c.MQTTBrokerURL == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(c.MQTTBrokerURL, "mqtt://"); ok {
		return "tcp://" + rest
	}
	if rest, ok := strings.CutPrefix(c.MQTTBrokerURL, "mqtts://"); ok {
		return "ssl://" + rest
	}
	return c.MQTTBrokerURL
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("MOCK_LOCATION_API_PORT", "3000"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SQLitePath:     getEnv("MOCK_LOCATION_API_SQLITE", "file:locations.db?cache=shared"),
		MQTTBrokerURL:  strings.TrimSpace(os.Getenv("MQTT_BROKER_URL")),
		MQTTClientID:   getEnv("MOCK_LOCATION_API_MQTT_CLIENT_ID", "mock-location-api"),
		TopicPrefix:    getEnv("MOCK_LOCATION_API_TOPIC_PREFIX", "location/"),
		IngestRetained: parseBool(getEnv("MOCK_LOCATION_API_INGEST_RETAINED", "false")),
		Postgres: DBConfig{
			User:     strings.TrimSpace(os.Getenv("POSTGRES_USER")),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			DBName:   strings.TrimSpace(os.Getenv("POSTGRES_DB")),
			Host:     strings.TrimSpace(os.Getenv("POSTGRES_HOST")),
			Port:     getEnv("POSTGRES_PORT", "5432"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
	}

	slog.Info("mock-location-api config loaded", "port", cfg.Port, "postgres", cfg.UsePostgres(), "mqtt", cfg.MQTTBrokerURL)
	return cfg
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func parseBool(val string) bool {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
