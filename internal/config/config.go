// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Fleet store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreMongo  = "mongo"
	StoreSQLite = "sqlite"
)

// Config holds every setting the server needs.
type Config struct {
	Port string

	FleetStore     string
	FleetStorePath string
	MongoURI       string
	MongoDatabase  string
	SQLitePath     string

	CatalogSource   string
	EmissionFactors string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	AITimeout     time.Duration

	MQTTBroker string
	MQTTTopic  string

	RateLimitRequests int
	RateLimitWindow   int
	TrustProxyHeaders bool

	LogLevel  string
	LogFormat string
}

// Load reads a .env file when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to read .env file")
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		FleetStore:      strings.ToLower(getenv("FLEET_STORE", StoreFile)),
		FleetStorePath:  getenv("FLEET_STORE_PATH", "fleet.json"),
		MongoURI:        getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getenv("MONGO_DB", "fleet_carbon"),
		SQLitePath:      getenv("SQLITE_PATH", "fleet.db"),
		CatalogSource:   getenv("CATALOG_SOURCE", "vehicles.json"),
		EmissionFactors: os.Getenv("EMISSION_FACTORS"),
		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:     getenv("OPENAI_MODEL", "gpt-4o-mini"),
		AITimeout:       30 * time.Second,
		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTTopic:       getenv("MQTT_TOPIC", "fleet/vehicles/added"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "text"),
	}

	if v := os.Getenv("AI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid AI_TIMEOUT %q: %w", v, err)
		}
		cfg.AITimeout = d
	}

	var err error
	if cfg.RateLimitRequests, err = getint("SUMMARY_RATE_LIMIT", 10); err != nil {
		return cfg, err
	}
	if cfg.RateLimitWindow, err = getint("SUMMARY_RATE_WINDOW_SECONDS", 60); err != nil {
		return cfg, err
	}

	if v := os.Getenv("TRUST_PROXY_HEADERS"); v != "" {
		if cfg.TrustProxyHeaders, err = strconv.ParseBool(v); err != nil {
			return cfg, fmt.Errorf("invalid TRUST_PROXY_HEADERS %q: %w", v, err)
		}
	}

	switch cfg.FleetStore {
	case StoreMemory, StoreFile, StoreMongo, StoreSQLite:
	default:
		return cfg, fmt.Errorf("unknown FLEET_STORE %q", cfg.FleetStore)
	}
	return cfg, nil
}

// SetupLogging applies the configured level and format to the standard logger.
func (c Config) SetupLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, v)
	}
	return n, nil
}
