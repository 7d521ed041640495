package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Draft store backends.
const (
	DraftStoreMemory = "memory"
	DraftStoreRedis  = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	// Workflow timing.
	AutosaveInterval time.Duration
	SaveDelay        time.Duration
	SubmitDelay      time.Duration

	// Draft store configuration.
	DraftStore        string
	RedisURL          string
	DraftKey          string
	DraftTimestampKey string

	// Report ingestion via Kafka; the simulated submitter is used when disabled.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaReportTopic string

	// Mapbox reverse geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	autosaveInterval, err := parseDuration("AUTOSAVE_INTERVAL", "30s", false)
	if err != nil {
		return nil, err
	}
	saveDelay, err := parseDuration("SAVE_DELAY", "1s", true)
	if err != nil {
		return nil, err
	}
	submitDelay, err := parseDuration("SUBMIT_DELAY", "3s", true)
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s", false)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		AllowedOrigins:  splitList(sharedcfg.EnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),

		AutosaveInterval: autosaveInterval,
		SaveDelay:        saveDelay,
		SubmitDelay:      submitDelay,

		DraftStore:        strings.ToLower(sharedcfg.EnvOrDefault("DRAFT_STORE", DraftStoreMemory)),
		RedisURL:          sharedcfg.EnvOrDefault("REDIS_URL", "redis://localhost:6379/0"),
		DraftKey:          sharedcfg.EnvOrDefault("DRAFT_KEY", "hazard-report-draft"),
		DraftTimestampKey: sharedcfg.EnvOrDefault("DRAFT_TIMESTAMP_KEY", "hazard-report-draft-timestamp"),

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "hazard-reports"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	if cfg.DraftStore != DraftStoreMemory && cfg.DraftStore != DraftStoreRedis {
		return nil, fmt.Errorf("DRAFT_STORE must be %q or %q, got %q", DraftStoreMemory, DraftStoreRedis, cfg.DraftStore)
	}
	if cfg.DraftKey == "" || cfg.DraftTimestampKey == "" {
		return nil, errors.New("DRAFT_KEY and DRAFT_TIMESTAMP_KEY must not be empty")
	}
	if cfg.DraftKey == cfg.DraftTimestampKey {
		return nil, errors.New("DRAFT_KEY and DRAFT_TIMESTAMP_KEY must differ")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaReportTopic == "" {
			return nil, errors.New("KAFKA_REPORT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// parseDuration reads a duration variable. Zero is accepted only when allowZero is set;
// negative values are always rejected.
func parseDuration(key, def string, allowZero bool) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
