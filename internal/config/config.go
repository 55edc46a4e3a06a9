package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Reference data.
	DataDir   string
	DataWatch bool

	// Decision thresholds.
	MatchThreshold     float64
	MaxWeatherRiskPct  float64
	MinAirAdvantageMin float64

	// Kafka audit sink configuration.
	KafkaBrokers    []string
	KafkaAuditTopic string
	KafkaEnabled    bool

	// Local SQLite audit sink; empty path disables it.
	SQLitePath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	matchThreshold, err := parseFloat("MATCH_THRESHOLD", 0.3)
	if err != nil {
		return nil, err
	}

	maxWeather, err := parseFloat("MAX_WEATHER_RISK_PCT", 35)
	if err != nil {
		return nil, err
	}

	minAdvantage, err := parseFloat("MIN_AIR_ADVANTAGE_MIN", 10)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_AUDIT_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:   envOrDefault("DATA_DIR", "data"),
		DataWatch: os.Getenv("DATA_WATCH") == "true",

		MatchThreshold:     matchThreshold,
		MaxWeatherRiskPct:  maxWeather,
		MinAirAdvantageMin: minAdvantage,

		KafkaBrokers:    brokers,
		KafkaAuditTopic: envOrDefault("KAFKA_AUDIT_TOPIC", "dispatch-decisions"),
		KafkaEnabled:    kafkaEnabled,

		SQLitePath: os.Getenv("AUDIT_SQLITE_PATH"),
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.MatchThreshold <= 0 || cfg.MatchThreshold >= 1 {
		return nil, errors.New("MATCH_THRESHOLD must be between 0 and 1 exclusive")
	}
	if cfg.MinAirAdvantageMin < 0 {
		return nil, errors.New("MIN_AIR_ADVANTAGE_MIN must not be negative")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_AUDIT_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaAuditTopic == "" {
		return nil, errors.New("KAFKA_AUDIT_TOPIC is required when the kafka audit sink is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}
