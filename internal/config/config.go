// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
// DatabaseURL, KafkaBrokers, and RedisAddr are each optional: a missing
// value degrades the stages that need it instead of failing startup.
type Config struct {
	DatabaseURL string

	KafkaBrokers     []string
	AlertSourceTopic string
	AlertGroupID     string
	AlertTopicPrefix string
	SensorTopics     []string
	SensorGroupID    string

	RedisAddr     string
	RedisPassword string

	DispatchInterval time.Duration
	DispatchTTL      time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	dispatchInterval, err := parseDuration("DISPATCH_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	dispatchTTL, err := parseDuration("DISPATCH_TTL", "6h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		AlertSourceTopic: envOrDefault("ALERT_SOURCE_TOPIC", "cap-alerts-raw"),
		AlertGroupID:     envOrDefault("ALERT_GROUP_ID", "cap-alert-pipeline"),
		AlertTopicPrefix: envOrDefault("ALERT_TOPIC_PREFIX", "alerts"),
		SensorTopics:     splitList(envOrDefault("SENSOR_TOPICS", "rainfall/status")),
		SensorGroupID:    envOrDefault("SENSOR_GROUP_ID", "cap-sensor-listener"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		DispatchInterval: dispatchInterval,
		DispatchTTL:      dispatchTTL,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.AlertTopicPrefix == "" || strings.HasSuffix(cfg.AlertTopicPrefix, "/") {
		return nil, errors.New("ALERT_TOPIC_PREFIX must be non-empty and not end with /")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.AlertSourceTopic == "" {
		return nil, errors.New("ALERT_SOURCE_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// HasStore reports whether a database is configured.
func (c *Config) HasStore() bool { return c.DatabaseURL != "" }

// HasBroker reports whether a Kafka cluster is configured.
func (c *Config) HasBroker() bool { return len(c.KafkaBrokers) > 0 }

// HasRedis reports whether a Redis dedup marker is configured.
func (c *Config) HasRedis() bool { return c.RedisAddr != "" }

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList parses a comma-separated list, trimming whitespace and
// dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
