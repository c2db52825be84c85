package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DATABASE_URL", "KAFKA_BROKERS", "ALERT_SOURCE_TOPIC", "ALERT_GROUP_ID",
		"ALERT_TOPIC_PREFIX", "SENSOR_TOPICS", "SENSOR_GROUP_ID",
		"REDIS_ADDR", "REDIS_PASSWORD", "DISPATCH_INTERVAL", "DISPATCH_TTL",
		"HTTP_ADDR", "LOG_LEVEL", "LOG_FORMAT", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "cap-alerts-raw", cfg.AlertSourceTopic)
	assert.Equal(t, "alerts", cfg.AlertTopicPrefix)
	assert.Equal(t, []string{"rainfall/status"}, cfg.SensorTopics)
	assert.Equal(t, 5*time.Minute, cfg.DispatchInterval)
	assert.Equal(t, 6*time.Hour, cfg.DispatchTTL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.False(t, cfg.HasStore())
	assert.False(t, cfg.HasBroker())
	assert.False(t, cfg.HasRedis())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/alerts")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("SENSOR_TOPICS", "rainfall/status,seismic/status")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DISPATCH_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"rainfall/status", "seismic/status"}, cfg.SensorTopics)
	assert.Equal(t, 30*time.Second, cfg.DispatchInterval)

	assert.True(t, cfg.HasStore())
	assert.True(t, cfg.HasBroker())
	assert.True(t, cfg.HasRedis())
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "never")

	_, err := Load()
	assert.EqualError(t, err, "invalid SHUTDOWN_TIMEOUT")
}

func TestLoad_NegativeDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("DISPATCH_TTL", "-1h")

	_, err := Load()
	assert.EqualError(t, err, "invalid DISPATCH_TTL")
}

func TestLoad_BadTopicPrefix(t *testing.T) {
	clearEnv(t)
	t.Setenv("ALERT_TOPIC_PREFIX", "alerts/")

	_, err := Load()
	assert.Error(t, err)
}
