// Package redis provides a TTL-based notification marker used to
// suppress repeat sensor-alert dispatches.
package redis

import (
	"context"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Marker remembers which (sensor, alert) pairs have already been
// notified, with a TTL so long-lived alerts re-notify eventually.
type Marker struct {
	client *goredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewMarker creates a Marker backed by the given Redis instance.
func NewMarker(addr, password string, ttl time.Duration, logger *slog.Logger) *Marker {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Marker{client: client, ttl: ttl, logger: logger}
}

// Ping verifies connectivity.
func (m *Marker) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// FirstNotification atomically records the pair and reports whether this
// is its first notification within the TTL window. On a Redis error it
// returns true: a duplicate notification beats a silently dropped one.
func (m *Marker) FirstNotification(ctx context.Context, sensorID, alertIdentifier string) bool {
	key := "dispatch:" + sensorID + ":" + alertIdentifier
	first, err := m.client.SetNX(ctx, key, 1, m.ttl).Result()
	if err != nil {
		m.logger.Warn("dispatch marker unavailable, allowing notification",
			"sensor_id", sensorID, "alert", alertIdentifier, "error", err)
		return true
	}
	return first
}

func (m *Marker) Close() error {
	return m.client.Close()
}
