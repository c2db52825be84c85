package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/cap-alert-pipeline/internal/domain"
	"github.com/couchcryptid/cap-alert-pipeline/internal/observability"
)

// SensorStore appends one telemetry reading.
type SensorStore interface {
	InsertSensorReading(ctx context.Context, reading domain.SensorReading) error
}

// SensorRecorder turns raw sensor messages into stored readings.
type SensorRecorder struct {
	store   SensorStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSensorRecorder creates a SensorRecorder.
func NewSensorRecorder(sensorStore SensorStore, logger *slog.Logger, metrics *observability.Metrics) *SensorRecorder {
	return &SensorRecorder{store: sensorStore, logger: logger, metrics: metrics}
}

// Handle parses and persists one sensor message. Messages without a
// usable identifier or valid JSON are logged and dropped, not returned
// as errors: a malformed reading must never stall the topic. Store
// failures are returned so the caller can decide whether to retry.
func (r *SensorRecorder) Handle(ctx context.Context, topic string, payload []byte) error {
	r.metrics.SensorMessages.Inc()

	reading, err := domain.ParseSensorReading(topic, payload)
	if err != nil {
		r.metrics.SensorRejected.Inc()
		r.logger.Warn("sensor message rejected", "topic", topic, "error", err)
		return nil
	}

	if err := r.store.InsertSensorReading(ctx, reading); err != nil {
		r.metrics.SensorStoreErrors.Inc()
		r.logger.Error("store sensor reading failed",
			"sensor_id", reading.SensorID, "topic", reading.Topic, "error", err)
		return err
	}

	r.logger.Debug("sensor reading stored",
		"sensor_id", reading.SensorID,
		"topic", reading.Topic,
		"has_location", reading.HasLocation(),
	)
	return nil
}
