// Package dispatch correlates stored alerts with the latest sensor
// locations and notifies matched sensors on their own topics.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/cap-alert-pipeline/internal/domain"
	"github.com/couchcryptid/cap-alert-pipeline/internal/observability"
	"github.com/couchcryptid/cap-alert-pipeline/internal/store"
)

// topicCategories maps a sensor topic type to the alert categories that
// concern it. A sensor only hears about hazards its instrument can
// corroborate; topic "all" subscribes to everything.
var topicCategories = map[string][]string{
	"rainfall":    {"rainfall_floods", "cloud_burst"},
	"temperature": {"frost_cold_wave", "heat_wave"},
	"wind":        {"weather_cyclone", "thunderstorm_lightning"},
	"seismic":     {"earthquake", "tsunami"},
	"soil":        {"landslide", "avalanche"},
	"humidity":    {"drought"},
	"fire":        {"pre_fire"},
	"agriculture": {"pest_attack"},
}

// SensorSource returns the latest reading per sensor.
type SensorSource interface {
	LatestSensorReadings(ctx context.Context, topic string) ([]domain.SensorReading, error)
}

// AlertSource returns stored alerts filtered by category slug.
type AlertSource interface {
	AlertsByCategories(ctx context.Context, categories []string) ([]store.StoredAlert, error)
}

// Publisher sends one message to a named topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// NotificationMarker suppresses repeat notifications for a pair.
type NotificationMarker interface {
	FirstNotification(ctx context.Context, sensorID, alertIdentifier string) bool
}

// Report summarises one dispatch cycle.
type Report struct {
	Sensors    int
	Matches    int
	Published  int
	Suppressed int
	Failed     int
}

// Dispatcher runs periodic sensor-alert correlation. marker may be nil,
// in which case every match notifies.
type Dispatcher struct {
	sensors   SensorSource
	alerts    AlertSource
	publisher Publisher
	marker    NotificationMarker
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Dispatcher.
func New(sensors SensorSource, alerts AlertSource, publisher Publisher, marker NotificationMarker,
	interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		sensors:   sensors,
		alerts:    alerts,
		publisher: publisher,
		marker:    marker,
		interval:  interval,
		clock:     clockwork.NewRealClock(),
		logger:    logger,
		metrics:   metrics,
	}
}

// Run dispatches once per interval until the context is cancelled. A
// failed cycle is logged and the next tick tries again.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", "interval", d.interval)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping", "reason", ctx.Err())
			return nil
		case <-d.clock.After(d.interval):
		}

		logger := d.logger.With("cycle_id", uuid.NewString())
		report, err := d.DispatchOnce(ctx)
		if err != nil {
			logger.Error("dispatch cycle failed", "error", err)
			continue
		}
		logger.Info("dispatch cycle complete",
			"sensors", report.Sensors,
			"matches", report.Matches,
			"published", report.Published,
			"suppressed", report.Suppressed,
			"failed", report.Failed,
		)
	}
}

// DispatchOnce correlates every located sensor with the alerts relevant
// to its topic and publishes a match notification to <topic>/<sensor_id>
// for each alert polygon containing the sensor.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (Report, error) {
	readings, err := d.sensors.LatestSensorReadings(ctx, "")
	if err != nil {
		return Report{}, fmt.Errorf("load sensor readings: %w", err)
	}

	var report Report
	report.Sensors = len(readings)
	alertCache := make(map[string][]store.StoredAlert)

	for _, reading := range readings {
		if !reading.HasLocation() {
			continue
		}

		alerts, err := d.alertsForTopic(ctx, reading.Topic, alertCache)
		if err != nil {
			return report, err
		}

		point := domain.LonLat{Lon: *reading.Longitude, Lat: *reading.Latitude}
		for _, alert := range alerts {
			if !domain.GeometryContains(alert.Geometry, point) {
				continue
			}
			report.Matches++

			if d.marker != nil && !d.marker.FirstNotification(ctx, reading.SensorID, alert.Identifier) {
				report.Suppressed++
				d.metrics.DispatchSuppressed.Inc()
				continue
			}

			if err := d.notify(ctx, reading, alert); err != nil {
				report.Failed++
				d.metrics.DispatchErrors.Inc()
				d.logger.Error("publish match notification failed",
					"sensor_id", reading.SensorID, "alert", alert.Identifier, "error", err)
				continue
			}
			report.Published++
			d.metrics.DispatchPublished.Inc()
		}
	}
	return report, nil
}

// alertsForTopic loads (and caches per cycle) the alerts relevant to one
// sensor topic. Topics without a mapping hear about every category.
func (d *Dispatcher) alertsForTopic(ctx context.Context, topic string, cache map[string][]store.StoredAlert) ([]store.StoredAlert, error) {
	if alerts, ok := cache[topic]; ok {
		return alerts, nil
	}

	categories := topicCategories[topic]
	alerts, err := d.alerts.AlertsByCategories(ctx, categories)
	if err != nil {
		return nil, fmt.Errorf("load alerts for topic %q: %w", topic, err)
	}
	cache[topic] = alerts
	return alerts, nil
}

func (d *Dispatcher) notify(ctx context.Context, reading domain.SensorReading, alert store.StoredAlert) error {
	payload, err := json.Marshal(map[string]any{
		"type":      "cap_alert_match",
		"sensor_id": reading.SensorID,
		"topic":     reading.Topic,
		"alert": map[string]any{
			"identifier":           alert.Identifier,
			"category":             alert.Category,
			"severity":             alert.Severity,
			"disaster_type":        alert.DisasterType,
			"warning_message":      alert.WarningMessage,
			"area_description":     alert.AreaDescription,
			"effective_start_time": alert.EffectiveStart,
			"effective_end_time":   alert.EffectiveEnd,
		},
		"matched_at": d.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode match notification: %w", err)
	}

	topic := reading.Topic + "/" + reading.SensorID
	return d.publisher.Publish(ctx, topic, []byte(alert.Identifier), payload)
}
