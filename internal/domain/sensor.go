package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMissingSensorID marks a telemetry payload with no identifier field.
// Such messages are logged and dropped; a reading without an id is
// meaningless.
var ErrMissingSensorID = errors.New("sensor payload has no identifier field")

// SensorReading is one received telemetry message. Latitude and Longitude
// are nil when the payload carried no parseable coordinates; RawPayload
// keeps the full message verbatim.
type SensorReading struct {
	SensorID   string         `json:"sensor_id"`
	Topic      string         `json:"topic"`
	Latitude   *float64       `json:"latitude"`
	Longitude  *float64       `json:"longitude"`
	RawPayload map[string]any `json:"raw_data"`
	ReceivedAt time.Time      `json:"received_at"`
}

// HasLocation reports whether the reading carries coordinates.
func (r SensorReading) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Field-name aliases accepted in telemetry payloads, matched
// case-insensitively.
var (
	sensorIDAliases  = []string{"id", "sensor_id"}
	latitudeAliases  = []string{"lat", "latitude"}
	longitudeAliases = []string{"long", "longitude"}
)

// ParseSensorReading extracts a SensorReading from a raw telemetry message.
// The topic's stream type is the segment before the first "/", so
// "rainfall/status" records as topic "rainfall". Readings without an
// identifier return ErrMissingSensorID; readings without coordinates are
// returned with nil latitude/longitude.
func ParseSensorReading(topic string, payload []byte) (SensorReading, error) {
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return SensorReading{}, fmt.Errorf("parse sensor payload: %w", err)
	}

	id := stringValue(lookupField(data, sensorIDAliases))
	if id == "" {
		return SensorReading{}, ErrMissingSensorID
	}

	return SensorReading{
		SensorID:   id,
		Topic:      topicType(topic),
		Latitude:   floatValue(lookupField(data, latitudeAliases)),
		Longitude:  floatValue(lookupField(data, longitudeAliases)),
		RawPayload: data,
		ReceivedAt: clock.Now().UTC(),
	}, nil
}

// topicType strips any subtopic suffix: "rainfall/status" -> "rainfall".
func topicType(topic string) string {
	if i := strings.IndexByte(topic, '/'); i >= 0 {
		return topic[:i]
	}
	return topic
}

func lookupField(data map[string]any, aliases []string) any {
	for key, value := range data {
		for _, alias := range aliases {
			if strings.EqualFold(key, alias) {
				return value
			}
		}
	}
	return nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}

// floatValue parses a coordinate that may arrive as a JSON number or a
// string. Anything else yields nil rather than an error.
func floatValue(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
