package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/cap-alert-pipeline/internal/domain"
)

// insertSensorSQL appends one telemetry reading. The (sensor_id, topic,
// received_at) uniqueness means a replayed message with an identical
// timestamp overwrites itself instead of erroring; distinct timestamps
// always produce distinct rows.
const insertSensorSQL = `
	INSERT INTO sensor_status (sensor_id, topic, latitude, longitude, raw_data, received_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (sensor_id, topic, received_at) DO UPDATE SET
		latitude = EXCLUDED.latitude,
		longitude = EXCLUDED.longitude,
		raw_data = EXCLUDED.raw_data`

// InsertSensorReading appends one reading to the telemetry log. Readings
// are never merged: each reception is its own row.
func (db *DB) InsertSensorReading(ctx context.Context, reading domain.SensorReading) error {
	rawData, err := json.Marshal(reading.RawPayload)
	if err != nil {
		return fmt.Errorf("marshal sensor payload: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, insertSensorSQL,
		reading.SensorID,
		reading.Topic,
		nullFloat(reading.Latitude),
		nullFloat(reading.Longitude),
		rawData,
		reading.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sensor reading: %w", err)
	}
	return nil
}

// latestSensorSQL returns the most recent reading per (sensor_id, topic).
const latestSensorSQL = `
	SELECT DISTINCT ON (sensor_id, topic)
		sensor_id, topic, latitude, longitude, raw_data, received_at
	FROM sensor_status
	WHERE ($1 = '' OR topic = $1)
	ORDER BY sensor_id, topic, received_at DESC`

// LatestSensorReadings returns the last-known reading for every
// (sensor_id, topic) pair, optionally filtered to one topic. Pass "" for
// all topics.
func (db *DB) LatestSensorReadings(ctx context.Context, topic string) ([]domain.SensorReading, error) {
	rows, err := db.conn.QueryContext(ctx, latestSensorSQL, topic)
	if err != nil {
		return nil, fmt.Errorf("latest sensor readings: %w", err)
	}
	defer rows.Close()
	return scanSensorReadings(rows)
}

// SensorsInPolygon returns the sensors whose most recent stored location
// lies inside or on the boundary of the given closed ring. Containment is
// planar on the raw lon/lat values. Sensors without coordinates are
// excluded, never an error. An unclosed ring is a caller error.
func (db *DB) SensorsInPolygon(ctx context.Context, ring []domain.LonLat) ([]domain.SensorReading, error) {
	if err := domain.ValidateRing(ring); err != nil {
		return nil, err
	}

	readings, err := db.LatestSensorReadings(ctx, "")
	if err != nil {
		return nil, err
	}

	var matched []domain.SensorReading
	for _, reading := range readings {
		if !reading.HasLocation() {
			continue
		}
		point := domain.LonLat{Lon: *reading.Longitude, Lat: *reading.Latitude}
		if domain.PointInRing(point, ring) {
			matched = append(matched, reading)
		}
	}
	return matched, nil
}

func scanSensorReadings(rows *sql.Rows) ([]domain.SensorReading, error) {
	var readings []domain.SensorReading
	for rows.Next() {
		var (
			r        domain.SensorReading
			lat, lon sql.NullFloat64
			rawData  []byte
		)
		if err := rows.Scan(&r.SensorID, &r.Topic, &lat, &lon, &rawData, &r.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan sensor reading: %w", err)
		}
		if lat.Valid {
			r.Latitude = &lat.Float64
		}
		if lon.Valid {
			r.Longitude = &lon.Float64
		}
		if len(rawData) > 0 {
			if err := json.Unmarshal(rawData, &r.RawPayload); err != nil {
				return nil, fmt.Errorf("unmarshal sensor payload: %w", err)
			}
		}
		readings = append(readings, r)
	}
	return readings, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
