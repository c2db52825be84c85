// Package store persists CAP alerts and sensor telemetry in Postgres with
// PostGIS geometry columns.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// DB wraps a Postgres connection and owns the cap_alerts and sensor_status
// tables.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres using the given DSN and verifies the connection
// with a ping.
func Open(dsn string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("connected to postgres")
	return &DB{conn: conn, logger: logger}, nil
}

// NewWithConn wraps an existing connection. Used by tests to inject sqlmock.
func NewWithConn(conn *sql.DB, logger *slog.Logger) *DB {
	return &DB{conn: conn, logger: logger}
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// schemaStatements creates the spatial extension, tables, and indexes. Every
// statement is IF NOT EXISTS so InitSchema is a no-op against an
// already-initialized database.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS postgis`,

	`CREATE TABLE IF NOT EXISTS cap_alerts (
		id SERIAL PRIMARY KEY,
		identifier VARCHAR(255) UNIQUE NOT NULL,
		alert_category VARCHAR(100),
		feature_type VARCHAR(50),
		geometry GEOMETRY(Geometry, 4326),
		severity VARCHAR(50),
		effective_start_time TIMESTAMP,
		effective_end_time TIMESTAMP,
		disaster_type VARCHAR(100),
		area_description TEXT,
		type VARCHAR(50),
		language VARCHAR(10),
		warning_message TEXT,
		properties JSONB,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS idx_cap_alerts_geometry ON cap_alerts USING GIST (geometry)`,
	`CREATE INDEX IF NOT EXISTS idx_cap_alerts_identifier ON cap_alerts (identifier)`,
	`CREATE INDEX IF NOT EXISTS idx_cap_alerts_disaster_type ON cap_alerts (disaster_type)`,
	`CREATE INDEX IF NOT EXISTS idx_cap_alerts_severity ON cap_alerts (severity)`,
	`CREATE INDEX IF NOT EXISTS idx_cap_alerts_alert_category ON cap_alerts (alert_category)`,

	`CREATE TABLE IF NOT EXISTS sensor_status (
		id SERIAL PRIMARY KEY,
		sensor_id VARCHAR(255) NOT NULL,
		topic VARCHAR(255),
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		raw_data JSONB,
		received_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (sensor_id, topic, received_at)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sensor_status_sensor_id ON sensor_status (sensor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_status_topic ON sensor_status (topic)`,
	`CREATE INDEX IF NOT EXISTS idx_sensor_status_received_at ON sensor_status (received_at)`,
}

// InitSchema creates tables and indexes. Idempotent: safe to run on every
// startup.
func (db *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	db.logger.Info("database schema verified")
	return nil
}
