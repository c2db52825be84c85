package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/couchcryptid/cap-alert-pipeline/internal/domain"
)

// ErrMissingIdentifier marks an alert record with no identifier. Such
// records cannot be deduplicated and are rejected individually.
var ErrMissingIdentifier = errors.New("alert record has no identifier")

// UpsertFailure records one rejected or failed alert within a batch.
type UpsertFailure struct {
	Identifier string
	Err        error
}

// UpsertResult summarizes one batch upsert. Inserted counts new rows,
// Updated counts overwritten rows, Failed lists per-record rejections.
type UpsertResult struct {
	Inserted int
	Updated  int
	Failed   []UpsertFailure
}

// StoredAlert is an alert row read back from the database. Geometry is
// returned as GeoJSON via ST_AsGeoJSON.
type StoredAlert struct {
	domain.AlertRecord
	Category  string
	CreatedAt time.Time
}

// upsertAlertSQL inserts or overwrites one alert keyed on identifier.
// created_at is only set by the column default on first insert; the DO
// UPDATE clause deliberately leaves it untouched. RETURNING (xmax = 0)
// distinguishes a fresh insert (true) from a conflict update (false).
const upsertAlertSQL = `
	INSERT INTO cap_alerts (
		identifier, alert_category, feature_type, geometry, severity,
		effective_start_time, effective_end_time, disaster_type,
		area_description, type, language, warning_message, properties
	) VALUES (
		$1, $2, $3, ST_GeomFromGeoJSON($4), $5, $6, $7, $8, $9, $10, $11, $12, $13
	)
	ON CONFLICT (identifier) DO UPDATE SET
		alert_category = EXCLUDED.alert_category,
		feature_type = EXCLUDED.feature_type,
		geometry = EXCLUDED.geometry,
		severity = EXCLUDED.severity,
		effective_start_time = EXCLUDED.effective_start_time,
		effective_end_time = EXCLUDED.effective_end_time,
		disaster_type = EXCLUDED.disaster_type,
		area_description = EXCLUDED.area_description,
		type = EXCLUDED.type,
		language = EXCLUDED.language,
		warning_message = EXCLUDED.warning_message,
		properties = EXCLUDED.properties
	RETURNING (xmax = 0)`

// UpsertAlerts stores a batch of alert records, one atomic insert-or-update
// per record. A record failing validation or hitting a database error is
// recorded in the result and never blocks the rest of the batch. The only
// returned error is context cancellation.
func (db *DB) UpsertAlerts(ctx context.Context, records []domain.AlertRecord) (UpsertResult, error) {
	var result UpsertResult
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if record.Identifier == "" {
			result.Failed = append(result.Failed, UpsertFailure{Err: ErrMissingIdentifier})
			continue
		}

		inserted, err := db.upsertAlert(ctx, record)
		if err != nil {
			db.logger.Warn("alert upsert failed",
				"identifier", record.Identifier, "error", err)
			result.Failed = append(result.Failed, UpsertFailure{
				Identifier: record.Identifier,
				Err:        err,
			})
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

func (db *DB) upsertAlert(ctx context.Context, record domain.AlertRecord) (bool, error) {
	properties, err := json.Marshal(record.Properties)
	if err != nil {
		return false, fmt.Errorf("marshal properties: %w", err)
	}

	var geometry sql.NullString
	if len(record.Geometry) > 0 {
		geometry = sql.NullString{String: string(record.Geometry), Valid: true}
	}

	category := domain.Categorize(record)

	var inserted bool
	err = db.conn.QueryRowContext(ctx, upsertAlertSQL,
		record.Identifier,
		category.Slug,
		record.FeatureType,
		geometry,
		record.Severity,
		nullTime(record.EffectiveStart),
		nullTime(record.EffectiveEnd),
		record.DisasterType,
		record.AreaDescription,
		record.Type,
		record.Language,
		record.WarningMessage,
		properties,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert alert: %w", err)
	}
	return inserted, nil
}

// listAlertsSQL returns stored alerts newest-first with geometry rendered
// back to GeoJSON.
const listAlertsSQL = `
	SELECT identifier, alert_category, feature_type, ST_AsGeoJSON(geometry),
		severity, effective_start_time, effective_end_time, disaster_type,
		area_description, type, language, warning_message, properties, created_at
	FROM cap_alerts
	ORDER BY created_at DESC
	LIMIT $1`

// ListAlerts returns stored alerts, newest first. A non-positive limit
// falls back to 100.
func (db *DB) ListAlerts(ctx context.Context, limit int) ([]StoredAlert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx, listAlertsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

// alertsByCategoriesSQL returns alerts with areal geometry, optionally
// restricted to a category list. A NULL category array matches everything.
const alertsByCategoriesSQL = `
	SELECT identifier, alert_category, feature_type, ST_AsGeoJSON(geometry),
		severity, effective_start_time, effective_end_time, disaster_type,
		area_description, type, language, warning_message, properties, created_at
	FROM cap_alerts
	WHERE geometry IS NOT NULL
		AND ($1::text[] IS NULL OR alert_category = ANY($1))
	ORDER BY created_at DESC`

// AlertsByCategories returns stored alerts that carry geometry, restricted
// to the given category slugs. A nil slice matches every category.
func (db *DB) AlertsByCategories(ctx context.Context, slugs []string) ([]StoredAlert, error) {
	var filter any
	if slugs != nil {
		filter = pq.StringArray(slugs)
	}
	rows, err := db.conn.QueryContext(ctx, alertsByCategoriesSQL, filter)
	if err != nil {
		return nil, fmt.Errorf("alerts by categories: %w", err)
	}
	defer rows.Close()
	return scanAlerts(rows)
}

func scanAlerts(rows *sql.Rows) ([]StoredAlert, error) {
	var alerts []StoredAlert
	for rows.Next() {
		var (
			a          StoredAlert
			category   sql.NullString
			geometry   sql.NullString
			start, end sql.NullTime
			properties []byte
		)
		err := rows.Scan(
			&a.Identifier, &category, &a.FeatureType, &geometry,
			&a.Severity, &start, &end, &a.DisasterType,
			&a.AreaDescription, &a.Type, &a.Language, &a.WarningMessage,
			&properties, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Category = category.String
		if geometry.Valid {
			a.Geometry = json.RawMessage(geometry.String)
		}
		if start.Valid {
			a.EffectiveStart = &start.Time
		}
		if end.Valid {
			a.EffectiveEnd = &end.Time
		}
		if len(properties) > 0 {
			if err := json.Unmarshal(properties, &a.Properties); err != nil {
				return nil, fmt.Errorf("unmarshal alert properties: %w", err)
			}
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
