package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AlertRecord is the canonical in-memory shape of one CAP alert.
// Properties preserves every source field verbatim for downstream consumers;
// the named fields are the subset the pipeline itself acts on.
type AlertRecord struct {
	Identifier      string          `json:"identifier"`
	FeatureType     string          `json:"feature_type,omitempty"`
	Geometry        json.RawMessage `json:"geometry,omitempty"` // GeoJSON, nil when absent
	Severity        string          `json:"severity,omitempty"`
	EffectiveStart  *time.Time      `json:"effective_start_time,omitempty"`
	EffectiveEnd    *time.Time      `json:"effective_end_time,omitempty"`
	DisasterType    string          `json:"disaster_type,omitempty"`
	AreaDescription string          `json:"area_description,omitempty"`
	Type            string          `json:"type,omitempty"`
	Language        string          `json:"language,omitempty"`
	WarningMessage  string          `json:"warning_message,omitempty"`
	Properties      map[string]any  `json:"properties,omitempty"`
}

// featureCollection is the wire shape produced by the upstream feed collector.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// DecodeAlertBatch deserializes a raw feed payload into alert records.
// It accepts either a GeoJSON FeatureCollection (the collector's shape) or a
// bare JSON array of alert objects.
func DecodeAlertBatch(payload []byte) ([]AlertRecord, error) {
	var fc featureCollection
	if err := json.Unmarshal(payload, &fc); err == nil && fc.Type == "FeatureCollection" {
		records := make([]AlertRecord, 0, len(fc.Features))
		for _, f := range fc.Features {
			records = append(records, buildRecord(f.Properties, f.Geometry))
		}
		return records, nil
	}

	var objects []map[string]any
	if err := json.Unmarshal(payload, &objects); err != nil {
		return nil, fmt.Errorf("decode alert batch: %w", err)
	}
	records := make([]AlertRecord, 0, len(objects))
	for _, obj := range objects {
		var geom json.RawMessage
		if g, ok := obj["geometry"]; ok && g != nil {
			if data, err := json.Marshal(g); err == nil {
				geom = data
			}
		}
		records = append(records, buildRecord(obj, geom))
	}
	return records, nil
}

// buildRecord maps a feature's property bag onto an AlertRecord. The full
// bag is retained in Properties so nothing the source sent is lost.
func buildRecord(props map[string]any, geometry json.RawMessage) AlertRecord {
	if isNullJSON(geometry) {
		geometry = nil
	}
	return AlertRecord{
		Identifier:      stringProp(props, "identifier"),
		FeatureType:     stringProp(props, "feature_type"),
		Geometry:        geometry,
		Severity:        stringProp(props, "severity"),
		EffectiveStart:  timeProp(props, "effective_start_time"),
		EffectiveEnd:    timeProp(props, "effective_end_time"),
		DisasterType:    stringProp(props, "disaster_type"),
		AreaDescription: stringProp(props, "area_description"),
		Type:            stringProp(props, "type"),
		Language:        stringProp(props, "language", "actual_lang"),
		WarningMessage:  stringProp(props, "warning_message"),
		Properties:      props,
	}
}

func isNullJSON(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// stringProp returns the first present key's value rendered as a string.
func stringProp(props map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := props[key]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			return s
		case float64:
			return fmt.Sprintf("%g", s)
		}
	}
	return ""
}

func timeProp(props map[string]any, key string) *time.Time {
	s := stringProp(props, key)
	if s == "" {
		return nil
	}
	t, err := parseAlertTime(s)
	if err != nil {
		return nil
	}
	return &t
}

// feedTimeLayout matches the feed's Java-style timestamps once the weekday
// and timezone abbreviation have been stripped, e.g.
// "Sun Feb 01 10:34:17 IST 2026" -> "Feb 01 10:34:17 2026".
const feedTimeLayout = "Jan 02 15:04:05 2006"

// parseAlertTime parses an effective time from the feed. The timezone
// abbreviation is ambiguous and dropped; the result is interpreted as UTC.
func parseAlertTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	parts := strings.Fields(s)
	if len(parts) >= 6 {
		clean := fmt.Sprintf("%s %s %s %s", parts[1], parts[2], parts[3], parts[5])
		if t, err := time.Parse(feedTimeLayout, clean); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized alert timestamp %q", s)
}
