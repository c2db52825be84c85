package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAlertBatch_FeatureCollection(t *testing.T) {
	payload := []byte(`{
		"type": "FeatureCollection",
		"features": [
			{
				"type": "Feature",
				"geometry": {"type": "Point", "coordinates": [77.2, 28.4]},
				"properties": {
					"identifier": "NDMA-EQ-001",
					"feature_type": "epicenter",
					"severity": "Severe",
					"disaster_type": "Earthquake",
					"warning_message": "Earthquake of Magnitude: 5.1 detected",
					"area_description": "Delhi NCR",
					"language": "en",
					"effective_start_time": "Sun Feb 01 10:34:17 IST 2026",
					"depth": "10 km"
				}
			},
			{
				"type": "Feature",
				"geometry": null,
				"properties": {
					"identifier": "NDMA-RF-002",
					"disaster_type": "Heavy Rainfall"
				}
			}
		]
	}`)

	records, err := DecodeAlertBatch(payload)
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "NDMA-EQ-001", first.Identifier)
	assert.Equal(t, "epicenter", first.FeatureType)
	assert.Equal(t, "Severe", first.Severity)
	assert.Equal(t, "Earthquake", first.DisasterType)
	assert.Equal(t, "Delhi NCR", first.AreaDescription)
	assert.Equal(t, "en", first.Language)
	assert.JSONEq(t, `{"type":"Point","coordinates":[77.2,28.4]}`, string(first.Geometry))
	require.NotNil(t, first.EffectiveStart)
	assert.Equal(t, time.Date(2026, time.February, 1, 10, 34, 17, 0, time.UTC), *first.EffectiveStart)
	// The open property bag survives verbatim.
	assert.Equal(t, "10 km", first.Properties["depth"])

	second := records[1]
	assert.Equal(t, "NDMA-RF-002", second.Identifier)
	assert.Nil(t, second.Geometry)
	assert.Nil(t, second.EffectiveStart)
}

func TestDecodeAlertBatch_BareArray(t *testing.T) {
	payload := []byte(`[
		{
			"identifier": "A-1",
			"disaster_type": "Cyclonic Storm",
			"geometry": {"type": "Polygon", "coordinates": [[[77,28],[78,28],[78,29],[77,28]]]},
			"effective_start_time": "2026-02-01T10:34:17Z"
		},
		{"identifier": "A-2"}
	]`)

	records, err := DecodeAlertBatch(payload)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A-1", records[0].Identifier)
	assert.Contains(t, string(records[0].Geometry), `"Polygon"`)
	require.NotNil(t, records[0].EffectiveStart)
	assert.Equal(t, time.Date(2026, time.February, 1, 10, 34, 17, 0, time.UTC), *records[0].EffectiveStart)
	assert.Nil(t, records[1].Geometry)
}

func TestDecodeAlertBatch_Deterministic(t *testing.T) {
	payload := []byte(`[
		{
			"identifier": "A-1",
			"disaster_type": "Cyclonic Storm",
			"severity": "Extreme",
			"geometry": {"type": "Point", "coordinates": [77.2, 28.4]},
			"effective_start_time": "2026-02-01T10:34:17Z",
			"wind_speed": "120 kmph"
		}
	]`)

	first, err := DecodeAlertBatch(payload)
	require.NoError(t, err)
	second, err := DecodeAlertBatch(payload)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("decode is not deterministic (-first +second):\n%s", diff)
	}
}

func TestDecodeAlertBatch_Invalid(t *testing.T) {
	_, err := DecodeAlertBatch([]byte(`{not json`))
	assert.Error(t, err)

	// A JSON object that is not a FeatureCollection is not a batch either.
	_, err = DecodeAlertBatch([]byte(`{"type":"Feature"}`))
	assert.Error(t, err)
}

func TestParseAlertTime(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected time.Time
		wantErr  bool
	}{
		{
			name:     "feed format",
			input:    "Sun Feb 01 10:34:17 IST 2026",
			expected: time.Date(2026, time.February, 1, 10, 34, 17, 0, time.UTC),
		},
		{
			name:     "rfc3339",
			input:    "2026-02-01T10:34:17Z",
			expected: time.Date(2026, time.February, 1, 10, 34, 17, 0, time.UTC),
		},
		{name: "garbage", input: "tomorrow-ish", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseAlertTime(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.expected), "got %v", got)
		})
	}
}
