package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSensorReading(t *testing.T) {
	frozen := time.Date(2026, time.February, 1, 12, 0, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(frozen))
	defer SetClock(nil)

	t.Run("canonical fields", func(t *testing.T) {
		payload := []byte(`{"id":"20001_0000_62963_01","Lat":28.6139,"Long":77.209,"rain_mm":12.4}`)
		r, err := ParseSensorReading("rainfall/status", payload)
		require.NoError(t, err)

		assert.Equal(t, "20001_0000_62963_01", r.SensorID)
		assert.Equal(t, "rainfall", r.Topic)
		require.True(t, r.HasLocation())
		assert.Equal(t, 28.6139, *r.Latitude)
		assert.Equal(t, 77.209, *r.Longitude)
		assert.Equal(t, 12.4, r.RawPayload["rain_mm"])
		assert.Equal(t, frozen, r.ReceivedAt)
	})

	t.Run("alias casings", func(t *testing.T) {
		for _, payload := range []string{
			`{"ID":"s1","lat":"21.26","long":"77.41"}`,
			`{"sensor_id":"s1","latitude":21.26,"longitude":77.41}`,
			`{"Sensor_ID":"s1","LATITUDE":21.26,"LONGITUDE":77.41}`,
		} {
			r, err := ParseSensorReading("rainfall", []byte(payload))
			require.NoError(t, err, payload)
			assert.Equal(t, "s1", r.SensorID, payload)
			require.True(t, r.HasLocation(), payload)
			assert.InDelta(t, 21.26, *r.Latitude, 1e-9, payload)
			assert.InDelta(t, 77.41, *r.Longitude, 1e-9, payload)
		}
	})

	t.Run("numeric id", func(t *testing.T) {
		r, err := ParseSensorReading("rainfall", []byte(`{"id":42}`))
		require.NoError(t, err)
		assert.Equal(t, "42", r.SensorID)
	})

	t.Run("missing id is rejected", func(t *testing.T) {
		_, err := ParseSensorReading("rainfall", []byte(`{"lat":21.0,"long":77.0}`))
		assert.ErrorIs(t, err, ErrMissingSensorID)
	})

	t.Run("unparseable coordinates kept as null", func(t *testing.T) {
		r, err := ParseSensorReading("rainfall", []byte(`{"id":"s2","lat":"north-ish","long":null}`))
		require.NoError(t, err)
		assert.Nil(t, r.Latitude)
		assert.Nil(t, r.Longitude)
		assert.False(t, r.HasLocation())
		assert.Equal(t, "north-ish", r.RawPayload["lat"])
	})

	t.Run("missing coordinates kept as null", func(t *testing.T) {
		r, err := ParseSensorReading("rainfall", []byte(`{"id":"s3","battery":98}`))
		require.NoError(t, err)
		assert.False(t, r.HasLocation())
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseSensorReading("rainfall", []byte(`{broken`))
		assert.Error(t, err)
	})

	t.Run("topic without subtopic", func(t *testing.T) {
		r, err := ParseSensorReading("temperature", []byte(`{"id":"s4"}`))
		require.NoError(t, err)
		assert.Equal(t, "temperature", r.Topic)
	})
}
