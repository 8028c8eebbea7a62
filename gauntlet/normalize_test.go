package gauntlet

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFieldVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"camelCase", `{"startTime":"2026-08-01T10:00:00Z","endTime":"2026-08-01T10:30:00Z"}`},
		{"snake_case", `{"start_time":"2026-08-01T10:00:00Z","end_time":"2026-08-01T10:30:00Z"}`},
		{"createdAt fallback", `{"createdAt":"2026-08-01T10:00:00Z","finishedAt":"2026-08-01T10:30:00Z"}`},
	}

	want := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Normalize(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.True(t, rec.StartTime.Equal(want))
			assert.Equal(t, 30*time.Minute, rec.Duration())
		})
	}
}

func TestNormalizeUnixMillisTimestamp(t *testing.T) {
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	raw := json.RawMessage(`{"startTime":` + jsonInt(start.UnixMilli()) + `}`)

	rec, err := Normalize(raw)
	require.NoError(t, err)
	assert.True(t, rec.StartTime.Equal(start))
}

func TestNormalizePrefersFirstPresentVariant(t *testing.T) {
	raw := json.RawMessage(`{"startTime":"2026-08-01T10:00:00Z","start_time":"2020-01-01T00:00:00Z"}`)
	rec, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 2026, rec.StartTime.Year())
}

func TestNormalizeResultVariants(t *testing.T) {
	raw := json.RawMessage(`{
		"startTime":"2026-08-01T10:00:00Z",
		"results":[
			{"player":"p1","rank":1,"rating":2000,"ratingChange":25,"droneHealth":80},
			{"player":"p2","rank":2,"rating":1900,"rating_change":-25,"drone_health":12.5}
		]
	}`)

	rec, err := Normalize(raw)
	require.NoError(t, err)
	require.Len(t, rec.Results, 2)
	assert.Equal(t, 25.0, rec.Results[0].RatingChange)
	assert.Equal(t, 80.0, rec.Results[0].DroneHealth)
	assert.Equal(t, -25.0, rec.Results[1].RatingChange)
	assert.Equal(t, 12.5, rec.Results[1].DroneHealth)
}

func TestNormalizeMissingTimestampsAreZero(t *testing.T) {
	rec, err := Normalize(json.RawMessage(`{"players":["p1"]}`))
	require.NoError(t, err)
	assert.True(t, rec.StartTime.IsZero())
	assert.Zero(t, rec.Duration())
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := Normalize(json.RawMessage(`{"startTime":{"nested":true}}`))
	assert.Error(t, err)

	_, err = Normalize(json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestNormalizeCountsRounds(t *testing.T) {
	raw := json.RawMessage(`{"startTime":"2026-08-01T10:00:00Z","rounds":[{},{},{}]}`)
	rec, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Rounds)
}

func jsonInt(v int64) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}
