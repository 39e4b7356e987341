package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimestamp(t *testing.T) {
	stamp := time.Date(2024, 3, 15, 12, 30, 45, 123456000, time.UTC)
	assert.Equal(t, "2024-03-15 12:30:45.123456", FormatTimestamp(stamp))

	// Non-UTC inputs are converted.
	eastern := time.FixedZone("UTC-5", -5*60*60)
	assert.Equal(t, "2024-03-15 12:30:45.123456",
		FormatTimestamp(stamp.In(eastern)))
}

func TestValidTimestamp(t *testing.T) {
	assert.True(t, ValidTimestamp("2024-03-15 12:30:45.123456"))
	assert.False(t, ValidTimestamp("2024-03-15T12:30:45Z"))
	assert.False(t, ValidTimestamp("not a timestamp"))
}

func TestMetricEntrySet(t *testing.T) {
	zero := int64(0)
	seven := int64(7)

	tests := []struct {
		name     string
		entry    MetricEntry
		fallback int64
		want     int64
	}{
		{"absent step uses fallback", MetricEntry{}, 3, 3},
		{"explicit zero survives", MetricEntry{Step: &zero}, 3, 0},
		{"explicit step survives", MetricEntry{Step: &seven}, 3, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Set(tt.fallback).Step)
		})
	}
}

func TestRunStatusTerminal(t *testing.T) {
	for _, status := range []RunStatus{RunStatusCompleted, RunStatusFailed, RunStatusTerminated, RunStatusLost} {
		assert.True(t, status.Terminal(), string(status))
	}
	for _, status := range []RunStatus{RunStatusCreated, RunStatusRunning, ""} {
		assert.False(t, status.Terminal(), string(status))
	}
}
