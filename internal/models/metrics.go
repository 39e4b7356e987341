package models

import "time"

// TimestampFormat is the wire format the server expects for metric and
// event timestamps (UTC, microsecond precision).
const TimestampFormat = "2006-01-02 15:04:05.000000"

// FormatTimestamp renders a timestamp in the server's wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// ValidTimestamp reports whether a user-supplied timestamp parses in the
// server's wire format.
func ValidTimestamp(value string) bool {
	_, err := time.Parse(TimestampFormat, value)
	return err == nil
}

// MetricSet is one metrics submission: a batch of named values sharing a
// timestamp, a time offset relative to run start, and a step number.
// Submission order is the only ordering guarantee.
type MetricSet struct {
	Values    map[string]float64 `json:"values"`
	Time      float64            `json:"time"`
	Timestamp string             `json:"timestamp"`
	Step      int64              `json:"step"`
}

// MetricsFile is the on-disk document accepted by `log metrics --from-file`.
type MetricsFile struct {
	Metrics []MetricEntry `json:"metrics" yaml:"metrics"`
}

// MetricEntry mirrors MetricSet for file input, keeping the step optional
// so an explicit zero survives and unstepped entries can be numbered by
// position.
type MetricEntry struct {
	Values    map[string]float64 `json:"values" yaml:"values"`
	Time      float64            `json:"time" yaml:"time"`
	Timestamp string             `json:"timestamp" yaml:"timestamp"`
	Step      *int64             `json:"step" yaml:"step"`
}

// Set materializes the entry, falling back to defaultStep when the
// document gave none.
func (e MetricEntry) Set(defaultStep int64) MetricSet {
	set := MetricSet{
		Values:    e.Values,
		Time:      e.Time,
		Timestamp: e.Timestamp,
		Step:      defaultStep,
	}
	if e.Step != nil {
		set.Step = *e.Step
	}
	return set
}

// Event is a free-text message attached to a run's event stream.
type Event struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
