package models

import "time"

// Observation is a single raw reading of an operational metric as it
// arrives from the feed: one value per metric per time step.
type Observation struct {
	MetricID  string  `json:"metric"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"ts"` // unix seconds
	Source    string  `json:"source,omitempty"`
}

// Time returns the observation timestamp as time.Time.
func (o *Observation) Time() time.Time {
	return time.Unix(o.Timestamp, 0)
}

// MetricPoint is one stored point of a metric history, as served to the
// dashboard. Unlike the engine's bare series, points keep their bucket
// times so the UI can plot them on a calendar axis.
type MetricPoint struct {
	Bucket time.Time `json:"bucket"`
	Value  float64   `json:"value"`
}

// MetricHistory is an ordered (oldest first) slice of stored points for
// one metric and rollup window.
type MetricHistory struct {
	MetricID string        `json:"metric"`
	Window   string        `json:"window"`
	Points   []MetricPoint `json:"points"`
}

// Values extracts the bare value series, oldest first, for the engine.
func (h *MetricHistory) Values() []float64 {
	vals := make([]float64, 0, len(h.Points))
	for _, p := range h.Points {
		vals = append(vals, p.Value)
	}
	return vals
}
