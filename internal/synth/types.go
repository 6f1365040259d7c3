package synth

import (
	"time"

	"trip-synth/internal/geo"
)

// Sample is one fixed-time-step point of a synthesized trip.
type Sample struct {
	Position      geo.Point  `json:"position"`
	Bearing       float64    `json:"bearing"`       // degrees [0, 360)
	Velocity      float64    `json:"velocity"`      // m/s
	DeltaDistance float64    `json:"deltaDistance"` // meters to the next sample
	Altitude      float64    `json:"altitude"`      // meters
	Slope         float64    `json:"slope"`         // rise over run
	Acceleration  [3]float64 `json:"acceleration"`  // ax, ay, az in m/s²
}

// Trip is the ordered output of one synthesis run.
type Trip struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Frequency float64  `json:"frequency"` // Hz
	Samples   []Sample `json:"samples"`
}

// Step is the nominal time between samples in seconds.
func (t *Trip) Step() float64 { return 1 / t.Frequency }

// Offset is the nominal time of sample i since the start of the trip.
func (t *Trip) Offset(i int) time.Duration {
	return time.Duration(float64(i) * t.Step() * float64(time.Second))
}

// Duration covers every sample, each lasting one step.
func (t *Trip) Duration() time.Duration { return t.Offset(len(t.Samples)) }

// Distance sums the per-sample distances in meters.
func (t *Trip) Distance() float64 {
	total := 0.0
	for _, s := range t.Samples {
		total += s.DeltaDistance
	}
	return total
}

// Positions returns the sample positions in order.
func (t *Trip) Positions() []geo.Point {
	pts := make([]geo.Point, len(t.Samples))
	for i, s := range t.Samples {
		pts[i] = s.Position
	}
	return pts
}
