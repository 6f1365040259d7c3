package route

import (
	"fmt"
	"math"

	"trip-synth/internal/geo"
)

// Segment is one coarse leg of a route, in travel order.
type Segment struct {
	From           geo.Point `json:"from" yaml:"from"`
	To             geo.Point `json:"to" yaml:"to"`
	Elevation      float64   `json:"elevation" yaml:"elevation"`
	Velocity       float64   `json:"velocity" yaml:"velocity"`             // m/s, average over the leg
	DeltaDistance  float64   `json:"deltaDistance" yaml:"deltaDistance"`   // meters
	DeltaTime      float64   `json:"deltaTime" yaml:"deltaTime"`           // seconds
	DeltaElevation float64   `json:"deltaElevation" yaml:"deltaElevation"` // meters
}

// Validate checks coordinates and that time and speed are finite and not
// negative.
func (s Segment) Validate() error {
	if err := s.From.Validate(); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := s.To.Validate(); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if !finite(s.DeltaTime) {
		return &geo.ArgumentError{Name: "deltaTime", Value: s.DeltaTime, Reason: "must be finite"}
	}
	if !finite(s.Velocity) {
		return &geo.ArgumentError{Name: "velocity", Value: s.Velocity, Reason: "must be finite"}
	}
	if s.DeltaTime < 0 {
		return &geo.ArgumentError{Name: "deltaTime", Value: s.DeltaTime, Reason: "must not be negative"}
	}
	if s.Velocity < 0 {
		return &geo.ArgumentError{Name: "velocity", Value: s.Velocity, Reason: "must not be negative"}
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ValidateAll rejects an empty route or any invalid segment.
func ValidateAll(segs []Segment) error {
	if len(segs) == 0 {
		return &geo.ArgumentError{Name: "segments", Value: 0, Reason: "route must contain at least one segment"}
	}
	for i, s := range segs {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("segment %d: %w", i, err)
		}
	}
	return nil
}

// FromPoints builds contiguous segments over an ordered list of points,
// travelled at a constant velocity in m/s.
func FromPoints(points []geo.Point, velocity float64, sphere geo.Sphere) ([]Segment, error) {
	if len(points) < 2 {
		return nil, &geo.ArgumentError{Name: "points", Value: len(points), Reason: "need at least two points"}
	}
	if velocity <= 0 {
		return nil, &geo.ArgumentError{Name: "velocity", Value: velocity, Reason: "must be positive"}
	}
	segs := make([]Segment, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		from, to := points[i-1], points[i]
		if err := from.Validate(); err != nil {
			return nil, fmt.Errorf("point %d: %w", i-1, err)
		}
		if err := to.Validate(); err != nil {
			return nil, fmt.Errorf("point %d: %w", i, err)
		}
		d := sphere.Haversine(from, to)
		segs = append(segs, Segment{
			From:          from,
			To:            to,
			Velocity:      velocity,
			DeltaDistance: d,
			DeltaTime:     d / velocity,
		})
	}
	return segs, nil
}

// Points returns the route vertices: every segment start plus the final end.
func Points(segs []Segment) []geo.Point {
	if len(segs) == 0 {
		return nil
	}
	pts := make([]geo.Point, 0, len(segs)+1)
	for _, s := range segs {
		pts = append(pts, s.From)
	}
	return append(pts, segs[len(segs)-1].To)
}
