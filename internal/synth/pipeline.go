package synth

import (
	"iter"
	"math"
	"slices"

	"trip-synth/internal/geo"
	"trip-synth/internal/route"
)

// Resample lazily yields ceil(deltaTime/dt) great-circle positions per
// segment at fractions i/n, i = 0..n-1, in travel order. The route's final
// endpoint is not included.
func Resample(segs []route.Segment, dt float64, sphere geo.Sphere) iter.Seq[geo.Point] {
	return func(yield func(geo.Point) bool) {
		for _, seg := range segs {
			n := stepsIn(seg.DeltaTime, dt, sphere.Epsilon)
			for i := range n {
				if !yield(sphere.Interpolate(seg.From, seg.To, float64(i)/float64(n))) {
					return
				}
			}
		}
	}
}

// stepsIn is ceil(duration/dt), tolerant of representation error such as
// 10 / (1/3.0) evaluating just above 30.
func stepsIn(duration, dt, eps float64) int {
	if duration <= 0 {
		return 0
	}
	return int(math.Ceil(duration/dt - eps))
}

// Kinematics turns dense positions into provisional samples. Each position is
// paired with its successor, the last one with end, to give bearing, distance
// and velocity over one step. Altitude and slope are left at zero.
func Kinematics(positions []geo.Point, end geo.Point, dt float64, sphere geo.Sphere) []Sample {
	if len(positions) == 0 {
		return nil
	}
	out := make([]Sample, 0, len(positions))
	for w := range windows(append(slices.Clip(positions), end), 2) {
		d := sphere.Haversine(w[0], w[1])
		out = append(out, Sample{
			Position:      w[0],
			Bearing:       geo.Bearing(w[0], w[1]),
			Velocity:      d / dt,
			DeltaDistance: d,
		})
	}
	return out
}

// Slopes sets each sample's slope to the altitude change to its successor
// over its delta distance. The last sample is compared with itself and gets
// zero; so does any sample that did not move. The last sample is kept rather
// than dropped, so the sample count and the summed delta distance still
// cover the whole route.
func Slopes(samples []Sample, eps float64) []Sample {
	slopes := derive(samples, 0, 1, func(w []Sample) float64 {
		if w[0].DeltaDistance < eps {
			return 0
		}
		return (w[1].Altitude - w[0].Altitude) / w[0].DeltaDistance
	})
	out := slices.Clone(samples)
	for i := range out {
		out[i].Slope = slopes[i]
	}
	return out
}

// Accelerations fills the tri-axial acceleration of every sample:
//
//	ax[i] = (v[i] - v[i+1]) / dt
//	ay[i] = v[i+1]² / r(p[i-1], p[i], p[i+1])
//	az[i] = g(lat[i])
//
// Neighbours beyond either end are duplicates of the boundary sample, so the
// output always has one entry per input sample. A straight or degenerate
// triplet has no centripetal term.
func Accelerations(samples []Sample, dt float64, sphere geo.Sphere) []Sample {
	ax := derive(samples, 0, 1, func(w []Sample) float64 {
		return (w[0].Velocity - w[1].Velocity) / dt
	})
	ay := derive(samples, 1, 1, func(w []Sample) float64 {
		v := w[2].Velocity
		return v * v * sphere.Curvature(w[0].Position, w[1].Position, w[2].Position)
	})
	az := derive(samples, 0, 0, func(w []Sample) float64 {
		return geo.Gravity(w[0].Position.Lat, w[0].Altitude)
	})

	out := slices.Clone(samples)
	for i := range out {
		out[i].Acceleration = [3]float64{ax[i], ay[i], az[i]}
	}
	return out
}
