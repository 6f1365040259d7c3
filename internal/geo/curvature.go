package geo

import "math"

// RotationDirection classifies the turn p1 -> p2 -> p3 from the planar cross
// product over (lon, lat): -1 for a left turn, +1 for a right turn, 0 when
// collinear. The approximation holds for short triplets away from the poles
// and the antimeridian.
func RotationDirection(p1, p2, p3 Point) float64 {
	cross := (p2.Lon-p1.Lon)*(p3.Lat-p1.Lat) - (p2.Lat-p1.Lat)*(p3.Lon-p1.Lon)
	switch {
	case cross > 0:
		return -1
	case cross < 0:
		return 1
	default:
		return 0
	}
}

// CurvatureRadius estimates the signed radius in metres of the circle through
// three points using Menger curvature over their Cartesian projections. The
// sign follows RotationDirection; collinear points give 0.
func (s Sphere) CurvatureRadius(p1, p2, p3 Point) float64 {
	c1, c2, c3 := s.ToCartesian(p1), s.ToCartesian(p2), s.ToCartesian(p3)

	u1 := c1.Sub(c2)
	u1 = u1.Scale(1 / (u1.Norm() + s.Epsilon))
	u3 := c3.Sub(c2)
	u3 = u3.Scale(1 / (u3.Norm() + s.Epsilon))

	alpha := math.Acos(math.Min(1, math.Max(-1, u1.Dot(u3))))
	d := c1.Distance(c3)

	k := 2 * math.Sin(alpha) / (d + s.Epsilon)
	return RotationDirection(p1, p2, p3) / (k + s.Epsilon)
}

// Curvature is the signed reciprocal of CurvatureRadius, 0 for straight or
// degenerate triplets.
func (s Sphere) Curvature(p1, p2, p3 Point) float64 {
	r := s.CurvatureRadius(p1, p2, p3)
	if math.Abs(r) < s.Epsilon {
		return 0
	}
	return 1 / r
}
