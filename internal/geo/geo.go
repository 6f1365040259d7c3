// Package geo implements spherical-earth geodesy over WGS84-derived constants:
// distances, bearings, interpolation, Cartesian conversion, a latitude gravity
// model and a three-point curvature estimator.
//
// All angles are degrees at the API boundary and radians internally.
package geo

import (
	"errors"
	"fmt"
	"math"
)

const (
	// SemiMajorAxis and SemiMinorAxis are the WGS84 ellipsoid radii in metres.
	SemiMajorAxis = 6378137.0
	SemiMinorAxis = 6356752.314245

	// Epsilon guards near-zero denominators.
	Epsilon = 1e-9
)

// ErrInvalidArgument is returned for malformed input: out-of-range coordinates,
// negative velocities, non-positive frequencies, empty point data.
var ErrInvalidArgument = errors.New("invalid argument")

// ArgumentError reports which argument was rejected and the value received.
type ArgumentError struct {
	Name   string
	Value  any
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s=%v: %s", e.Name, e.Value, e.Reason)
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

// Point is a geographic position in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// NewPoint returns a Point after checking lat ∈ [-90,90] and lon ∈ [-180,180].
func NewPoint(lat, lon float64) (Point, error) {
	p := Point{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// Validate reports an ArgumentError if the point is out of range or NaN.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return &ArgumentError{Name: "lat", Value: p.Lat, Reason: "latitude out of range [-90, 90]"}
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		return &ArgumentError{Name: "lon", Value: p.Lon, Reason: "longitude out of range [-180, 180]"}
	}
	return nil
}

func (p Point) String() string { return fmt.Sprintf("(%.6f, %.6f)", p.Lat, p.Lon) }

// Vector is an earth-centred Cartesian position in metres.
type Vector struct {
	X, Y, Z float64
}

func (v Vector) Add(o Vector) Vector { return Vector{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vector) Sub(o Vector) Vector { return Vector{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vector) Scale(k float64) Vector { return Vector{v.X * k, v.Y * k, v.Z * k} }
func (v Vector) Dot(o Vector) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vector) Norm() float64 { return math.Sqrt(v.Dot(v)) }
func (v Vector) Distance(o Vector) float64 { return v.Sub(o).Norm() }

// Sphere binds the earth radius and epsilon used by every computation.
type Sphere struct {
	Radius  float64
	Epsilon float64
}

// WGS84 is the mean-radius sphere R = (2A + B) / 3.
var WGS84 = Sphere{
	Radius:  (2*SemiMajorAxis + SemiMinorAxis) / 3,
	Epsilon: Epsilon,
}

func toRad(d float64) float64 { return d * math.Pi / 180 }
func toDeg(r float64) float64 { return r * 180 / math.Pi }

// NormalizeBearing maps any angle in degrees into [0, 360).
func NormalizeBearing(deg float64) float64 {
	b := math.Mod(deg, 360)
	if b < 0 {
		b += 360
	}
	if b >= 360 {
		b = 0
	}
	return b
}

// NormalizeLongitude maps any longitude into [-180, 180].
func NormalizeLongitude(deg float64) float64 {
	if deg >= -180 && deg <= 180 {
		return deg
	}
	l := math.Mod(deg+180, 360)
	if l < 0 {
		l += 360
	}
	return l - 180
}

// Haversine returns the great-circle distance in metres.
func (s Sphere) Haversine(p1, p2 Point) float64 {
	lat1, lat2 := toRad(p1.Lat), toRad(p2.Lat)
	dLat := lat2 - lat1
	dLon := toRad(p2.Lon - p1.Lon)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	a = math.Min(1, math.Max(0, a))
	return s.Radius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// PathLength sums the haversine distance over consecutive points.
func (s Sphere) PathLength(points []Point) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += s.Haversine(points[i-1], points[i])
	}
	return total
}

// Destination solves the forward geodetic problem: the point reached from
// origin after travelling distance metres on the initial bearing.
func (s Sphere) Destination(origin Point, distance, bearing float64) Point {
	delta := distance / s.Radius
	theta := toRad(bearing)
	lat1, lon1 := toRad(origin.Lat), toRad(origin.Lon)

	sinLat2 := math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta)
	sinLat2 = math.Min(1, math.Max(-1, sinLat2))
	lat2 := math.Asin(sinLat2)
	lon2 := lon1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*sinLat2,
	)
	return Point{Lat: toDeg(lat2), Lon: NormalizeLongitude(toDeg(lon2))}
}

// DestinationAfter is Destination for a body moving at velocity m/s for
// duration seconds.
func (s Sphere) DestinationAfter(origin Point, velocity, duration, bearing float64) (Point, error) {
	if duration <= 1e-6 {
		return Point{}, &ArgumentError{Name: "time", Value: duration, Reason: "must be greater than 1e-6 s"}
	}
	if velocity < 0 {
		return Point{}, &ArgumentError{Name: "velocity", Value: velocity, Reason: "must not be negative"}
	}
	return s.Destination(origin, velocity*duration, bearing), nil
}

// Bearing returns the initial great-circle bearing from -> to in [0, 360).
func Bearing(from, to Point) float64 {
	lat1, lat2 := toRad(from.Lat), toRad(to.Lat)
	dLon := toRad(to.Lon - from.Lon)
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return NormalizeBearing(toDeg(math.Atan2(y, x)))
}

// CrossTrackDistance is the signed distance in metres from pt to the great
// circle through from and to. Negative is left of the path, positive right.
func (s Sphere) CrossTrackDistance(pt, from, to Point) float64 {
	d13 := s.Haversine(from, pt) / s.Radius
	theta13 := toRad(Bearing(from, pt))
	theta12 := toRad(Bearing(from, to))
	x := math.Sin(d13) * math.Sin(theta13-theta12)
	return math.Asin(math.Min(1, math.Max(-1, x))) * s.Radius
}

// ToCartesian projects p onto the sphere in earth-centred coordinates.
func (s Sphere) ToCartesian(p Point) Vector {
	lat, lon := toRad(p.Lat), toRad(p.Lon)
	return Vector{
		X: s.Radius * math.Cos(lat) * math.Cos(lon),
		Y: s.Radius * math.Cos(lat) * math.Sin(lon),
		Z: s.Radius * math.Sin(lat),
	}
}

// FromCartesian returns the geographic point in the direction of v. Any
// non-zero length is accepted, which renormalizes v onto the sphere.
func (s Sphere) FromCartesian(v Vector) Point {
	lat := math.Atan2(v.Z, math.Hypot(v.X, v.Y))
	lon := math.Atan2(v.Y, v.X)
	return Point{Lat: toDeg(lat), Lon: toDeg(lon)}
}

// Midpoint averages the Cartesian projections of p1 and p2.
func (s Sphere) Midpoint(p1, p2 Point) Point {
	return s.FromCartesian(s.ToCartesian(p1).Add(s.ToCartesian(p2)).Scale(0.5))
}

// AngleBetween returns the central angle between p1 and p2 in radians.
func (s Sphere) AngleBetween(p1, p2 Point) float64 {
	if p1 == p2 {
		return 0
	}
	c := s.ToCartesian(p1).Dot(s.ToCartesian(p2)) / (s.Radius * s.Radius)
	return math.Acos(math.Min(1, math.Max(-1, c)))
}

// Interpolate walks the great circle from p1 to p2 and returns the point at
// fraction ∈ [0,1] of the way (slerp). Coincident points return p1.
func (s Sphere) Interpolate(p1, p2 Point, fraction float64) Point {
	omega := s.AngleBetween(p1, p2)
	sinOmega := math.Sin(omega)
	if sinOmega <= s.Epsilon {
		return p1
	}
	a := math.Sin((1-fraction)*omega) / sinOmega
	b := math.Sin(fraction*omega) / sinOmega
	v := s.ToCartesian(p1).Scale(a).Add(s.ToCartesian(p2).Scale(b))
	return s.FromCartesian(v)
}

// Gravity returns the normal gravity in m/s² at the given geodetic latitude
// in degrees, using the international gravity formula. altitude is accepted
// for callers that track height but does not enter the model.
func Gravity(latitude, altitude float64) float64 {
	c := math.Cos(2 * toRad(latitude))
	return 9.780327 * (1.0026454 - 0.0026512*c + 0.0000058*c*c)
}
