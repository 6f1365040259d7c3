package geo

import (
	"errors"
	"math"
	"testing"
)

const tol = 1e-6

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func samePoint(a, b Point, eps float64) bool {
	return near(a.Lat, b.Lat, eps) && near(a.Lon, b.Lon, eps)
}

var samplePoints = []Point{
	{0, 0},
	{0, 1},
	{45.5, -73.6},
	{-33.9, 151.2},
	{51.4778, -0.0015},
	{89.9, 10},
	{-89.9, -170},
	{10, 179.9},
	{10, -179.9},
}

func TestMeanRadius(t *testing.T) {
	if !near(WGS84.Radius, 6371008.771415, 1e-5) {
		t.Fatalf("radius = %v", WGS84.Radius)
	}
}

func TestNewPointValidates(t *testing.T) {
	if _, err := NewPoint(12.5, -45); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range []struct{ lat, lon float64 }{{91, 0}, {-90.1, 0}, {0, 180.5}, {0, -181}, {math.NaN(), 0}} {
		_, err := NewPoint(c.lat, c.lon)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("NewPoint(%v, %v) err = %v, want ErrInvalidArgument", c.lat, c.lon, err)
		}
		var ae *ArgumentError
		if !errors.As(err, &ae) || ae.Name == "" {
			t.Errorf("NewPoint(%v, %v) should name the rejected argument", c.lat, c.lon)
		}
	}
}

func TestHaversineIdentityAndSymmetry(t *testing.T) {
	for _, p := range samplePoints {
		if d := WGS84.Haversine(p, p); d != 0 {
			t.Errorf("Haversine(%v,%v) = %v, want 0", p, p, d)
		}
	}
	for _, p1 := range samplePoints {
		for _, p2 := range samplePoints {
			d12 := WGS84.Haversine(p1, p2)
			d21 := WGS84.Haversine(p2, p1)
			if !near(d12, d21, 1e-6) {
				t.Errorf("asymmetric: %v vs %v", d12, d21)
			}
		}
	}
}

func TestHaversineOneDegreeOnEquator(t *testing.T) {
	want := WGS84.Radius * math.Pi / 180
	got := WGS84.Haversine(Point{0, 0}, Point{0, 1})
	if !near(got, want, 1e-6) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBearingRangeAndCardinals(t *testing.T) {
	origin := Point{0, 0}
	cases := []struct {
		to   Point
		want float64
	}{
		{Point{1, 0}, 0},
		{Point{0, 1}, 90},
		{Point{-1, 0}, 180},
		{Point{0, -1}, 270},
	}
	for _, c := range cases {
		if got := Bearing(origin, c.to); !near(got, c.want, 1e-9) {
			t.Errorf("Bearing(%v, %v) = %v, want %v", origin, c.to, got, c.want)
		}
	}
	for _, p1 := range samplePoints {
		for _, p2 := range samplePoints {
			b := Bearing(p1, p2)
			if b < 0 || b >= 360 {
				t.Errorf("Bearing(%v, %v) = %v out of [0,360)", p1, p2, b)
			}
		}
	}
}

func TestNormalizeBearing(t *testing.T) {
	cases := map[float64]float64{-90: 270, 360: 0, 720.5: 0.5, -1e-20: 0, 359.5: 359.5}
	for in, want := range cases {
		got := NormalizeBearing(in)
		if got < 0 || got >= 360 || !near(got, want, 1e-9) {
			t.Errorf("NormalizeBearing(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestDestinationInvertsDistanceAndBearing(t *testing.T) {
	origin := Point{45.5, -73.6}
	for _, b := range []float64{0, 37, 90, 181, 300} {
		dst := WGS84.Destination(origin, 12_345, b)
		if d := WGS84.Haversine(origin, dst); !near(d, 12_345, 1e-3) {
			t.Errorf("bearing %v: distance %v", b, d)
		}
		if got := Bearing(origin, dst); !near(got, b, 1e-6) && !near(math.Abs(got-b), 360, 1e-6) {
			t.Errorf("bearing %v: got %v", b, got)
		}
	}
}

func TestDestinationCrossesAntimeridian(t *testing.T) {
	dst := WGS84.Destination(Point{0, 179.99}, 10_000, 90)
	if dst.Lon > 180 || dst.Lon < -180 {
		t.Fatalf("longitude not normalized: %v", dst.Lon)
	}
	if dst.Lon > 0 {
		t.Fatalf("expected wrap to negative longitude, got %v", dst.Lon)
	}
}

func TestDestinationAfter(t *testing.T) {
	origin := Point{0, 0}
	got, err := WGS84.DestinationAfter(origin, 10, 100, 90)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := WGS84.Destination(origin, 1000, 90)
	if !samePoint(got, want, 1e-12) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := WGS84.DestinationAfter(origin, 10, 1e-7, 90); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("tiny time: err = %v", err)
	}
	if _, err := WGS84.DestinationAfter(origin, 10, 0, 90); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("zero time: err = %v", err)
	}
	if _, err := WGS84.DestinationAfter(origin, -1, 10, 90); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative velocity: err = %v", err)
	}
}

func TestCrossTrackDistanceSign(t *testing.T) {
	from, to := Point{0, 0}, Point{0, 1}
	left := Point{0.01, 0.5}
	right := Point{-0.01, 0.5}
	on := Point{0, 0.5}

	if d := WGS84.CrossTrackDistance(left, from, to); d >= 0 {
		t.Errorf("left point: %v, want negative", d)
	}
	if d := WGS84.CrossTrackDistance(right, from, to); d <= 0 {
		t.Errorf("right point: %v, want positive", d)
	}
	if d := WGS84.CrossTrackDistance(on, from, to); !near(d, 0, 1e-6) {
		t.Errorf("on-path point: %v, want 0", d)
	}
	want := WGS84.Haversine(on, right)
	if d := WGS84.CrossTrackDistance(right, from, to); !near(d, want, 1e-3) {
		t.Errorf("magnitude %v, want %v", d, want)
	}
}

func TestCartesianRoundTrip(t *testing.T) {
	for _, p := range samplePoints {
		v := WGS84.ToCartesian(p)
		if !near(v.Norm(), WGS84.Radius, 1e-6) {
			t.Errorf("%v projects off sphere: |v| = %v", p, v.Norm())
		}
		back := WGS84.FromCartesian(v)
		if !samePoint(back, p, 1e-9) {
			t.Errorf("round trip %v -> %v", p, back)
		}
	}
}

func TestMidpoint(t *testing.T) {
	m := WGS84.Midpoint(Point{0, 0}, Point{0, 2})
	if !samePoint(m, Point{0, 1}, 1e-9) {
		t.Fatalf("midpoint = %v", m)
	}
	p1, p2 := Point{45.5, -73.6}, Point{46.8, -71.2}
	m = WGS84.Midpoint(p1, p2)
	if !near(WGS84.Haversine(p1, m), WGS84.Haversine(m, p2), 1e-3) {
		t.Fatalf("midpoint not equidistant")
	}
}

func TestAngleBetween(t *testing.T) {
	got := WGS84.AngleBetween(Point{0, 0}, Point{0, 90})
	if !near(got, math.Pi/2, 1e-12) {
		t.Fatalf("got %v", got)
	}
	if got := WGS84.AngleBetween(Point{10, 10}, Point{10, 10}); got != 0 {
		t.Fatalf("coincident angle = %v", got)
	}
}

func TestInterpolateEndpoints(t *testing.T) {
	for _, p1 := range samplePoints {
		for _, p2 := range samplePoints {
			if WGS84.AngleBetween(p1, p2) > math.Pi-1e-3 {
				continue
			}
			if got := WGS84.Interpolate(p1, p2, 0); !samePoint(got, p1, tol) {
				t.Errorf("fraction 0: %v, want %v", got, p1)
			}
			if got := WGS84.Interpolate(p1, p2, 1); !samePoint(got, p2, tol) {
				t.Errorf("fraction 1: %v, want %v", got, p2)
			}
		}
	}
}

func TestInterpolateBisection(t *testing.T) {
	p1, p2 := Point{10, 20}, Point{30, 60}
	a, b := p1, p2
	total := WGS84.AngleBetween(a, b)
	for i := 1; i <= 5; i++ {
		mid := WGS84.Interpolate(a, b, 0.5)
		want := total / math.Pow(2, float64(i))
		if got := WGS84.AngleBetween(a, mid); !near(got, want, 1e-9) {
			t.Fatalf("step %d: angle %v, want %v", i, got, want)
		}
		if got := WGS84.AngleBetween(mid, b); !near(got, want, 1e-9) {
			t.Fatalf("step %d: far half %v, want %v", i, got, want)
		}
		b = mid
	}
}

func TestInterpolateCoincidentPoints(t *testing.T) {
	p := Point{12.34, 56.78}
	for _, s := range []Sphere{WGS84, {Radius: 6371000}} {
		for _, f := range []float64{0, 0.3, 1} {
			got := s.Interpolate(p, p, f)
			if got != p {
				t.Errorf("epsilon %v, fraction %v: %v", s.Epsilon, f, got)
			}
		}
	}
}

func TestGravity(t *testing.T) {
	if g := Gravity(0, 0); !near(g, 9.780327, 1e-9) {
		t.Errorf("equator: %v", g)
	}
	if g := Gravity(90, 0); !near(g, 9.780327*1.0053024, 1e-9) {
		t.Errorf("pole: %v", g)
	}
	if Gravity(45, 0) <= Gravity(0, 0) || Gravity(45, 0) >= Gravity(90, 0) {
		t.Errorf("gravity should increase with latitude")
	}
	if Gravity(-30, 0) != Gravity(30, 0) {
		t.Errorf("gravity should be symmetric about the equator")
	}
	if Gravity(40, 2500) != Gravity(40, 0) {
		t.Errorf("altitude should not change normal gravity")
	}
}

func TestPathLength(t *testing.T) {
	pts := []Point{{0, 0}, {0, 0.5}, {0, 1}}
	if got, want := WGS84.PathLength(pts), WGS84.Haversine(pts[0], pts[2]); !near(got, want, 1e-6) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if WGS84.PathLength(nil) != 0 {
		t.Fatal("empty path should be 0")
	}
}
