package synth

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
	"time"

	"trip-synth/internal/elevation"
	"trip-synth/internal/geo"
	"trip-synth/internal/route"
)

var equatorLeg = route.Segment{
	From:      geo.Point{Lat: 0, Lon: 0},
	To:        geo.Point{Lat: 0, Lon: 1},
	Velocity:  10,
	DeltaTime: 10,
}

// countingProvider hands out increasing elevations and can fail chosen batches.
type countingProvider struct {
	mu       sync.Mutex
	calls    int
	sizes    []int
	fail     map[int]bool
	returned map[float64]bool
}

func (p *countingProvider) Lookup(_ context.Context, pts []geo.Point) (elevation.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := p.calls
	p.calls++
	p.sizes = append(p.sizes, len(pts))
	if p.fail[call] {
		return elevation.Response{Status: "UNKNOWN_ERROR"}, nil
	}
	if p.returned == nil {
		p.returned = map[float64]bool{}
	}
	res := make([]elevation.Result, len(pts))
	for i, pt := range pts {
		alt := float64(call*1000 + i)
		p.returned[alt] = true
		res[i] = elevation.Result{Location: pt, Elevation: alt}
	}
	return elevation.Response{Status: elevation.StatusOK, Results: res}, nil
}

type recordingMetrics struct {
	mu        sync.Mutex
	requested int
	dropped   []string
	produced  int
}

func (m *recordingMetrics) BatchRequested() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested++
}

func (m *recordingMetrics) BatchDropped(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, reason)
}

func (m *recordingMetrics) LookupObserve(time.Duration) {}
func (m *recordingMetrics) SamplesProduced(n int)       { m.produced += n }

func newSynth(t *testing.T, p elevation.Provider, mutate func(*Options)) *Synthesizer {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(p, opts, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestResampleSingleSegment(t *testing.T) {
	dense := slices.Collect(Resample([]route.Segment{equatorLeg}, 1, geo.WGS84))
	if len(dense) != 10 {
		t.Fatalf("got %d dense points, want 10", len(dense))
	}
	if geo.WGS84.Haversine(dense[0], equatorLeg.From) > 1e-6 {
		t.Errorf("first point = %v, want %v", dense[0], equatorLeg.From)
	}
	for i := 1; i < len(dense); i++ {
		if dense[i].Lon <= dense[i-1].Lon {
			t.Fatalf("longitude not increasing at %d: %v <= %v", i, dense[i].Lon, dense[i-1].Lon)
		}
	}
}

func TestResampleIsRestartableAndConcatenates(t *testing.T) {
	second := route.Segment{From: equatorLeg.To, To: geo.Point{Lat: 1, Lon: 1}, DeltaTime: 4.2}
	seq := Resample([]route.Segment{equatorLeg, second}, 1, geo.WGS84)
	a := slices.Collect(seq)
	b := slices.Collect(seq)
	if len(a) != 15 || !slices.Equal(a, b) {
		t.Fatalf("runs differ or wrong length: %d vs %d", len(a), len(b))
	}
	if geo.WGS84.Haversine(a[10], second.From) > 1e-6 {
		t.Errorf("second segment should start at its From, got %v", a[10])
	}
}

func TestResampleFractionalFrequency(t *testing.T) {
	n := len(slices.Collect(Resample([]route.Segment{equatorLeg}, 1/3.0, geo.WGS84)))
	if n != 30 {
		t.Fatalf("got %d points at 3 Hz over 10 s, want 30", n)
	}
}

func TestKinematicsCoversSegmentDistance(t *testing.T) {
	dense := slices.Collect(Resample([]route.Segment{equatorLeg}, 1, geo.WGS84))
	samples := Kinematics(dense, equatorLeg.To, 1, geo.WGS84)
	if len(samples) != len(dense) {
		t.Fatalf("got %d samples for %d positions", len(samples), len(dense))
	}
	total := 0.0
	for _, s := range samples {
		total += s.DeltaDistance
		if math.Abs(s.Bearing-90) > 1e-6 {
			t.Errorf("bearing = %v, want 90", s.Bearing)
		}
		if math.Abs(s.Velocity-s.DeltaDistance) > 1e-9 {
			t.Errorf("velocity %v != distance %v at dt=1", s.Velocity, s.DeltaDistance)
		}
	}
	want := geo.WGS84.Haversine(equatorLeg.From, equatorLeg.To)
	if math.Abs(total-want) > 1e-3 {
		t.Fatalf("summed distance %v, want %v", total, want)
	}
}

func TestSlopes(t *testing.T) {
	in := []Sample{
		{DeltaDistance: 100, Altitude: 10},
		{DeltaDistance: 50, Altitude: 20},
		{DeltaDistance: 0, Altitude: 15},
		{DeltaDistance: 100, Altitude: 30},
	}
	out := Slopes(in, geo.Epsilon)
	if len(out) != len(in) {
		t.Fatalf("got %d samples, want %d: the last one is kept", len(out), len(in))
	}
	want := []float64{0.1, -0.1, 0, 0}
	for i := range want {
		if math.Abs(out[i].Slope-want[i]) > 1e-12 {
			t.Errorf("slope[%d] = %v, want %v", i, out[i].Slope, want[i])
		}
	}
	if in[0].Slope != 0 {
		t.Error("Slopes must not modify its input")
	}
}

func TestAccelerationsLengthsForAnyN(t *testing.T) {
	for n := 0; n <= 4; n++ {
		in := make([]Sample, n)
		for i := range in {
			in[i] = Sample{Position: geo.Point{Lat: 0, Lon: float64(i) * 0.001}, Velocity: float64(i + 1)}
		}
		out := Accelerations(in, 1, geo.WGS84)
		if len(out) != n {
			t.Fatalf("n=%d: got %d samples", n, len(out))
		}
		for _, s := range out {
			for k, a := range s.Acceleration {
				if math.IsNaN(a) || math.IsInf(a, 0) {
					t.Fatalf("n=%d: acceleration[%d] = %v", n, k, a)
				}
			}
		}
	}
}

func TestAccelerationsComponents(t *testing.T) {
	in := []Sample{
		{Position: geo.Point{Lat: 0, Lon: 0}, Velocity: 10},
		{Position: geo.Point{Lat: 0, Lon: 0.001}, Velocity: 12},
		{Position: geo.Point{Lat: 0, Lon: 0.002}, Velocity: 12},
	}
	out := Accelerations(in, 0.5, geo.WGS84)
	wantAx := []float64{(10 - 12) / 0.5, 0, 0}
	for i, s := range out {
		if math.Abs(s.Acceleration[0]-wantAx[i]) > 1e-12 {
			t.Errorf("ax[%d] = %v, want %v", i, s.Acceleration[0], wantAx[i])
		}
		if s.Acceleration[1] != 0 {
			t.Errorf("ay[%d] = %v, want 0 on a straight path", i, s.Acceleration[1])
		}
		if math.Abs(s.Acceleration[2]-9.780327) > 1e-9 {
			t.Errorf("az[%d] = %v", i, s.Acceleration[2])
		}
	}
}

func TestAccelerationsCentripetalSign(t *testing.T) {
	center := geo.Point{Lat: 0, Lon: 0}
	var in []Sample
	for _, b := range []float64{0, 30, 60, 90} {
		in = append(in, Sample{Position: geo.WGS84.Destination(center, 500, b), Velocity: 15})
	}
	out := Accelerations(in, 1, geo.WGS84)
	for i := 1; i < len(out)-1; i++ {
		ay := out[i].Acceleration[1]
		want := 15.0 * 15.0 / 500
		if ay <= 0 {
			t.Fatalf("clockwise turn ay[%d] = %v, want positive", i, ay)
		}
		if math.Abs(ay-want)/want > 0.02 {
			t.Errorf("ay[%d] = %v, want ~%v", i, ay, want)
		}
	}

	slices.Reverse(in)
	out = Accelerations(in, 1, geo.WGS84)
	if out[1].Acceleration[1] >= 0 {
		t.Fatalf("counter-clockwise turn ay = %v, want negative", out[1].Acceleration[1])
	}
}

func TestSynthesizeSingleSegment(t *testing.T) {
	s := newSynth(t, elevation.Flat{Elevation: 100}, nil)
	trip, err := s.Synthesize(context.Background(), []route.Segment{equatorLeg})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(trip.Samples) != 10 {
		t.Fatalf("got %d samples, want 10", len(trip.Samples))
	}
	want := geo.WGS84.Haversine(equatorLeg.From, equatorLeg.To)
	if math.Abs(trip.Distance()-want) > 1e-3 {
		t.Fatalf("distance %v, want %v", trip.Distance(), want)
	}
	if trip.Duration() != 10*time.Second {
		t.Errorf("duration = %v", trip.Duration())
	}
	for i, smp := range trip.Samples {
		if smp.Altitude != 100 || smp.Slope != 0 {
			t.Errorf("sample %d: altitude %v slope %v", i, smp.Altitude, smp.Slope)
		}
		if i > 0 && smp.Position.Lon <= trip.Samples[i-1].Position.Lon {
			t.Errorf("sample %d: longitude not increasing", i)
		}
		if math.Abs(smp.Acceleration[0]) > 1e-6 || smp.Acceleration[1] != 0 {
			t.Errorf("sample %d: constant straight motion has acceleration %v", i, smp.Acceleration)
		}
		if smp.Bearing < 0 || smp.Bearing >= 360 {
			t.Errorf("sample %d: bearing %v", i, smp.Bearing)
		}
	}
}

func TestSynthesizeOneSample(t *testing.T) {
	seg := equatorLeg
	seg.DeltaTime = 0.5
	trip, err := newSynth(t, elevation.Flat{}, nil).Synthesize(context.Background(), []route.Segment{seg})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(trip.Samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(trip.Samples))
	}
	if a := trip.Samples[0].Acceleration; math.IsNaN(a[1]) || a[2] == 0 {
		t.Fatalf("acceleration = %v", a)
	}
}

func TestSynthesizeStationarySegmentWithoutEpsilon(t *testing.T) {
	stop := geo.Point{Lat: 45, Lon: 7}
	seg := route.Segment{From: stop, To: stop, DeltaTime: 3}
	s := newSynth(t, elevation.Flat{Elevation: 250}, func(o *Options) {
		o.Sphere = geo.Sphere{Radius: 6371000}
	})
	if s.Options().Sphere.Epsilon != geo.Epsilon {
		t.Fatalf("epsilon = %v, want %v", s.Options().Sphere.Epsilon, geo.Epsilon)
	}
	trip, err := s.Synthesize(context.Background(), []route.Segment{seg})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(trip.Samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(trip.Samples))
	}
	for i, smp := range trip.Samples {
		if smp.Position != stop {
			t.Errorf("sample %d: position %v, want %v", i, smp.Position, stop)
		}
		vals := []float64{smp.Velocity, smp.DeltaDistance, smp.Slope, smp.Bearing}
		vals = append(vals, smp.Acceleration[:]...)
		for _, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("sample %d: non-finite value in %+v", i, smp)
			}
		}
		if smp.Velocity != 0 || smp.Slope != 0 || smp.Acceleration[1] != 0 {
			t.Errorf("sample %d: stationary sample moved: %+v", i, smp)
		}
	}
}

func TestSynthesizeDropsFailedBatches(t *testing.T) {
	p := &countingProvider{fail: map[int]bool{1: true}}
	m := &recordingMetrics{}
	opts := DefaultOptions()
	s, err := New(p, opts, m)
	if err != nil {
		t.Fatal(err)
	}
	seg := equatorLeg
	seg.DeltaTime = 250

	trip, err := s.Synthesize(context.Background(), []route.Segment{seg})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !slices.Equal(p.sizes, []int{100, 100, 50}) {
		t.Fatalf("batch sizes = %v", p.sizes)
	}
	if len(trip.Samples) != 150 {
		t.Fatalf("got %d samples, want 150", len(trip.Samples))
	}
	for i, smp := range trip.Samples {
		if !p.returned[smp.Altitude] {
			t.Fatalf("sample %d altitude %v was never returned by the provider", i, smp.Altitude)
		}
		if smp.Altitude >= 1000 && smp.Altitude < 2000 {
			t.Fatalf("sample %d carries altitude from the failed batch", i)
		}
	}
	if m.requested != 3 || len(m.dropped) != 1 || m.produced != 150 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestSynthesizeConcurrentBatchesKeepOrder(t *testing.T) {
	seg := equatorLeg
	seg.DeltaTime = 730
	seq, err := newSynth(t, elevation.Flat{Elevation: 5}, nil).Synthesize(context.Background(), []route.Segment{seg})
	if err != nil {
		t.Fatal(err)
	}
	par, err := newSynth(t, elevation.Flat{Elevation: 5}, func(o *Options) { o.Concurrency = 4; o.BatchSize = 64 }).
		Synthesize(context.Background(), []route.Segment{seg})
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(seq.Samples, par.Samples) {
		t.Fatal("parallel enrichment changed the trip")
	}
}

func TestSynthesizeProviderErrorDropsBatch(t *testing.T) {
	p := elevation.Func(func(context.Context, []geo.Point) (elevation.Response, error) {
		return elevation.Response{}, errors.New("connection refused")
	})
	trip, err := newSynth(t, p, nil).Synthesize(context.Background(), []route.Segment{equatorLeg})
	if err != nil {
		t.Fatalf("provider failures must not abort synthesis: %v", err)
	}
	if len(trip.Samples) != 0 {
		t.Fatalf("got %d samples", len(trip.Samples))
	}
}

func TestSynthesizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newSynth(t, elevation.Flat{}, nil).Synthesize(ctx, []route.Segment{equatorLeg})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestInvalidArguments(t *testing.T) {
	for _, fs := range []float64{0, -1, math.NaN()} {
		opts := DefaultOptions()
		opts.Frequency = fs
		_, err := New(elevation.Flat{}, opts, nil)
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("fs=%v: err = %v", fs, err)
		}
		var ae *geo.ArgumentError
		if !errors.As(err, &ae) || ae.Name != "fs" {
			t.Errorf("fs=%v: error should name fs, got %v", fs, err)
		}
	}

	p := &countingProvider{}
	s := newSynth(t, p, nil)
	for name, segs := range map[string][]route.Segment{
		"empty":   nil,
		"bad lat": {{From: geo.Point{Lat: 100}, To: geo.Point{}, DeltaTime: 1}},
		"no time": {{From: geo.Point{}, To: geo.Point{Lon: 1}}},
	} {
		trip, err := s.Synthesize(context.Background(), segs)
		if !errors.Is(err, ErrInvalidArgument) || trip != nil {
			t.Errorf("%s: trip=%v err=%v", name, trip, err)
		}
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times for invalid input", p.calls)
	}

	if _, err := New(nil, DefaultOptions(), nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil provider: err = %v", err)
	}
}

func TestDeriveAndPad(t *testing.T) {
	if got := pad([]int{1, 2, 3}, 1, 2); !slices.Equal(got, []int{1, 1, 2, 3, 3, 3}) {
		t.Errorf("pad = %v", got)
	}
	if pad([]int(nil), 1, 1) != nil {
		t.Error("pad of empty should be nil")
	}
	sums := derive([]int{1, 2, 3}, 1, 1, func(w []int) int { return w[0] + w[1] + w[2] })
	if !slices.Equal(sums, []int{4, 6, 8}) {
		t.Errorf("derive = %v", sums)
	}
	one := derive([]int{7}, 1, 1, func(w []int) int { return len(w) })
	if !slices.Equal(one, []int{3}) {
		t.Errorf("derive single = %v", one)
	}
	var n int
	for range windows([]int{1, 2}, 3) {
		n++
	}
	if n != 0 {
		t.Errorf("windows larger than input yielded %d", n)
	}
}
