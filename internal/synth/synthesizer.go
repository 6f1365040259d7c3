// Package synth turns a sparse list of route segments into a dense,
// fixed-time-step trajectory with heading, speed, slope and tri-axial
// acceleration.
//
// A run is a fixed sequence of stages, each a transformation from one slice
// to the next:
//
//  1. Resample     - great-circle positions every dt along every segment
//  2. Kinematics   - bearing, distance and velocity between neighbours
//  3. enrich       - batched elevation lookup; failed batches are dropped
//  4. Slopes       - rise over run to the next sample
//  5. Accelerations - longitudinal, centripetal and gravity terms
package synth

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"trip-synth/internal/elevation"
	"trip-synth/internal/geo"
	"trip-synth/internal/route"
)

// ErrInvalidArgument is geo.ErrInvalidArgument, re-exported for callers that
// only deal with the synthesizer.
var ErrInvalidArgument = geo.ErrInvalidArgument

const (
	DefaultFrequency = 1.0
	DefaultBatchSize = 100
)

// Options are bound at construction and fixed for every run.
type Options struct {
	Frequency   float64 // samples per second
	BatchSize   int     // points per elevation request
	Concurrency int     // elevation requests in flight; 1 is sequential
	Sphere      geo.Sphere
}

func DefaultOptions() Options {
	return Options{
		Frequency:   DefaultFrequency,
		BatchSize:   DefaultBatchSize,
		Concurrency: 1,
		Sphere:      geo.WGS84,
	}
}

// Metrics receives synthesis events. A nil Metrics is allowed.
type Metrics interface {
	BatchRequested()
	BatchDropped(reason string)
	LookupObserve(d time.Duration)
	SamplesProduced(n int)
}

type Synthesizer struct {
	provider elevation.Provider
	opts     Options
	metrics  Metrics
}

// New validates opts and binds the elevation provider.
func New(provider elevation.Provider, opts Options, m Metrics) (*Synthesizer, error) {
	if provider == nil {
		return nil, &geo.ArgumentError{Name: "provider", Value: nil, Reason: "elevation provider is required"}
	}
	if !(opts.Frequency > 0) {
		return nil, &geo.ArgumentError{Name: "fs", Value: opts.Frequency, Reason: "sampling frequency must be positive"}
	}
	if opts.BatchSize <= 0 {
		return nil, &geo.ArgumentError{Name: "batchSize", Value: opts.BatchSize, Reason: "must be positive"}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Sphere.Radius <= 0 {
		opts.Sphere = geo.WGS84
	}
	if !(opts.Sphere.Epsilon > 0) {
		opts.Sphere.Epsilon = geo.Epsilon
	}
	return &Synthesizer{provider: provider, opts: opts, metrics: m}, nil
}

func (s *Synthesizer) Options() Options { return s.opts }

// Synthesize runs every stage over segs. Invalid input fails before any
// computation or provider call. Batches the provider fails are omitted from
// the trip; the run itself only fails on bad input or a cancelled context.
func (s *Synthesizer) Synthesize(ctx context.Context, segs []route.Segment) (*Trip, error) {
	if err := route.ValidateAll(segs); err != nil {
		return nil, err
	}
	dt := 1 / s.opts.Frequency
	sphere := s.opts.Sphere

	dense := slices.Collect(Resample(segs, dt, sphere))
	if len(dense) == 0 {
		return nil, &geo.ArgumentError{Name: "deltaTime", Value: 0, Reason: "route has no duration to sample"}
	}

	provisional := Kinematics(dense, segs[len(segs)-1].To, dt, sphere)
	enriched, err := s.enrich(ctx, provisional)
	if err != nil {
		return nil, err
	}
	if len(enriched) < len(provisional) {
		log.Printf("synth: %d of %d samples dropped by failed elevation batches", len(provisional)-len(enriched), len(provisional))
	}
	samples := Accelerations(Slopes(enriched, sphere.Epsilon), dt, sphere)

	if s.metrics != nil {
		s.metrics.SamplesProduced(len(samples))
	}
	return &Trip{Frequency: s.opts.Frequency, Samples: samples}, nil
}

// enrich replaces each sample's position and altitude with the provider's
// answer, one request per batch. Results are reassembled in batch order.
func (s *Synthesizer) enrich(ctx context.Context, samples []Sample) ([]Sample, error) {
	batches := slices.Collect(slices.Chunk(samples, s.opts.BatchSize))
	results := make([][]Sample, len(batches))

	g := new(errgroup.Group)
	g.SetLimit(s.opts.Concurrency)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.lookupBatch(ctx, i, batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("elevation enrichment: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("elevation enrichment: %w", err)
	}
	return slices.Concat(results...), nil
}

// lookupBatch returns the enriched batch, or nil if the provider failed it.
func (s *Synthesizer) lookupBatch(ctx context.Context, idx int, batch []Sample) []Sample {
	points := make([]geo.Point, len(batch))
	for i, smp := range batch {
		points[i] = smp.Position
	}

	if s.metrics != nil {
		s.metrics.BatchRequested()
	}
	start := time.Now()
	resp, err := s.provider.Lookup(ctx, points)
	if s.metrics != nil {
		s.metrics.LookupObserve(time.Since(start))
	}

	reason := "error"
	if err == nil {
		reason = "status"
		err = resp.Err(len(points))
	}
	if err != nil {
		log.Printf("synth: elevation batch %d (%d points) dropped: %v", idx, len(points), err)
		if s.metrics != nil {
			s.metrics.BatchDropped(reason)
		}
		return nil
	}

	out := slices.Clone(batch)
	for i, r := range resp.Results {
		out[i].Position = r.Location
		out[i].Altitude = r.Elevation
	}
	return out
}
