// Package sim drives synthesis runs end to end: synthesize, persist, and
// replay over NATS.
package sim

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	mmetrics "trip-synth/internal/metrics"
	"trip-synth/internal/route"
	"trip-synth/internal/synth"
)

// TripStore persists synthesized trips. db.Store implements it.
type TripStore interface {
	SaveTrip(ctx context.Context, routeID int64, trip *synth.Trip) error
}

// Request names the route to synthesize. RouteID links the trip to a stored
// route and may be zero.
type Request struct {
	Name     string
	RouteID  int64
	Segments []route.Segment
}

type Runner struct {
	synth   *synth.Synthesizer
	store   TripStore
	metrics *mmetrics.Collector
}

// NewRunner binds a synthesizer. store and metrics may be nil.
func NewRunner(s *synth.Synthesizer, store TripStore, metrics *mmetrics.Collector) *Runner {
	return &Runner{synth: s, store: store, metrics: metrics}
}

// Run synthesizes req, gives the trip a fresh id, and stores it when a
// store is configured.
func (r *Runner) Run(ctx context.Context, req Request) (*synth.Trip, error) {
	start := time.Now()
	trip, err := r.synth.Synthesize(ctx, req.Segments)
	if err != nil {
		if r.metrics != nil {
			r.metrics.SynthesisErrors.Inc()
		}
		return nil, err
	}
	trip.ID = uuid.NewString()
	trip.Name = req.Name
	if r.metrics != nil {
		r.metrics.TripsSynthesized.Inc()
		r.metrics.SynthesisDuration.Observe(time.Since(start).Seconds())
	}
	log.Printf("synthesized trip %s (%s): %d samples, %.1f m, %s",
		trip.ID, req.Name, len(trip.Samples), trip.Distance(), trip.Duration())

	if r.store != nil {
		if err := r.store.SaveTrip(ctx, req.RouteID, trip); err != nil {
			return trip, fmt.Errorf("store trip %s: %w", trip.ID, err)
		}
	}
	return trip, nil
}
