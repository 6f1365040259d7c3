package sim

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	mmetrics "trip-synth/internal/metrics"
	"trip-synth/internal/publisher"
	"trip-synth/internal/synth"
)

// Publisher receives replayed samples.
type Publisher interface {
	PublishSample(msg publisher.SampleMessage) error
}

const minReplayInterval = time.Millisecond

// Manager replays synthesized trips in real time, one goroutine per trip.
type Manager struct {
	pub             Publisher
	speedMultiplier float64
	metrics         *mmetrics.Collector

	mu      sync.Mutex
	running map[string]context.CancelFunc // tripID -> cancel
	wg      sync.WaitGroup
}

func NewManager(pub Publisher, speedMultiplier float64, metrics *mmetrics.Collector) *Manager {
	if !(speedMultiplier > 0) {
		speedMultiplier = 1
	}
	return &Manager{
		pub:             pub,
		speedMultiplier: speedMultiplier,
		metrics:         metrics,
		running:         make(map[string]context.CancelFunc),
	}
}

// ReplayInterval is the wall-clock time between published samples.
func ReplayInterval(trip *synth.Trip, speedMultiplier float64) time.Duration {
	d := time.Duration(trip.Step() / speedMultiplier * float64(time.Second))
	return max(d, minReplayInterval)
}

// Start replays trip in the background. A trip already being replayed is
// ignored and Start reports false.
func (m *Manager) Start(parent context.Context, trip *synth.Trip) bool {
	m.mu.Lock()
	if _, exists := m.running[trip.ID]; exists {
		m.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(parent)
	m.running[trip.ID] = cancel
	m.wg.Add(1)
	if m.metrics != nil {
		m.metrics.ActiveReplays.Set(float64(len(m.running)))
	}
	m.mu.Unlock()

	log.Printf("replaying trip %s: %d samples every %s", trip.ID, len(trip.Samples), ReplayInterval(trip, m.speedMultiplier))
	go func() {
		defer m.wg.Done()
		if err := m.Replay(ctx, trip); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("trip %s replay error: %v", trip.ID, err)
		}
		m.mu.Lock()
		delete(m.running, trip.ID)
		if m.metrics != nil {
			m.metrics.ActiveReplays.Set(float64(len(m.running)))
		}
		m.mu.Unlock()
		cancel()
	}()
	return true
}

// Replay publishes every sample of trip in order, one per tick, and returns
// when the last one is out or ctx is done. Publish failures are logged and
// the replay carries on.
func (m *Manager) Replay(ctx context.Context, trip *synth.Trip) error {
	if len(trip.Samples) == 0 {
		return nil
	}
	total := trip.Distance()
	tick := time.NewTicker(ReplayInterval(trip, m.speedMultiplier))
	defer tick.Stop()

	travelled := 0.0
	now := time.Now()
	for i, s := range trip.Samples {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now = <-tick.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		progress := 0.0
		if total > 0 {
			progress = travelled / total
		}
		travelled += s.DeltaDistance

		msg := publisher.SampleMessage{
			TripID:       trip.ID,
			Name:         trip.Name,
			Seq:          i,
			Timestamp:    now,
			Lat:          s.Position.Lat,
			Lon:          s.Position.Lon,
			Altitude:     s.Altitude,
			Bearing:      s.Bearing,
			SpeedMps:     s.Velocity,
			Slope:        s.Slope,
			Acceleration: s.Acceleration,
			Progress:     progress,
		}
		if err := m.pub.PublishSample(msg); err != nil {
			log.Printf("publish error for %s: %v", trip.ID, err)
		}
	}
	log.Printf("finished trip %s at %s", trip.ID, time.Now().Format(time.RFC3339))
	return nil
}

// Running returns the number of trips currently being replayed.
func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.running)
}

// Wait blocks until every started replay has finished.
func (m *Manager) Wait() { m.wg.Wait() }

// Stop cancels every replay and waits for them to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	for _, cancel := range m.running {
		cancel()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
