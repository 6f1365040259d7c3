package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	TripsSynthesized prometheus.Counter
	SynthesisErrors  prometheus.Counter
	SamplesProduced  prometheus.Counter
	ActiveReplays    prometheus.Gauge

	ElevationBatches *prometheus.CounterVec // outcome label: requested|dropped_error|dropped_status

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	SynthesisDuration prometheus.Histogram
	LookupDuration    prometheus.Histogram
	PublishDuration   prometheus.Histogram

	SampleFrequency prometheus.Gauge // Hz
	SpeedMultiplier prometheus.Gauge
}

func NewCollector(sampleFrequency, speedMultiplier float64) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TripsSynthesized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synth_trips_total",
			Help: "Total trips synthesized.",
		}),
		SynthesisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synth_errors_total",
			Help: "Total synthesis runs that failed.",
		}),
		SamplesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synth_samples_total",
			Help: "Total samples emitted by the synthesizer.",
		}),
		ActiveReplays: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synth_active_replays",
			Help: "Number of trips currently being replayed.",
		}),
		ElevationBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_elevation_batches_total",
			Help: "Elevation batches by outcome.",
		}, []string{"outcome"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synth_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synth_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synth_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		SynthesisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "synth_duration_seconds",
			Help:    "Wall time of one synthesis run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		LookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "synth_elevation_lookup_duration_seconds",
			Help:    "Duration of one elevation batch request.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "synth_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		SampleFrequency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synth_sample_frequency_hz",
			Help: "Configured sampling frequency.",
		}),
		SpeedMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synth_speed_multiplier",
			Help: "Replay speed multiplier.",
		}),
	}

	reg.MustRegister(
		c.TripsSynthesized, c.SynthesisErrors, c.SamplesProduced, c.ActiveReplays,
		c.ElevationBatches,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.SynthesisDuration, c.LookupDuration, c.PublishDuration,
		c.SampleFrequency, c.SpeedMultiplier,
	)

	c.SampleFrequency.Set(sampleFrequency)
	c.SpeedMultiplier.Set(speedMultiplier)

	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

// Synth adapts the collector to the synthesizer's event hooks.
func (c *Collector) Synth() *SynthMetrics { return &SynthMetrics{c: c} }

// Publisher adapts the collector to the NATS publisher's event hooks.
func (c *Collector) Publisher() *PublisherMetrics { return &PublisherMetrics{c: c} }

type SynthMetrics struct{ c *Collector }

func (s *SynthMetrics) BatchRequested() { s.c.ElevationBatches.WithLabelValues("requested").Inc() }
func (s *SynthMetrics) BatchDropped(reason string) {
	s.c.ElevationBatches.WithLabelValues("dropped_" + reason).Inc()
}
func (s *SynthMetrics) LookupObserve(d time.Duration) { s.c.LookupDuration.Observe(d.Seconds()) }
func (s *SynthMetrics) SamplesProduced(n int)         { s.c.SamplesProduced.Add(float64(n)) }

type PublisherMetrics struct{ c *Collector }

func (p *PublisherMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *PublisherMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *PublisherMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *PublisherMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
