package app

import (
	"context"
	"testing"

	"trip-synth/internal/config"
)

func TestServeMetricsWithoutListener(t *testing.T) {
	cfg := &config.Config{SampleFrequency: 2, SpeedMultiplier: 1}
	mcol := ServeMetrics(context.Background(), cfg)
	if mcol == nil {
		t.Fatal("collector must exist even without METRICS_ADDR")
	}
	if SynthMetrics(mcol) == nil {
		t.Error("synth hooks missing")
	}
}

func TestSynthOptionsUseConfiguredFrequency(t *testing.T) {
	cfg := &config.Config{SampleFrequency: 4, ElevationBatchSize: 32, ElevationConcurrency: 2}
	opts := SynthOptions(cfg)
	if opts.Frequency != 4 || opts.BatchSize != 32 || opts.Concurrency != 2 {
		t.Fatalf("opts = %+v", opts)
	}
	if opts.Sphere.Radius <= 0 || opts.Sphere.Epsilon <= 0 {
		t.Errorf("sphere = %+v", opts.Sphere)
	}
}
