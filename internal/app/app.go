// Package app wires configuration into the components both binaries share.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"trip-synth/internal/config"
	"trip-synth/internal/db"
	"trip-synth/internal/elevation"
	"trip-synth/internal/geo"
	mmetrics "trip-synth/internal/metrics"
	"trip-synth/internal/publisher"
	"trip-synth/internal/synth"
)

// NewProvider builds the configured elevation provider.
func NewProvider(cfg *config.Config) elevation.Provider {
	if cfg.ElevationProvider == "flat" {
		log.Printf("elevation: flat %.1f m", cfg.FlatElevation)
		return elevation.Flat{Elevation: cfg.FlatElevation}
	}
	c := elevation.NewClient(cfg.ElevationURL, cfg.ElevationAPIKey, cfg.ElevationTimeout)
	log.Printf("elevation: %s", c.Endpoint())
	return c
}

func SynthOptions(cfg *config.Config) synth.Options {
	return synth.Options{
		Frequency:   cfg.SampleFrequency,
		BatchSize:   cfg.ElevationBatchSize,
		Concurrency: cfg.ElevationConcurrency,
		Sphere:      geo.WGS84,
	}
}

// OpenDB connects to the configured database, switching to DB_NAME when set,
// and makes sure the schema exists. It returns nil when persistence is off.
func OpenDB(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	dsn := cfg.DatabaseURL
	if cfg.DBName != "" {
		var err error
		if dsn, err = db.WithDBName(dsn, cfg.DBName); err != nil {
			return nil, fmt.Errorf("compose DSN: %w", err)
		}
		log.Printf("Using database %q", cfg.DBName)
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.Ping(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := db.EnsureSchema(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// ServeMetrics builds the collector. When METRICS_ADDR is set it is also
// served on a dedicated listener that stops when ctx is done.
func ServeMetrics(ctx context.Context, cfg *config.Config) *mmetrics.Collector {
	mcol := mmetrics.NewCollector(cfg.SampleFrequency, cfg.SpeedMultiplier)
	if cfg.MetricsAddr == "" {
		return mcol
	}
	srv := mcol.Serve(cfg.MetricsAddr)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return mcol
}

// ConnectNATS opens the replay publisher.
func ConnectNATS(cfg *config.Config, mcol *mmetrics.Collector) (*publisher.NATSPublisher, error) {
	var m publisher.PublisherMetrics
	if mcol != nil {
		m = mcol.Publisher()
	}
	pub, err := publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, m)
	if err != nil {
		return nil, fmt.Errorf("nats: %w", err)
	}
	return pub, nil
}

// SynthMetrics returns the collector's synthesizer hooks, or nil.
func SynthMetrics(mcol *mmetrics.Collector) synth.Metrics {
	if mcol == nil {
		return nil
	}
	return mcol.Synth()
}
