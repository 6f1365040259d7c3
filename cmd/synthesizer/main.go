package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"trip-synth/internal/app"
	"trip-synth/internal/config"
	"trip-synth/internal/db"
	"trip-synth/internal/export"
	"trip-synth/internal/geo"
	"trip-synth/internal/route"
	"trip-synth/internal/sim"
	"trip-synth/internal/synth"
)

func main() {
	// Load configuration from .env and environment; flags override
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	routePath := flag.String("route", "", "Route file (.json, .yaml, .yml)")
	routeName := flag.String("stored", cfg.RouteName, "Synthesize the latest stored route whose name matches")
	saveRoute := flag.Bool("save-route", false, "Store the route file in the database before synthesis")
	name := flag.String("name", "", "Trip name, also the output file name (default: route name)")
	flag.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Output directory (must exist)")
	flag.StringVar(&cfg.Formats, "formats", cfg.Formats, "Comma separated output formats: kml, csv, geojson")
	flag.Float64Var(&cfg.SampleFrequency, "fs", cfg.SampleFrequency, "Sampling frequency in Hz")
	flag.StringVar(&cfg.ElevationProvider, "provider", cfg.ElevationProvider, "Elevation provider: http or flat")
	flag.BoolVar(&cfg.Replay, "replay", cfg.Replay, "Replay the trip over NATS after synthesis")
	flag.Float64Var(&cfg.SpeedMultiplier, "speed", cfg.SpeedMultiplier, "Replay speed multiplier")
	flag.Parse()

	if err := run(cfg, *routePath, *routeName, *name, *saveRoute); err != nil {
		fmt.Fprintf(os.Stderr, "synthesizer: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, routePath, routeName, name string, saveRoute bool) error {
	if routePath == "" && routeName == "" {
		return fmt.Errorf("one of -route or -stored is required")
	}
	formats, err := export.ParseFormats(cfg.Formats)
	if err != nil {
		return err
	}
	// Fail before any work if artifacts could not be written
	if err := export.CheckDir(cfg.OutputDir); err != nil {
		return err
	}

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mcol := app.ServeMetrics(ctx, cfg)

	sqlDB, err := app.OpenDB(ctx, cfg)
	if err != nil {
		return err
	}
	var store sim.TripStore
	if sqlDB != nil {
		defer sqlDB.Close()
		store = db.Store{DB: sqlDB}
	}

	req, err := acquire(ctx, sqlDB, routePath, routeName, saveRoute)
	if err != nil {
		return err
	}
	if name != "" {
		req.Name = name
	}

	s, err := synth.New(app.NewProvider(cfg), app.SynthOptions(cfg), app.SynthMetrics(mcol))
	if err != nil {
		return err
	}
	trip, err := sim.NewRunner(s, store, mcol).Run(ctx, req)
	if err != nil {
		return err
	}

	paths, err := export.WriteFiles(cfg.OutputDir, fileName(trip), trip, formats)
	if err != nil {
		return err
	}
	for _, p := range paths {
		log.Printf("wrote %s", p)
	}

	if cfg.Replay {
		pub, err := app.ConnectNATS(cfg, mcol)
		if err != nil {
			return err
		}
		defer pub.Close()
		mgr := sim.NewManager(pub, cfg.SpeedMultiplier, mcol)
		if err := mgr.Replay(ctx, trip); err != nil {
			return fmt.Errorf("replay: %w", err)
		}
	}
	return nil
}

// acquire loads the route from a file or, by name, from the database.
func acquire(ctx context.Context, sqlDB *sql.DB, routePath, routeName string, saveRoute bool) (sim.Request, error) {
	if routePath != "" {
		r, err := route.LoadFile(routePath)
		if err != nil {
			return sim.Request{}, err
		}
		log.Printf("loaded route %q: %d segments, %.1f m", r.Name, len(r.Segments), geo.WGS84.PathLength(route.Points(r.Segments)))
		req := sim.Request{Name: r.Name, Segments: r.Segments}
		if saveRoute {
			if sqlDB == nil {
				return sim.Request{}, fmt.Errorf("-save-route needs a database")
			}
			if req.RouteID, err = db.SaveRoute(ctx, sqlDB, r.Name, r.Segments); err != nil {
				return sim.Request{}, err
			}
			log.Printf("stored route %q as %d", r.Name, req.RouteID)
		}
		return req, nil
	}

	if sqlDB == nil {
		return sim.Request{}, fmt.Errorf("-stored needs a database (set DATABASE_URL or PGDATABASE)")
	}
	id, err := db.ResolveLatestRoute(ctx, sqlDB, routeName)
	if err != nil {
		return sim.Request{}, err
	}
	segs, err := db.FetchRouteSegments(ctx, sqlDB, id)
	if err != nil {
		return sim.Request{}, err
	}
	log.Printf("using stored route %d for %q", id, routeName)
	return sim.Request{Name: routeName, RouteID: id, Segments: segs}, nil
}

// fileName is the trip name made safe for the output directory, or the ID.
func fileName(trip *synth.Trip) string {
	if name := export.SafeName(trip.Name); name != "" {
		return name
	}
	return trip.ID
}
