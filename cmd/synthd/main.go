package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"trip-synth/internal/api"
	"trip-synth/internal/app"
	"trip-synth/internal/config"
	"trip-synth/internal/db"
	"trip-synth/internal/sim"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Override listen address (e.g. :8080)")
	release := flag.Bool("release", false, "Run gin in release mode")
	flag.Parse()
	if *release {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics are always served on the API router; METRICS_ADDR adds a dedicated listener
	mcol := app.ServeMetrics(ctx, cfg)

	var store api.Store
	sqlDB, err := app.OpenDB(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if sqlDB != nil {
		defer sqlDB.Close()
		store = db.Store{DB: sqlDB}
	} else {
		log.Printf("persistence disabled")
	}

	var mgr *sim.Manager
	if cfg.Replay {
		pub, err := app.ConnectNATS(cfg, mcol)
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
		mgr = sim.NewManager(pub, cfg.SpeedMultiplier, mcol)
	}

	h := api.NewHandler(app.NewProvider(cfg), app.SynthOptions(cfg), store, mgr, mcol)
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.NewRouter(h, mcol),
	}

	go func() {
		log.Printf("Server starting on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if mgr != nil {
		mgr.Stop()
	}
	log.Println("shutdown complete")
}
