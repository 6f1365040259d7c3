package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Empty DatabaseURL disables persistence.
	DatabaseURL string
	DBName      string
	RouteName   string

	NATSURL           string
	NATSSubjectPrefix string
	LogNATSSubjects   bool
	Replay            bool
	SpeedMultiplier   float64

	MetricsAddr string
	ListenAddr  string
	OutputDir   string
	Formats     string

	SampleFrequency      float64
	ElevationProvider    string // "http" or "flat"
	ElevationURL         string
	ElevationAPIKey      string
	ElevationTimeout     time.Duration
	ElevationBatchSize   int
	ElevationConcurrency int
	FlatElevation        float64
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars when PGDATABASE is set
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		if db := os.Getenv("PGDATABASE"); db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	}
	cfg.DatabaseURL = dsn
	cfg.DBName = strings.TrimSpace(os.Getenv("DB_NAME"))
	cfg.RouteName = strings.TrimSpace(os.Getenv("ROUTE_NAME"))

	cfg.NATSURL = getenvDefault("NATS_URL", "nats://127.0.0.1:4222")
	cfg.NATSSubjectPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "trips")
	cfg.LogNATSSubjects = parseBool(os.Getenv("LOG_NATS_SUBJECTS"))
	cfg.Replay = parseBool(os.Getenv("REPLAY"))

	var err error
	if cfg.SpeedMultiplier, err = positiveFloat("SPEED_MULTIPLIER", 1.0); err != nil {
		return nil, err
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":8080")
	cfg.OutputDir = getenvDefault("OUTPUT_DIR", ".")
	cfg.Formats = getenvDefault("OUTPUT_FORMATS", "kml,csv")

	if cfg.SampleFrequency, err = positiveFloat("SAMPLE_FREQUENCY_HZ", 1.0); err != nil {
		return nil, err
	}

	cfg.ElevationProvider = strings.ToLower(getenvDefault("ELEVATION_PROVIDER", "http"))
	switch cfg.ElevationProvider {
	case "http", "flat":
	default:
		return nil, fmt.Errorf("invalid ELEVATION_PROVIDER: %q", cfg.ElevationProvider)
	}
	cfg.ElevationURL = os.Getenv("ELEVATION_URL")
	cfg.ElevationAPIKey = os.Getenv("ELEVATION_API_KEY")

	if v := os.Getenv("ELEVATION_TIMEOUT_SEC"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return nil, fmt.Errorf("invalid ELEVATION_TIMEOUT_SEC: %q", v)
		}
		cfg.ElevationTimeout = time.Duration(sec) * time.Second
	} else {
		cfg.ElevationTimeout = 10 * time.Second
	}
	if cfg.ElevationBatchSize, err = positiveInt("ELEVATION_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.ElevationConcurrency, err = positiveInt("ELEVATION_CONCURRENCY", 1); err != nil {
		return nil, err
	}

	if v := os.Getenv("FLAT_ELEVATION_M"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid FLAT_ELEVATION_M: %q", v)
		}
		cfg.FlatElevation = f
	}

	return cfg, nil
}

func positiveFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || !(f > 0) {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}

func positiveInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
