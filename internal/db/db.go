package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var ErrNotFound = errors.New("not found")

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS routes (
  route_id   BIGSERIAL PRIMARY KEY,
  name       TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS routes_name_created_idx ON routes (name, created_at DESC);

CREATE TABLE IF NOT EXISTS route_segments (
  route_id        BIGINT NOT NULL REFERENCES routes(route_id) ON DELETE CASCADE,
  seq             INT NOT NULL,
  from_lat        DOUBLE PRECISION NOT NULL,
  from_lon        DOUBLE PRECISION NOT NULL,
  to_lat          DOUBLE PRECISION NOT NULL,
  to_lon          DOUBLE PRECISION NOT NULL,
  elevation       DOUBLE PRECISION NOT NULL DEFAULT 0,
  velocity        DOUBLE PRECISION NOT NULL DEFAULT 0,
  delta_distance  DOUBLE PRECISION NOT NULL DEFAULT 0,
  delta_time      DOUBLE PRECISION NOT NULL,
  delta_elevation DOUBLE PRECISION NOT NULL DEFAULT 0,
  PRIMARY KEY (route_id, seq)
);

CREATE TABLE IF NOT EXISTS trips (
  trip_id      TEXT PRIMARY KEY,
  route_id     BIGINT REFERENCES routes(route_id) ON DELETE SET NULL,
  name         TEXT NOT NULL DEFAULT '',
  frequency_hz DOUBLE PRECISION NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS trip_samples (
  trip_id        TEXT NOT NULL REFERENCES trips(trip_id) ON DELETE CASCADE,
  seq            INT NOT NULL,
  lat            DOUBLE PRECISION NOT NULL,
  lon            DOUBLE PRECISION NOT NULL,
  bearing        DOUBLE PRECISION NOT NULL,
  velocity       DOUBLE PRECISION NOT NULL,
  delta_distance DOUBLE PRECISION NOT NULL,
  altitude       DOUBLE PRECISION NOT NULL,
  slope          DOUBLE PRECISION NOT NULL,
  ax             DOUBLE PRECISION NOT NULL,
  ay             DOUBLE PRECISION NOT NULL,
  az             DOUBLE PRECISION NOT NULL,
  PRIMARY KEY (trip_id, seq)
);
`

// EnsureSchema creates the route and trip tables if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
