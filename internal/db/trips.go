package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trip-synth/internal/route"
	"trip-synth/internal/synth"
)

// SaveTrip stores a synthesized trip and all of its samples in one
// transaction. routeID may be zero when the trip did not come from a stored
// route.
func SaveTrip(ctx context.Context, db *sql.DB, routeID int64, trip *synth.Trip) error {
	if trip.ID == "" {
		return fmt.Errorf("save trip: empty id")
	}
	var rid sql.NullInt64
	if routeID > 0 {
		rid = sql.NullInt64{Int64: routeID, Valid: true}
	}
	return inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trips (trip_id, route_id, name, frequency_hz) VALUES ($1, $2, $3, $4)`,
			trip.ID, rid, trip.Name, trip.Frequency); err != nil {
			return fmt.Errorf("insert trip: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO trip_samples
  (trip_id, seq, lat, lon, bearing, velocity, delta_distance, altitude, slope, ax, ay, az)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`)
		if err != nil {
			return fmt.Errorf("prepare samples: %w", err)
		}
		defer stmt.Close()
		for i, s := range trip.Samples {
			if _, err := stmt.ExecContext(ctx, trip.ID, i,
				s.Position.Lat, s.Position.Lon, s.Bearing, s.Velocity, s.DeltaDistance,
				s.Altitude, s.Slope, s.Acceleration[0], s.Acceleration[1], s.Acceleration[2]); err != nil {
				return fmt.Errorf("insert sample %d: %w", i, err)
			}
		}
		return nil
	})
}

// FetchTrip loads a stored trip with its samples in order.
func FetchTrip(ctx context.Context, db *sql.DB, id string) (*synth.Trip, error) {
	trip := &synth.Trip{ID: id}
	err := db.QueryRowContext(ctx,
		`SELECT name, frequency_hz FROM trips WHERE trip_id = $1`, id).Scan(&trip.Name, &trip.Frequency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trip %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query trip: %w", err)
	}

	rows, err := db.QueryContext(ctx, `
SELECT lat, lon, bearing, velocity, delta_distance, altitude, slope, ax, ay, az
FROM trip_samples WHERE trip_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s synth.Sample
		if err := rows.Scan(&s.Position.Lat, &s.Position.Lon, &s.Bearing, &s.Velocity, &s.DeltaDistance,
			&s.Altitude, &s.Slope, &s.Acceleration[0], &s.Acceleration[1], &s.Acceleration[2]); err != nil {
			return nil, err
		}
		trip.Samples = append(trip.Samples, s)
	}
	return trip, rows.Err()
}

// Store binds the trip and route queries to one connection pool.
type Store struct {
	DB *sql.DB
}

func (s Store) SaveTrip(ctx context.Context, routeID int64, trip *synth.Trip) error {
	return SaveTrip(ctx, s.DB, routeID, trip)
}

func (s Store) Trip(ctx context.Context, id string) (*synth.Trip, error) {
	return FetchTrip(ctx, s.DB, id)
}

func (s Store) SaveRoute(ctx context.Context, name string, segs []route.Segment) (int64, error) {
	return SaveRoute(ctx, s.DB, name, segs)
}

func (s Store) RouteSegments(ctx context.Context, routeID int64) ([]route.Segment, error) {
	return FetchRouteSegments(ctx, s.DB, routeID)
}

func (s Store) LatestRoute(ctx context.Context, name string) (int64, error) {
	return ResolveLatestRoute(ctx, s.DB, name)
}
