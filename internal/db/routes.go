package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"trip-synth/internal/geo"
	"trip-synth/internal/route"
)

// SaveRoute stores a named route and its segments in order and returns the
// new route id.
func SaveRoute(ctx context.Context, db *sql.DB, name string, segs []route.Segment) (int64, error) {
	if err := route.ValidateAll(segs); err != nil {
		return 0, err
	}
	var id int64
	err := inTx(ctx, db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO routes (name) VALUES ($1) RETURNING route_id`, name).Scan(&id); err != nil {
			return fmt.Errorf("insert route: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO route_segments
  (route_id, seq, from_lat, from_lon, to_lat, to_lon, elevation, velocity, delta_distance, delta_time, delta_elevation)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`)
		if err != nil {
			return fmt.Errorf("prepare segments: %w", err)
		}
		defer stmt.Close()
		for i, s := range segs {
			if _, err := stmt.ExecContext(ctx, id, i,
				s.From.Lat, s.From.Lon, s.To.Lat, s.To.Lon,
				s.Elevation, s.Velocity, s.DeltaDistance, s.DeltaTime, s.DeltaElevation); err != nil {
				return fmt.Errorf("insert segment %d: %w", i, err)
			}
		}
		return nil
	})
	return id, err
}

// FetchRouteSegments returns the segments of a stored route in travel order.
func FetchRouteSegments(ctx context.Context, db *sql.DB, routeID int64) ([]route.Segment, error) {
	q := `SELECT from_lat, from_lon, to_lat, to_lon, elevation, velocity, delta_distance, delta_time, delta_elevation
FROM route_segments WHERE route_id = $1 ORDER BY seq`
	rows, err := db.QueryContext(ctx, q, routeID)
	if err != nil {
		return nil, fmt.Errorf("query route segments: %w", err)
	}
	defer rows.Close()

	var segs []route.Segment
	for rows.Next() {
		var s route.Segment
		if err := rows.Scan(&s.From.Lat, &s.From.Lon, &s.To.Lat, &s.To.Lon,
			&s.Elevation, &s.Velocity, &s.DeltaDistance, &s.DeltaTime, &s.DeltaElevation); err != nil {
			return nil, err
		}
		segs = append(segs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("route %d: %w", routeID, ErrNotFound)
	}
	return segs, nil
}

// ResolveLatestRoute returns the id of the most recently stored route whose
// name contains the given text, case insensitively.
func ResolveLatestRoute(ctx context.Context, db *sql.DB, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, &geo.ArgumentError{Name: "name", Value: name, Reason: "route name is required"}
	}
	q := `
SELECT route_id
FROM routes
WHERE name ILIKE '%' || $1 || '%'
ORDER BY created_at DESC, route_id DESC
LIMIT 1`
	var id int64
	if err := db.QueryRowContext(ctx, q, name).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("no route named like %q: %w", name, ErrNotFound)
		}
		return 0, err
	}
	return id, nil
}
