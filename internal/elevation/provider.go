// Package elevation defines the batched ground-elevation lookup used to lift
// a synthesized trip off the ellipsoid, with an HTTP client for the Google
// Elevation API wire format and a constant-height provider for offline runs.
package elevation

import (
	"context"
	"errors"
	"fmt"

	"trip-synth/internal/geo"
)

// StatusOK is the only status under which a response's results are used.
const StatusOK = "OK"

// ErrStatusNotOK marks a lookup whose provider did not report success.
var ErrStatusNotOK = errors.New("elevation provider status not OK")

// StatusError carries the status string returned by the provider.
type StatusError struct {
	Status  string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("elevation status %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("elevation status %s", e.Status)
}

func (e *StatusError) Unwrap() error { return ErrStatusNotOK }

// Result is the elevation of one requested location. The provider may snap
// the location to its own grid.
type Result struct {
	Location  geo.Point
	Elevation float64
}

// Response holds results aligned positionally with the request.
type Response struct {
	Status  string
	Results []Result
}

// Err returns a StatusError unless the response is OK and aligned with n
// requested points.
func (r Response) Err(n int) error {
	if r.Status != StatusOK {
		return &StatusError{Status: r.Status}
	}
	if len(r.Results) != n {
		return &StatusError{Status: r.Status, Message: fmt.Sprintf("got %d results for %d locations", len(r.Results), n)}
	}
	return nil
}

// Provider looks up ground elevation for an ordered batch of points.
type Provider interface {
	Lookup(ctx context.Context, points []geo.Point) (Response, error)
}

// Flat reports the same elevation everywhere.
type Flat struct {
	Elevation float64
}

func (f Flat) Lookup(_ context.Context, points []geo.Point) (Response, error) {
	results := make([]Result, len(points))
	for i, p := range points {
		results[i] = Result{Location: p, Elevation: f.Elevation}
	}
	return Response{Status: StatusOK, Results: results}, nil
}

// Func adapts a function to Provider.
type Func func(ctx context.Context, points []geo.Point) (Response, error)

func (f Func) Lookup(ctx context.Context, points []geo.Point) (Response, error) {
	return f(ctx, points)
}
