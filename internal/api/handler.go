package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trip-synth/internal/db"
	"trip-synth/internal/elevation"
	"trip-synth/internal/export"
	"trip-synth/internal/geo"
	mmetrics "trip-synth/internal/metrics"
	"trip-synth/internal/route"
	"trip-synth/internal/sim"
	"trip-synth/internal/synth"
)

// Store is the persistence the API needs. db.Store implements it.
type Store interface {
	sim.TripStore
	Trip(ctx context.Context, id string) (*synth.Trip, error)
	SaveRoute(ctx context.Context, name string, segs []route.Segment) (int64, error)
	RouteSegments(ctx context.Context, routeID int64) ([]route.Segment, error)
	LatestRoute(ctx context.Context, name string) (int64, error)
}

// Handler serves synthesis over HTTP. Store and Replayer are optional.
type Handler struct {
	provider elevation.Provider
	opts     synth.Options
	store    Store
	replayer *sim.Manager
	metrics  *mmetrics.Collector
}

func NewHandler(provider elevation.Provider, opts synth.Options, store Store, replayer *sim.Manager, metrics *mmetrics.Collector) *Handler {
	return &Handler{provider: provider, opts: opts, store: store, replayer: replayer, metrics: metrics}
}

// RouteRequest describes a route either as segments or as points travelled
// at a constant speed in m/s.
type RouteRequest struct {
	Name     string          `json:"name"`
	Segments []route.Segment `json:"segments"`
	Points   []geo.Point     `json:"points"`
	Speed    float64         `json:"speed"`
}

// TripRequest is the body of POST /api/v1/trips. Besides an inline route it
// may reference a stored route by id or by name.
type TripRequest struct {
	RouteRequest
	RouteID   int64   `json:"routeId"`
	RouteName string  `json:"routeName"`
	Frequency float64 `json:"frequency"`
	Format    string  `json:"format"`
	Replay    bool    `json:"replay"`
}

// CreateTrip synthesizes a trip.
// POST /api/v1/trips
func (h *Handler) CreateTrip(c *gin.Context) {
	var req TripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Replay && h.replayer == nil {
		ErrorResponse(c, http.StatusServiceUnavailable, "replay is not configured")
		return
	}
	ctx := c.Request.Context()

	opts := h.opts
	if req.Frequency != 0 {
		opts.Frequency = req.Frequency
	}
	s, err := synth.New(h.provider, opts, h.synthMetrics())
	if err != nil {
		h.fail(c, err)
		return
	}

	segs, routeID, err := h.resolveSegments(ctx, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	name := req.Name
	if name == "" {
		name = req.RouteName
	}

	var store sim.TripStore = h.store
	trip, err := sim.NewRunner(s, store, h.metrics).Run(ctx, sim.Request{Name: name, RouteID: routeID, Segments: segs})
	if err != nil {
		h.fail(c, err)
		return
	}

	if req.Replay {
		h.replayer.Start(context.WithoutCancel(ctx), trip)
	}
	h.render(c, http.StatusCreated, req.Format, trip)
}

// GetTrip returns a stored trip.
// GET /api/v1/trips/:id
func (h *Handler) GetTrip(c *gin.Context) {
	if h.store == nil {
		ErrorResponse(c, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}
	trip, err := h.store.Trip(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.render(c, http.StatusOK, c.Query("format"), trip)
}

// ReplayTrip starts replaying a stored trip over NATS.
// POST /api/v1/trips/:id/replay
func (h *Handler) ReplayTrip(c *gin.Context) {
	if h.store == nil || h.replayer == nil {
		ErrorResponse(c, http.StatusServiceUnavailable, "replay is not configured")
		return
	}
	trip, err := h.store.Trip(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	started := h.replayer.Start(context.WithoutCancel(c.Request.Context()), trip)
	c.JSON(http.StatusAccepted, gin.H{"id": trip.ID, "started": started, "samples": len(trip.Samples)})
}

// CreateRoute stores a named route for later synthesis.
// POST /api/v1/routes
func (h *Handler) CreateRoute(c *gin.Context) {
	if h.store == nil {
		ErrorResponse(c, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.fail(c, &geo.ArgumentError{Name: "name", Value: req.Name, Reason: "route name is required"})
		return
	}
	segs, err := h.inlineSegments(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	id, err := h.store.SaveRoute(c.Request.Context(), req.Name, segs)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "name": req.Name, "segments": len(segs)})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) inlineSegments(req RouteRequest) ([]route.Segment, error) {
	switch {
	case len(req.Segments) > 0:
		return req.Segments, nil
	case len(req.Points) > 0:
		return route.FromPoints(req.Points, req.Speed, h.sphere())
	}
	return nil, &geo.ArgumentError{Name: "segments", Value: 0, Reason: "route must contain segments or points"}
}

func (h *Handler) resolveSegments(ctx context.Context, req TripRequest) ([]route.Segment, int64, error) {
	if len(req.Segments) > 0 || len(req.Points) > 0 || (req.RouteID == 0 && req.RouteName == "") {
		segs, err := h.inlineSegments(req.RouteRequest)
		return segs, 0, err
	}
	if h.store == nil {
		return nil, 0, errStoreRequired
	}
	id := req.RouteID
	if id == 0 {
		var err error
		if id, err = h.store.LatestRoute(ctx, req.RouteName); err != nil {
			return nil, 0, err
		}
	}
	segs, err := h.store.RouteSegments(ctx, id)
	return segs, id, err
}

var errStoreRequired = errors.New("stored routes need persistence to be configured")

func (h *Handler) sphere() geo.Sphere {
	s := h.opts.Sphere
	if s.Radius <= 0 {
		return geo.WGS84
	}
	if !(s.Epsilon > 0) {
		s.Epsilon = geo.Epsilon
	}
	return s
}

func (h *Handler) synthMetrics() synth.Metrics {
	if h.metrics == nil {
		return nil
	}
	return h.metrics.Synth()
}

func (h *Handler) render(c *gin.Context, status int, format string, trip *synth.Trip) {
	if format == "" || format == "json" {
		c.JSON(status, trip)
		return
	}
	formats, err := export.ParseFormats(format)
	if err != nil || len(formats) != 1 {
		ErrorResponse(c, http.StatusBadRequest, "format must be one of json, geojson, kml, csv")
		return
	}
	var buf bytes.Buffer
	name := trip.Name
	if name == "" {
		name = trip.ID
	}
	if err := export.Write(&buf, formats[0], name, trip); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(status, formats[0].ContentType(), buf.Bytes())
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, geo.ErrInvalidArgument):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, errStoreRequired):
		ErrorResponse(c, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ErrorResponse(c, http.StatusGatewayTimeout, err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}

// Response is the error envelope.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Error: message})
}
