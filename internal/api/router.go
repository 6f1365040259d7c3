package api

import (
	"github.com/gin-gonic/gin"

	mmetrics "trip-synth/internal/metrics"
)

// NewRouter mounts the handler under /api/v1. When metrics is set the
// collector is also served on /metrics.
func NewRouter(h *Handler, metrics *mmetrics.Collector) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.GET("/healthz", h.Health)
	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	apiGroup := router.Group("/api/v1")
	{
		apiGroup.POST("/trips", h.CreateTrip)
		apiGroup.GET("/trips/:id", h.GetTrip)
		apiGroup.POST("/trips/:id/replay", h.ReplayTrip)
		apiGroup.POST("/routes", h.CreateRoute)
	}
	return router
}
