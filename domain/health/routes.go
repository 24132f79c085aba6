package health

import (
	"github.com/labstack/echo/v4"

	"github.com/Tatenda/fullstori/pkg/auth"
)

// RegisterRoutes registers health check routes. Probes stay public; the
// diagnostics endpoints follow the API authentication.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	e.GET("/health", h.Health)
	e.GET("/healthz", h.Healthz)
	e.GET("/ready", h.Ready)
	e.GET("/debug", h.Debug)

	api := e.Group("/api")
	api.Use(authMiddleware.RequireAuth())
	api.GET("/health", h.Health)
	api.GET("/diagnostics", h.Diagnose)
	api.GET("/metrics/scheduler", h.Scheduler)
}
