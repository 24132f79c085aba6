package timeline

import (
	"github.com/labstack/echo/v4"

	"github.com/Tatenda/fullstori/pkg/auth"
)

// RegisterRoutes registers the timeline routes under a graph.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/graphs/:graphId/events")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.POST("", h.Create)
	g.POST("/reorder", h.Reorder)
	g.GET("/:eventId", h.Get)
	g.PATCH("/:eventId", h.Update)
	g.DELETE("/:eventId", h.Delete)
}
