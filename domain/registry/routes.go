package registry

import (
	"github.com/labstack/echo/v4"

	"github.com/Tatenda/fullstori/pkg/auth"
)

// RegisterRoutes registers vocabulary routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api")
	g.Use(authMiddleware.RequireAuth())

	g.GET("/roles", h.ListRoles)
	g.POST("/roles", h.GetOrCreateRole)

	g.GET("/relationships", h.ListRelationshipTypes)
	g.POST("/relationships", h.GetOrCreateRelationshipType)

	g.GET("/event-types", h.ListEventTypes)
	g.POST("/event-types", h.GetOrCreateEventType)
}
