package graph

import (
	"github.com/labstack/echo/v4"

	"github.com/Tatenda/fullstori/pkg/auth"
)

// RegisterRoutes registers all graph routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/graphs")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.GET("/:graphId", h.Load)
	g.PUT("/:graphId", h.Save)
	g.PATCH("/:graphId/settings", h.UpdateSettings)
	g.POST("/:graphId/nodes", h.CreateNode)
}
