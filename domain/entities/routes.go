package entities

import (
	"github.com/labstack/echo/v4"

	"github.com/Tatenda/fullstori/pkg/auth"
)

// RegisterRoutes registers entity routes with the Echo router
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/entities")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.Search)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.PUT("/:id/avatar", h.UploadAvatar)
}
