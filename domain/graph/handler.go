package graph

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Tatenda/fullstori/pkg/apperror"
)

// Handler handles HTTP requests for graph operations.
type Handler struct {
	svc *Service
}

// NewHandler creates a new graph handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /api/graphs
func (h *Handler) List(c echo.Context) error {
	graphs, err := h.svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, graphs)
}

// Load handles GET /api/graphs/:graphId
func (h *Handler) Load(c echo.Context) error {
	state, err := h.svc.Load(c.Request().Context(), c.Param("graphId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, state)
}

// Save handles PUT /api/graphs/:graphId
func (h *Handler) Save(c echo.Context) error {
	var req SaveGraphRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	res, err := h.svc.Save(c.Request().Context(), c.Param("graphId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// UpdateSettings handles PATCH /api/graphs/:graphId/settings
func (h *Handler) UpdateSettings(c echo.Context) error {
	var req UpdateSettingsRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	g, err := h.svc.UpdateSettings(c.Request().Context(), c.Param("graphId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

// CreateNode handles POST /api/graphs/:graphId/nodes
func (h *Handler) CreateNode(c echo.Context) error {
	var req CreateNodeRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if req.Entity != nil {
		if err := c.Validate(req.Entity); err != nil {
			return err
		}
	}

	res, err := h.svc.CreateNodeFromEntity(c.Request().Context(), c.Param("graphId"), req)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}
