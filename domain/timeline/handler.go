package timeline

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Tatenda/fullstori/pkg/apperror"
)

// Handler handles timeline HTTP requests.
type Handler struct {
	svc *Service
}

// NewHandler creates a new timeline handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	return c.Validate(req)
}

// List handles GET /api/graphs/:graphId/events
func (h *Handler) List(c echo.Context) error {
	list, err := h.svc.List(c.Request().Context(), c.Param("graphId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /api/graphs/:graphId/events/:eventId
func (h *Handler) Get(c echo.Context) error {
	e, err := h.svc.Get(c.Request().Context(), c.Param("graphId"), c.Param("eventId"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Create handles POST /api/graphs/:graphId/events
//
// A failed edge derivation still answers 201; the body carries edgeStatus
// and edgeError.
func (h *Handler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.NewTarget != nil {
		if err := c.Validate(req.NewTarget); err != nil {
			return err
		}
	}

	res, err := h.svc.Create(c.Request().Context(), c.Param("graphId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, res)
}

// Update handles PATCH /api/graphs/:graphId/events/:eventId
func (h *Handler) Update(c echo.Context) error {
	var req UpdateEventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.svc.Update(c.Request().Context(), c.Param("graphId"), c.Param("eventId"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /api/graphs/:graphId/events/:eventId
func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("graphId"), c.Param("eventId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Reorder handles POST /api/graphs/:graphId/events/reorder
func (h *Handler) Reorder(c echo.Context) error {
	var req ReorderRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := h.svc.Reorder(c.Request().Context(), c.Param("graphId"), req); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
