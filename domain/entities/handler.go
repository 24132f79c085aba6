package entities

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Tatenda/fullstori/pkg/apperror"
)

// Handler handles entity HTTP requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new entities handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Search handles GET /api/entities?q=&graphId=&limit=
func (h *Handler) Search(c echo.Context) error {
	params := SearchParams{
		Query:   c.QueryParam("q"),
		GraphID: c.QueryParam("graphId"),
	}
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return apperror.NewBadRequest("limit must be an integer")
		}
		params.Limit = limit
	}

	results, err := h.svc.Search(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, results)
}

// Create handles POST /api/entities
func (h *Handler) Create(c echo.Context) error {
	var req CreateEntityRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	e, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

// Get handles GET /api/entities/:id
func (h *Handler) Get(c echo.Context) error {
	e, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// Update handles PATCH /api/entities/:id
func (h *Handler) Update(c echo.Context) error {
	var req UpdateEntityRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	e, err := h.svc.Update(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

// UploadAvatar handles PUT /api/entities/:id/avatar (multipart field "file")
func (h *Handler) UploadAvatar(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperror.NewBadRequest("multipart field 'file' is required")
	}

	f, err := fh.Open()
	if err != nil {
		return apperror.NewBadRequest("unable to read uploaded file")
	}
	defer f.Close()

	e, err := h.svc.UploadAvatar(c.Request().Context(), c.Param("id"), f, fh.Size, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}
