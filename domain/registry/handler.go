package registry

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Tatenda/fullstori/pkg/apperror"
)

// Handler handles vocabulary HTTP requests
type Handler struct {
	svc *Service
}

// NewHandler creates a new registry handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperror.ErrBadRequest.WithMessage("invalid request body")
	}
	return c.Validate(req)
}

func createdStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

// ListRoles handles GET /api/roles[?grouped=true]
func (h *Handler) ListRoles(c echo.Context) error {
	ctx := c.Request().Context()
	if c.QueryParam("grouped") == "true" {
		grouped, err := h.svc.ListRolesGrouped(ctx)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, grouped)
	}

	roles, err := h.svc.ListRoles(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

// GetOrCreateRole handles POST /api/roles
func (h *Handler) GetOrCreateRole(c echo.Context) error {
	var req GetOrCreateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, created, err := h.svc.GetOrCreateRole(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(createdStatus(created), role)
}

// ListRelationshipTypes handles GET /api/relationships[?grouped=true]
func (h *Handler) ListRelationshipTypes(c echo.Context) error {
	ctx := c.Request().Context()
	if c.QueryParam("grouped") == "true" {
		grouped, err := h.svc.ListRelationshipTypesGrouped(ctx)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, grouped)
	}

	types, err := h.svc.ListRelationshipTypes(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types)
}

// GetOrCreateRelationshipType handles POST /api/relationships
func (h *Handler) GetOrCreateRelationshipType(c echo.Context) error {
	var req GetOrCreateRelationshipRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	rt, created, err := h.svc.GetOrCreateRelationshipType(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(createdStatus(created), rt)
}

// ListEventTypes handles GET /api/event-types
func (h *Handler) ListEventTypes(c echo.Context) error {
	types, err := h.svc.ListEventTypes(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, types)
}

// GetOrCreateEventType handles POST /api/event-types
func (h *Handler) GetOrCreateEventType(c echo.Context) error {
	var req GetOrCreateEventTypeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	et, created, err := h.svc.GetOrCreateEventType(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(createdStatus(created), et)
}
