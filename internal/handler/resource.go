package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-access-control/internal/model"
	"github.com/iliyamo/vehicle-access-control/internal/repository"
)

// ResourceHandler exposes admin CRUD for bookable resources.  Listing is
// open to all authenticated users so booking clients can discover what
// exists; mutations require the ADMIN role, enforced by the router.
type ResourceHandler struct {
	Resources *repository.ResourceRepo
}

// NewResourceHandler constructs a ResourceHandler.
func NewResourceHandler(resources *repository.ResourceRepo) *ResourceHandler {
	if resources == nil {
		panic("nil repository passed to NewResourceHandler")
	}
	return &ResourceHandler{Resources: resources}
}

type resourceReq struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity uint32 `json:"capacity"`
}

type resourceResp struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity uint32 `json:"capacity"`
}

func (r resourceReq) validate() string {
	if strings.TrimSpace(r.Name) == "" {
		return "name is required"
	}
	if strings.TrimSpace(r.Type) == "" {
		return "type is required"
	}
	if r.Capacity == 0 {
		return "capacity must be positive"
	}
	return ""
}

// List handles GET /v1/resources.
func (h *ResourceHandler) List(c echo.Context) error {
	out, err := h.Resources.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	resp := make([]resourceResp, 0, len(out))
	for _, r := range out {
		resp = append(resp, resourceResp{ID: r.ID, Name: r.Name, Type: r.Type, Capacity: r.Capacity})
	}
	return c.JSON(http.StatusOK, resp)
}

// Create handles POST /v1/resources.
func (h *ResourceHandler) Create(c echo.Context) error {
	var req resourceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	res := &model.Resource{
		Name:     strings.TrimSpace(req.Name),
		Type:     strings.TrimSpace(req.Type),
		Capacity: req.Capacity,
	}
	if err := h.Resources.Create(c.Request().Context(), res); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "resource name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, resourceResp{ID: res.ID, Name: res.Name, Type: res.Type, Capacity: res.Capacity})
}

// Update handles PUT /v1/resources/:id.
func (h *ResourceHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	var req resourceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	err = h.Resources.Update(c.Request().Context(), id,
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Type), req.Capacity)
	if err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "resource updated"})
}

// Delete handles DELETE /v1/resources/:id.  Resources with bookings are
// protected and return 409.
func (h *ResourceHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid resource id"})
	}
	switch err := h.Resources.Delete(c.Request().Context(), id); {
	case err == nil:
		return c.NoContent(http.StatusNoContent)
	case errors.Is(err, repository.ErrResourceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource has bookings"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
