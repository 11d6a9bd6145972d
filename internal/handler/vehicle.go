package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-access-control/internal/model"
	"github.com/iliyamo/vehicle-access-control/internal/repository"
)

// VehicleHandler manages the plate allow-list consulted by the automatic
// authorization stage.  Registration is an ADMIN operation.
type VehicleHandler struct {
	Auths *repository.AuthorizationRepo
}

// NewVehicleHandler constructs a VehicleHandler.
func NewVehicleHandler(auths *repository.AuthorizationRepo) *VehicleHandler {
	if auths == nil {
		panic("nil repository passed to NewVehicleHandler")
	}
	return &VehicleHandler{Auths: auths}
}

type registerVehicleReq struct {
	PlateNumber string `json:"plate_number"`
	OwnerEmail  string `json:"owner_email"`
}

// Register handles POST /v1/vehicles and adds a plate to the allow-list.
func (h *VehicleHandler) Register(c echo.Context) error {
	var req registerVehicleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.PlateNumber = strings.ToUpper(strings.TrimSpace(req.PlateNumber))
	req.OwnerEmail = strings.ToLower(strings.TrimSpace(req.OwnerEmail))
	if req.PlateNumber == "" || req.OwnerEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plate_number and owner_email required"})
	}

	v := &model.RegisteredVehicle{PlateNumber: req.PlateNumber, OwnerEmail: req.OwnerEmail}
	if err := h.Auths.Register(c.Request().Context(), v); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "plate already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": v.ID, "plate_number": v.PlateNumber})
}
