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

// BookingHandler exposes the booking lifecycle: create, list, cancel and
// reschedule.  All methods assume JWT authentication has already run.
// Conflicting slots are a normal negative outcome and map to 409, never
// to a 5xx.
type BookingHandler struct {
	Bookings  *repository.BookingRepo
	Resources *repository.ResourceRepo
}

// NewBookingHandler constructs a BookingHandler.  Both repositories must
// be non-nil.
func NewBookingHandler(bookings *repository.BookingRepo, resources *repository.ResourceRepo) *BookingHandler {
	if bookings == nil || resources == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Resources: resources}
}

type createBookingReq struct {
	ResourceName string `json:"resource_name"`
	Date         string `json:"date"`
	Start        string `json:"start"`
	End          string `json:"end"`
}

type rescheduleReq struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type bookingResp struct {
	ID           uint64 `json:"id"`
	BookedBy     string `json:"booked_by"`
	ResourceName string `json:"resource_name"`
	Date         string `json:"date"`
	Start        string `json:"start"`
	End          string `json:"end"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:           b.ID,
		BookedBy:     b.BookedBy,
		ResourceName: b.ResourceName,
		Date:         b.BookedDate,
		Start:        b.StartTime,
		End:          b.EndTime,
	}
}

// validateSlot checks the date and interval fields shared by create and
// reschedule requests.  It returns a user-facing message or "".
func validateSlot(date, start, end string) string {
	if !validDate(date) {
		return "date must be YYYY-MM-DD"
	}
	if !validTime(start) || !validTime(end) {
		return "start and end must be HH:MM"
	}
	if end <= start {
		return "end must be after start"
	}
	return ""
}

// Create handles POST /v1/bookings.  The availability check and the
// insert run atomically in the repository; two concurrent requests for
// the same slot yield exactly one 201 and one 409.
func (h *BookingHandler) Create(c echo.Context) error {
	email, err := getEmail(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.ResourceName = strings.TrimSpace(req.ResourceName)
	if req.ResourceName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource_name is required"})
	}
	if msg := validateSlot(req.Date, req.Start, req.End); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	b := &model.Booking{
		BookedBy:     email,
		ResourceName: req.ResourceName,
		BookedDate:   req.Date,
		StartTime:    req.Start,
		EndTime:      req.End,
	}
	switch err := h.Bookings.Create(c.Request().Context(), b); {
	case err == nil:
		return c.JSON(http.StatusCreated, toBookingResp(*b))
	case errors.Is(err, repository.ErrResourceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
	case errors.Is(err, repository.ErrSlotTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource not available on the specified time slot"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}

// ListMine handles GET /v1/bookings and returns the caller's bookings.
func (h *BookingHandler) ListMine(c echo.Context) error {
	email, err := getEmail(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	out, err := h.Bookings.ListByUser(c.Request().Context(), email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	resp := make([]bookingResp, 0, len(out))
	for _, b := range out {
		resp = append(resp, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, resp)
}

// ListForResource handles GET /v1/resources/:name/bookings?date=YYYY-MM-DD
// and returns the day's schedule for one resource, so clients can render
// free slots.
func (h *BookingHandler) ListForResource(c echo.Context) error {
	name := strings.TrimSpace(c.Param("name"))
	date := c.QueryParam("date")
	if name == "" || !validDate(date) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "resource name and date=YYYY-MM-DD required"})
	}
	ctx := c.Request().Context()
	if _, err := h.Resources.GetByName(ctx, name); err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "resource not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out, err := h.Bookings.ListForResourceDate(ctx, name, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	resp := make([]bookingResp, 0, len(out))
	for _, b := range out {
		resp = append(resp, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, resp)
}

// Cancel handles DELETE /v1/bookings/:id.  Only the booking's owner may
// cancel it.
func (h *BookingHandler) Cancel(c echo.Context) error {
	email, err := getEmail(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx := c.Request().Context()
	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if b.BookedBy != email {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Bookings.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Reschedule handles PUT /v1/bookings/:id.  The booking is deleted and
// recreated in one transaction; the new slot goes through the same
// availability check as a fresh booking.
func (h *BookingHandler) Reschedule(c echo.Context) error {
	email, err := getEmail(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req rescheduleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := validateSlot(req.Date, req.Start, req.End); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx := c.Request().Context()
	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if b.BookedBy != email {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	switch fresh, err := h.Bookings.Reschedule(ctx, id, req.Date, req.Start, req.End); {
	case err == nil:
		return c.JSON(http.StatusOK, toBookingResp(*fresh))
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, repository.ErrSlotTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource not available on the specified time slot"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
