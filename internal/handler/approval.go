package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-access-control/internal/repository"
	"github.com/iliyamo/vehicle-access-control/internal/workflow"
)

// ApprovalHandler is the security dashboard surface: operators list
// vehicles waiting for review and record approve/reject decisions.  The
// decision endpoints are terminal: repeating the same decision succeeds
// (and republishes the result), the opposite one returns 409.
type ApprovalHandler struct {
	Flow  *workflow.Orchestrator
	Auths *repository.AuthorizationRepo
}

// NewApprovalHandler constructs an ApprovalHandler.
func NewApprovalHandler(flow *workflow.Orchestrator, auths *repository.AuthorizationRepo) *ApprovalHandler {
	if flow == nil || auths == nil {
		panic("nil dependency passed to NewApprovalHandler")
	}
	return &ApprovalHandler{Flow: flow, Auths: auths}
}

type decisionReq struct {
	PlateNumber string `json:"plate_number"`
	Timestamp   string `json:"timestamp"`
}

type pendingResp struct {
	PlateNumber string `json:"plate_number"`
	Timestamp   string `json:"timestamp"`
	Gate        string `json:"gate,omitempty"`
	State       string `json:"state"`
}

// ListPending handles GET /v1/approvals and returns vehicles awaiting a
// decision, oldest first.
func (h *ApprovalHandler) ListPending(c echo.Context) error {
	out, err := h.Auths.ListPending(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	resp := make([]pendingResp, 0, len(out))
	for _, rec := range out {
		resp = append(resp, pendingResp{
			PlateNumber: rec.PlateNumber,
			Timestamp:   rec.DetectedAt,
			Gate:        rec.Gate,
			State:       rec.State,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// Approve handles POST /v1/approvals/approve.
func (h *ApprovalHandler) Approve(c echo.Context) error {
	return h.decide(c, h.Flow.Approve)
}

// Reject handles POST /v1/approvals/reject.
func (h *ApprovalHandler) Reject(c echo.Context) error {
	return h.decide(c, h.Flow.Reject)
}

// decide validates the request and runs one of the orchestrator's
// decision methods.  A decision that cannot publish its result still
// changed the persisted state, so the error surfaces as 502 and the
// operator retries; the orchestrator tolerates the repeat.
func (h *ApprovalHandler) decide(c echo.Context, decision func(ctx context.Context, plate, detectedAt string) error) error {
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.PlateNumber = strings.ToUpper(strings.TrimSpace(req.PlateNumber))
	if req.PlateNumber == "" || req.Timestamp == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plate_number and timestamp required"})
	}

	switch err := decision(c.Request().Context(), req.PlateNumber, req.Timestamp); {
	case err == nil:
		return c.JSON(http.StatusOK, echo.Map{"plate_number": req.PlateNumber, "timestamp": req.Timestamp})
	case errors.Is(err, repository.ErrAuthorizationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no such detection"})
	case errors.Is(err, repository.ErrAlreadyDecided):
		return c.JSON(http.StatusConflict, echo.Map{"error": "authorization already decided"})
	case errors.Is(err, repository.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": "detection is not awaiting review"})
	default:
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "decision not fully applied, retry"})
	}
}
