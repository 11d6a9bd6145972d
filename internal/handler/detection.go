package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vehicle-access-control/internal/queue"
	"github.com/iliyamo/vehicle-access-control/internal/workflow"
)

// DetectionHandler ingests plate detections from the gate cameras.  The
// endpoint is idempotent: re-posting the same (plate, timestamp) pair
// neither errors nor publishes a second event.
type DetectionHandler struct {
	Flow *workflow.Orchestrator
}

// NewDetectionHandler constructs a DetectionHandler.
func NewDetectionHandler(flow *workflow.Orchestrator) *DetectionHandler {
	if flow == nil {
		panic("nil orchestrator passed to NewDetectionHandler")
	}
	return &DetectionHandler{Flow: flow}
}

type detectionReq struct {
	PlateNumber string  `json:"plate_number"`
	Timestamp   string  `json:"timestamp"`
	Gate        string  `json:"gate"`
	Confidence  float64 `json:"confidence"`
}

// Ingest handles POST /detections.  A missing timestamp is filled with
// the ingest time; cameras that batch uploads send their own.
func (h *DetectionHandler) Ingest(c echo.Context) error {
	var req detectionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.PlateNumber = strings.ToUpper(strings.TrimSpace(req.PlateNumber))
	if req.PlateNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plate_number is required"})
	}
	if req.Timestamp == "" {
		req.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	ev := queue.VehicleDetectedEvent{
		PlateNumber: req.PlateNumber,
		Timestamp:   req.Timestamp,
		Gate:        req.Gate,
		Confidence:  req.Confidence,
	}
	if err := h.Flow.RecordDetection(c.Request().Context(), ev); err != nil {
		// The caller is a camera service with no retry policy of its own;
		// it needs to know the detection did not make it into the pipeline.
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "detection not accepted"})
	}
	return c.JSON(http.StatusAccepted, echo.Map{"plate_number": ev.PlateNumber, "timestamp": ev.Timestamp})
}
