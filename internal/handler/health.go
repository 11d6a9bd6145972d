package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports process liveness for load balancers and container
// orchestrators.  It deliberately does not touch the database or the
// broker: a restart loop caused by a slow dependency would only make an
// outage worse, and the consumers recover from broker loss on their own.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
