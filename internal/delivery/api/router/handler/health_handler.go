package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthCheck is the public liveness check.
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
