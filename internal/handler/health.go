package handler // declare the package name; contains HTTP handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe.  It does not touch TMDb, Redis or the
// payment gateway, so a degraded dependency never fails it.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
