package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Healthz serves GET /v1/healthz (public, spec.md §6).
func (a *App) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
