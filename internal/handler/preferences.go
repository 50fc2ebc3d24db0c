package handler

import (
	"net/http"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/labstack/echo/v4"
)

// PreferencesView wraps a customer's preferences on both GET and POST
// /v1/preferences (spec.md §6).
type PreferencesView struct {
	Preferences domain.CustomerPreferences `json:"preferences"`
}

// GetPreferences serves GET /v1/preferences.
func (a *App) GetPreferences(c echo.Context) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "authentication required", domain.ErrAuthRequired)
	}

	customer, err := a.deps.Customers.GetByID(c.Request().Context(), identity.TenantID, identity.CustomerID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PreferencesView{Preferences: customer.Preferences})
}

// UpdatePreferences serves POST /v1/preferences.
func (a *App) UpdatePreferences(c echo.Context) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "authentication required", domain.ErrAuthRequired)
	}

	var req PreferencesView
	if err := c.Bind(&req); err != nil {
		return domain.NewCodedError(domain.ErrCodeValidation, "invalid request body", domain.ErrValidation)
	}

	customer, err := a.deps.Customers.UpdatePreferences(c.Request().Context(), identity.TenantID, identity.CustomerID, req.Preferences)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PreferencesView{Preferences: customer.Preferences})
}
