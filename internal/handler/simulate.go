package handler

import (
	"net/http"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/labstack/echo/v4"
)

// SimulateRequest is the body of POST /v1/simulate (spec.md §6). InsightID
// is optional; when omitted, the caller's most recent insight is used.
type SimulateRequest struct {
	InsightID string   `json:"insightId,omitempty"`
	Actions   []string `json:"actions"`
}

// SimulateResponse is the body of POST /v1/simulate (spec.md §6).
type SimulateResponse struct {
	KPIs  map[string]domain.KPI `json:"kpis"`
	Score *domain.HealthScore   `json:"score"`
}

// Simulate serves POST /v1/simulate.
func (a *App) Simulate(c echo.Context) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "authentication required", domain.ErrAuthRequired)
	}

	var req SimulateRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewCodedError(domain.ErrCodeValidation, "invalid request body", domain.ErrValidation)
	}
	if len(req.Actions) == 0 {
		return domain.NewCodedError(domain.ErrCodeValidation, "actions must not be empty", domain.ErrValidation)
	}

	insights, err := a.deps.Insights.List(c.Request().Context(), identity.UserID)
	if err != nil {
		return err
	}
	if len(insights) == 0 {
		return domain.NewCodedError(domain.ErrCodeNotFound, "no insight available to simulate against", domain.ErrInsightNotFound)
	}

	insight := insights[0]
	if req.InsightID != "" {
		found := false
		for _, candidate := range insights {
			if candidate.ID == req.InsightID {
				insight = candidate
				found = true
				break
			}
		}
		if !found {
			return domain.NewCodedError(domain.ErrCodeNotFound, "insight not found", domain.ErrInsightNotFound)
		}
	}

	result := a.deps.Simulator.Simulate(insight, req.Actions)
	return c.JSON(http.StatusOK, SimulateResponse{KPIs: result.ProjectedInsight.KPIs, Score: result.ProjectedHealth})
}
