package handler

import (
	"net/http"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/labstack/echo/v4"
)

// ScoreResponse is the body of GET /v1/score (spec.md §6): the health total
// rescaled to the 0..100 range the external contract documents, independent
// of the internal 0..1 scale every other component works in.
type ScoreResponse struct {
	Score      float64                  `json:"score"`
	Components []domain.HealthComponent `json:"components"`
	Notes      []string                 `json:"notes,omitempty"`
}

// GetScore serves GET /v1/score?month=YYYY-MM (spec.md §6).
func (a *App) GetScore(c echo.Context) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "authentication required", domain.ErrAuthRequired)
	}
	month := c.QueryParam("month")
	if month == "" {
		return domain.NewCodedError(domain.ErrCodeValidation, "month query parameter is required", domain.ErrValidation)
	}

	insight, err := a.deps.Insights.GetByUserMonth(c.Request().Context(), identity.UserID, month)
	if err != nil {
		return err
	}

	h := a.deps.Scorer.Score(insight.KPIs)
	return c.JSON(http.StatusOK, ScoreResponse{Score: h.Total * 100, Components: h.Components, Notes: h.Notes})
}
