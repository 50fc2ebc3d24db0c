package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/fadhilmayati/dompet-platform/internal/action"
	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/governor"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/fadhilmayati/dompet-platform/internal/provider"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// InsightView is the body shared by GET and POST /v1/insights (spec.md §6).
type InsightView struct {
	KPIs  map[string]domain.KPI `json:"kpis"`
	Story string                `json:"story"`
}

// ComputeInsightRequest is the body of POST /v1/insights.
type ComputeInsightRequest struct {
	Month        string              `json:"month"`
	Transactions []*domain.Transaction `json:"transactions"`
	Balances     *domain.Balances    `json:"balances,omitempty"`
	Goals        domain.Goals        `json:"goals,omitempty"`
}

// ComputeInsightResponse is the body of POST /v1/insights.
type ComputeInsightResponse struct {
	Insight InsightView              `json:"insight"`
	Score   *domain.HealthScore      `json:"score"`
	Actions []domain.SuggestedAction `json:"actions"`
}

// GetInsight serves GET /v1/insights?month=YYYY-MM.
func (a *App) GetInsight(c echo.Context) error {
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
	return c.JSON(http.StatusOK, InsightView{KPIs: insight.KPIs, Story: insight.Story})
}

// ComputeInsight serves POST /v1/insights: runs the KPI engine in-place over
// the supplied transactions and returns the insight alongside its health
// score and suggested actions (spec.md §6).
func (a *App) ComputeInsight(c echo.Context) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "authentication required", domain.ErrAuthRequired)
	}

	var req ComputeInsightRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewCodedError(domain.ErrCodeValidation, "invalid request body", domain.ErrValidation)
	}
	if req.Month == "" {
		return domain.NewCodedError(domain.ErrCodeValidation, "month is required", domain.ErrValidation)
	}

	ctx, cancel := governor.WithDeadline(c.Request().Context(), a.deps.RequestTimeout)
	defer cancel()

	previous, err := a.deps.Insights.GetByUserMonth(ctx, identity.UserID, req.Month)
	if err != nil && !isNotFound(err) {
		return err
	}

	insight := a.deps.Engine.ComputeMonthly(domain.ComputeMonthlyInput{
		UserID:       identity.UserID,
		TenantID:     identity.TenantID,
		Month:        req.Month,
		Transactions: req.Transactions,
		Balances:     req.Balances,
		Goals:        req.Goals,
		Previous:     previous,
	})
	if insight.ID == "" {
		insight.ID = uuid.NewString()
	}

	if err := a.deps.Insights.Upsert(ctx, insight); err != nil {
		return err
	}
	a.embedAndIndex(ctx, identity, insight)
	if a.deps.Archive != nil {
		a.deps.Archive.Snapshot(ctx, identity.TenantID, insight)
	}

	h := a.deps.Scorer.Score(insight.KPIs)
	actions := a.deps.Suggester.Suggest(insight.KPIs, h)
	cashFlow := insight.KPIs[domain.KPICashFlow].Value
	income := insight.KPIs[domain.KPIIncome].Value
	for i := range actions {
		actions[i].ImpactMYR, actions[i].ScoreDelta = action.Impact(actions[i], income, cashFlow, h.Total)
	}

	return c.JSON(http.StatusOK, ComputeInsightResponse{
		Insight: InsightView{KPIs: insight.KPIs, Story: insight.Story},
		Score:   h,
		Actions: actions,
	})
}

// embedAndIndex stores a retrievable copy of the insight in vector memory
// (spec.md §4.7) so budget_summary/general_question chat turns can retrieve
// it. Failures are logged, never surfaced to the client — indexing is
// best-effort relative to the insight write itself.
func (a *App) embedAndIndex(ctx context.Context, identity *domain.AuthenticatedUser, insight *domain.MonthlyInsight) {
	if a.deps.VectorStore == nil {
		return
	}
	embedded, err := a.deps.Router.Embed(ctx, []string{insight.Story}, provider.EmbedOptions{})
	if err != nil || len(embedded.Embeddings) == 0 {
		log.Warn().Err(err).Str("insightId", insight.ID).Msg("failed to embed insight for vector memory")
		return
	}

	record := domain.EmbeddingRecord{
		ID:     insight.ID,
		UserID: identity.UserID,
		Vector: embedded.Embeddings[0],
		Metadata: map[string]any{
			"month": insight.Month,
			"kpis":  insight.KPIs,
		},
	}
	if err := a.deps.VectorStore.Upsert(ctx, record, insight.Story); err != nil {
		log.Warn().Err(err).Str("insightId", insight.ID).Msg("failed to upsert insight embedding")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrInsightNotFound)
}
