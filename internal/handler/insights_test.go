package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/action"
	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/governor"
	"github.com/fadhilmayati/dompet-platform/internal/health"
	"github.com/fadhilmayati/dompet-platform/internal/kpi"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/fadhilmayati/dompet-platform/internal/provider"
	"github.com/fadhilmayati/dompet-platform/internal/testutil"
	"github.com/fadhilmayati/dompet-platform/internal/vectorstore"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, *testutil.MockInsightRepository) {
	t.Helper()
	insights := testutil.NewMockInsightRepository()
	router := provider.NewRouter(provider.Config{})
	deps := Deps{
		Insights:       insights,
		VectorStore:    vectorstore.New(7),
		Router:         router,
		Engine:         kpi.NewEngine(),
		Scorer:         health.NewScorer(),
		Suggester:      action.NewSuggester(),
		RequestTimeout: governor.DefaultDeadline,
	}
	return NewApp(deps), insights
}

func category(s string) *string { return &s }

// TestComputeInsight_PopulatesActionImpact guards against the API-layer
// impact/scoreDelta formulas from spec.md §4.4 silently staying at zero:
// every action the suggester emits must carry a non-zero impact_myr once
// the handler has run action.Impact over it.
func TestComputeInsight_PopulatesActionImpact(t *testing.T) {
	app, _ := newTestApp(t)

	body := `{
		"month": "2026-07",
		"transactions": [
			{"amount": "3000000", "currency": "MYR", "type": "income", "occurredAt": "2026-07-01T00:00:00Z"},
			{"amount": "2900000", "currency": "MYR", "type": "expense", "category": "rent", "occurredAt": "2026-07-02T00:00:00Z"}
		]
	}`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/insights", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetRequest(req.WithContext(middleware.WithIdentity(req.Context(), &domain.AuthenticatedUser{UserID: "user-1", TenantID: 1, CustomerID: 1})))

	require.NoError(t, app.ComputeInsight(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ComputeInsightResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Actions)
	for _, a := range resp.Actions {
		require.Greater(t, a.ImpactMYR, 0.0, "action %s should have a non-zero impact_myr", a.ID)
	}

	// The wire contract uses snake_case field names (spec.md §6).
	require.Contains(t, rec.Body.String(), `"impact_myr"`)
	require.Contains(t, rec.Body.String(), `"score_delta"`)
}

// TestComputeInsight_MatchesMonthlyDeterminismScenario pins the literal
// values from spec.md §8 scenario 4.
func TestComputeInsight_MatchesMonthlyDeterminismScenario(t *testing.T) {
	app, insights := newTestApp(t)
	_ = insights

	groceries := category("groceries")
	body := ComputeInsightRequest{
		Month: "2024-05",
		Transactions: []*domain.Transaction{
			{Amount: decimal.NewFromInt(15_000_000), Currency: "IDR", Type: domain.TransactionTypeIncome, OccurredAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
			{Amount: decimal.NewFromInt(-850_000), Currency: "IDR", Type: domain.TransactionTypeExpense, Category: groceries, OccurredAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
			{Amount: decimal.NewFromInt(-500_000), Currency: "IDR", Type: domain.TransactionTypeInvestment, OccurredAt: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)},
		},
	}
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/insights", strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetRequest(req.WithContext(middleware.WithIdentity(req.Context(), &domain.AuthenticatedUser{UserID: "user-2", TenantID: 1, CustomerID: 2})))

	require.NoError(t, app.ComputeInsight(c))

	var resp ComputeInsightResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.InDelta(t, 15_000_000, resp.Insight.KPIs[domain.KPIIncome].Value, 1e-6)
	require.InDelta(t, 850_000, resp.Insight.KPIs[domain.KPIExpenses].Value, 1e-6)
	require.InDelta(t, 13_650_000, resp.Insight.KPIs[domain.KPICashFlow].Value, 1e-6)
	require.InDelta(t, 0.943, resp.Insight.KPIs[domain.KPISavingsRate].Value, 1e-3)
	require.InDelta(t, 0.033, resp.Insight.KPIs[domain.KPIInvestmentRate].Value, 1e-3)
}
