package tool

import (
	"context"
	"testing"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/action"
	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/health"
	"github.com/fadhilmayati/dompet-platform/internal/kpi"
	"github.com/fadhilmayati/dompet-platform/internal/simulate"
	"github.com/fadhilmayati/dompet-platform/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *testutil.MockTransactionRepository, *testutil.MockInsightRepository) {
	idempotency := testutil.NewMockIdempotencyRepository()
	transactions := testutil.NewMockTransactionRepository()
	insights := testutil.NewMockInsightRepository()
	scorer := health.NewScorer()
	engine := kpi.NewEngine()
	suggester := action.NewSuggester()
	simulator := simulate.NewSimulator(scorer)

	r := NewRegistry(idempotency)
	RegisterCanonicalTools(r, transactions, insights, engine, scorer, suggester, simulator)
	return r, transactions, insights
}

func TestTransactionsCreateTool_ValidatesRequiredFields(t *testing.T) {
	r, _, _ := newTestRegistry()
	tl, ok := r.Get(ToolTransactionsCreate)
	require.True(t, ok)

	result, err := r.Invoke(context.Background(), 1, tl, map[string]any{}, "")
	require.NoError(t, err)
	assert.Equal(t, "error", result.Status)
}

func TestTransactionsCreateTool_DerivesIdempotencyWhenKeyOmitted(t *testing.T) {
	r, transactions, _ := newTestRegistry()
	tl, ok := r.Get(ToolTransactionsCreate)
	require.True(t, ok)

	input := map[string]any{
		"type":       "expense",
		"amount":     "12.50",
		"occurredAt": "2026-07-01T10:00:00Z",
		"notes":      "lunch",
	}

	first, err := r.Invoke(context.Background(), 1, tl, input, "")
	require.NoError(t, err)
	require.Equal(t, "ok", first.Status)

	second, err := r.Invoke(context.Background(), 1, tl, input, "")
	require.NoError(t, err)
	require.Equal(t, "ok", second.Status)

	assert.Len(t, transactions.Transactions, 1, "same tenant/customer/time/amount/notes should dedupe via the derived external reference")
}

func TestInsightsComputeTool_AggregatesTransactionsIntoInsight(t *testing.T) {
	r, transactions, insights := newTestRegistry()
	createTool, _ := r.Get(ToolTransactionsCreate)

	month := "2026-07"
	occurredAt := time.Date(2026, 7, 15, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	_, err := r.Invoke(context.Background(), 1, createTool, map[string]any{
		"type": "income", "amount": "5000", "occurredAt": occurredAt, "notes": "salary",
	}, "")
	require.NoError(t, err)
	_, err = r.Invoke(context.Background(), 1, createTool, map[string]any{
		"type": "expense", "amount": "2000", "occurredAt": occurredAt, "notes": "rent",
	}, "")
	require.NoError(t, err)

	_ = transactions
	computeTool, ok := r.Get(ToolInsightsCompute)
	require.True(t, ok)

	result, err := r.Invoke(context.Background(), 1, computeTool, map[string]any{
		"userId": "user-1", "month": month,
	}, "")
	require.NoError(t, err)
	require.Equal(t, "ok", result.Status)

	insight, ok := result.Output.(*domain.MonthlyInsight)
	require.True(t, ok)
	assert.Equal(t, 5000.0, insight.KPIs[domain.KPIIncome].Value)
	assert.Equal(t, 2000.0, insight.KPIs[domain.KPIExpenses].Value)

	stored, err := insights.GetByUserMonth(context.Background(), "user-1", month)
	require.NoError(t, err)
	assert.Equal(t, insight.Month, stored.Month)
}

func TestHealthScoreTool_RequiresMonthAndUser(t *testing.T) {
	r, _, _ := newTestRegistry()
	tl, ok := r.Get(ToolHealthScore)
	require.True(t, ok)

	result, err := r.Invoke(context.Background(), 1, tl, map[string]any{"userId": "user-1"}, "")
	require.NoError(t, err)
	assert.Equal(t, "error", result.Status)
}

func TestActionsSuggestTool_ReturnsSuggestionsForComputedInsight(t *testing.T) {
	r, _, insights := newTestRegistry()
	computeTool, _ := r.Get(ToolInsightsCompute)
	createTool, _ := r.Get(ToolTransactionsCreate)

	occurredAt := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	_, err := r.Invoke(context.Background(), 1, createTool, map[string]any{
		"type": "income", "amount": "1000", "occurredAt": occurredAt, "notes": "salary",
	}, "")
	require.NoError(t, err)
	_, err = r.Invoke(context.Background(), 1, createTool, map[string]any{
		"type": "expense", "amount": "900", "occurredAt": occurredAt, "notes": "bills",
	}, "")
	require.NoError(t, err)

	_, err = r.Invoke(context.Background(), 1, computeTool, map[string]any{
		"userId": "user-2", "month": "2026-07",
	}, "")
	require.NoError(t, err)

	suggestTool, ok := r.Get(ToolActionsSuggest)
	require.True(t, ok)
	result, err := r.Invoke(context.Background(), 1, suggestTool, map[string]any{
		"userId": "user-2", "month": "2026-07",
	}, "")
	require.NoError(t, err)
	require.Equal(t, "ok", result.Status)

	actions, ok := result.Output.([]domain.SuggestedAction)
	require.True(t, ok)
	assert.NotEmpty(t, actions)

	_ = insights
}

func TestSimulationsRunTool_ReturnsProjectedInsight(t *testing.T) {
	r, _, _ := newTestRegistry()
	computeTool, _ := r.Get(ToolInsightsCompute)
	createTool, _ := r.Get(ToolTransactionsCreate)

	occurredAt := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	_, err := r.Invoke(context.Background(), 1, createTool, map[string]any{
		"type": "income", "amount": "1000", "occurredAt": occurredAt, "notes": "salary",
	}, "")
	require.NoError(t, err)
	_, err = r.Invoke(context.Background(), 1, createTool, map[string]any{
		"type": "expense", "amount": "900", "occurredAt": occurredAt, "notes": "bills",
	}, "")
	require.NoError(t, err)
	_, err = r.Invoke(context.Background(), 1, computeTool, map[string]any{
		"userId": "user-3", "month": "2026-07",
	}, "")
	require.NoError(t, err)

	simulateTool, ok := r.Get(ToolSimulationsRun)
	require.True(t, ok)
	result, err := r.Invoke(context.Background(), 1, simulateTool, map[string]any{
		"userId": "user-3", "month": "2026-07", "actions": []any{"optimize-expenses"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, "ok", result.Status)

	sim, ok := result.Output.(*domain.SimulationResult)
	require.True(t, ok)
	assert.NotNil(t, sim.ProjectedHealth)
}
