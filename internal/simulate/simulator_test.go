package simulate

import (
	"testing"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseInsight() *domain.MonthlyInsight {
	return &domain.MonthlyInsight{
		UserID: "user-1",
		Month:  "2026-06",
		KPIs: map[string]domain.KPI{
			domain.KPIIncome:          {Key: domain.KPIIncome, Value: 5000},
			domain.KPIExpenses:        {Key: domain.KPIExpenses, Value: 3000},
			domain.KPIInvestments:     {Key: domain.KPIInvestments, Value: 500},
			domain.KPIDebtPayments:    {Key: domain.KPIDebtPayments, Value: 200},
			domain.KPIDebtOutstanding: {Key: domain.KPIDebtOutstanding, Value: 2000},
			domain.KPICashFlow:        {Key: domain.KPICashFlow, Value: 1300},
			domain.KPISavingsRate:     {Key: domain.KPISavingsRate, Value: 0.4},
			domain.KPIInvestmentRate:  {Key: domain.KPIInvestmentRate, Value: 0.1},
			domain.KPIExpenseRatio:    {Key: domain.KPIExpenseRatio, Value: 0.6},
			domain.KPIDebtToIncome:    {Key: domain.KPIDebtToIncome, Value: 0.4},
		},
		TopExpense: domain.TopExpenseCategory{Label: "rent", Value: 0.5},
		Story:      "Original narrative.",
	}
}

func TestSimulator_OptimizeExpenses_ReducesExpenses(t *testing.T) {
	sim := NewSimulator(health.NewScorer())

	result := sim.Simulate(baseInsight(), []string{domain.ActionOptimizeExpenses})

	wantExpenses := 3000.0 * 0.95
	assert.InDelta(t, wantExpenses, result.ProjectedInsight.KPIs[domain.KPIExpenses].Value, 0.001)
	assert.InDelta(t, 3000.0*0.05, result.Adjustments[domain.ActionOptimizeExpenses], 0.001)
}

func TestSimulator_ImproveSavings_ClampsToUpperBound(t *testing.T) {
	sim := NewSimulator(health.NewScorer())

	insight := baseInsight()
	insight.KPIs[domain.KPISavingsRate] = domain.KPI{Key: domain.KPISavingsRate, Value: 0.79}

	result := sim.Simulate(insight, []string{domain.ActionImproveSavings})
	assert.LessOrEqual(t, result.ProjectedInsight.KPIs[domain.KPISavingsRate].Value, 0.8)
}

func TestSimulator_UnknownAction_NoOp(t *testing.T) {
	sim := NewSimulator(health.NewScorer())

	result := sim.Simulate(baseInsight(), []string{"not-a-real-action"})
	assert.Equal(t, 0.0, result.Adjustments["not-a-real-action"])
}

func TestSimulator_DoesNotMutateOriginalInsight(t *testing.T) {
	sim := NewSimulator(health.NewScorer())

	original := baseInsight()
	originalExpenses := original.KPIs[domain.KPIExpenses].Value

	sim.Simulate(original, []string{domain.ActionOptimizeExpenses})
	assert.Equal(t, originalExpenses, original.KPIs[domain.KPIExpenses].Value)
}

func TestSimulator_RegeneratesStoryWithProjectedSuffix(t *testing.T) {
	sim := NewSimulator(health.NewScorer())

	result := sim.Simulate(baseInsight(), []string{domain.ActionGrowIncome})
	require.NotEmpty(t, result.ProjectedInsight.Story)
	assert.Contains(t, result.ProjectedInsight.Story, "(projected)")
}

func TestSimulator_ProjectedHealthIsRescored(t *testing.T) {
	sim := NewSimulator(health.NewScorer())

	result := sim.Simulate(baseInsight(), []string{domain.ActionAccelerateDebt})
	require.NotNil(t, result.ProjectedHealth)
	assert.GreaterOrEqual(t, result.ProjectedHealth.Total, 0.0)
}

func TestSimulator_NoActions_CashFlowMatchesIncomeExpensesInvestmentsDebtPayments(t *testing.T) {
	sim := NewSimulator(health.NewScorer())

	insight := baseInsight()
	result := sim.Simulate(insight, nil)

	want := insight.KPIs[domain.KPIIncome].Value - insight.KPIs[domain.KPIExpenses].Value -
		insight.KPIs[domain.KPIInvestments].Value - insight.KPIs[domain.KPIDebtPayments].Value
	assert.InDelta(t, want, result.ProjectedInsight.KPIs[domain.KPICashFlow].Value, 1e-9)
	assert.InDelta(t, insight.KPIs[domain.KPICashFlow].Value, result.ProjectedInsight.KPIs[domain.KPICashFlow].Value, 1e-9)
}
