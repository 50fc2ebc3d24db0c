package kpi

import (
	"testing"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func category(c string) *string { return &c }

func TestEngine_ComputeMonthly_BasicAggregation(t *testing.T) {
	engine := NewEngine()

	groceries := category("groceries")
	rent := category("rent")

	input := domain.ComputeMonthlyInput{
		UserID: "user-1",
		Month:  "2026-06",
		Transactions: []*domain.Transaction{
			{Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(5000)},
			{Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(1200), Category: rent},
			{Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(300), Category: groceries},
			{Type: domain.TransactionTypeInvestment, Amount: decimal.NewFromInt(500)},
			{Type: domain.TransactionTypeDebt, Amount: decimal.NewFromInt(200)},
		},
		Balances: &domain.Balances{Cash: 10000, Investments: 20000, Debt: 5000},
	}

	insight := engine.ComputeMonthly(input)

	require.Contains(t, insight.KPIs, domain.KPIIncome)
	assert.Equal(t, 5000.0, insight.KPIs[domain.KPIIncome].Value)
	assert.Equal(t, 1500.0, insight.KPIs[domain.KPIExpenses].Value)
	assert.Equal(t, 500.0, insight.KPIs[domain.KPIInvestments].Value)
	assert.Equal(t, 200.0, insight.KPIs[domain.KPIDebtPayments].Value)

	wantCashFlow := 5000.0 - 1500.0 - 500.0 - 200.0
	assert.Equal(t, wantCashFlow, insight.KPIs[domain.KPICashFlow].Value)

	assert.Equal(t, "rent", insight.TopExpense.Label)
	assert.InDelta(t, 0.8, insight.TopExpense.Value, 0.001)

	assert.Equal(t, 25000.0, insight.KPIs[domain.KPINetWorth].Value)
	assert.Nil(t, insight.KPIs[domain.KPINetWorth].Delta)

	assert.GreaterOrEqual(t, len(insight.Story), 200)
	assert.LessOrEqual(t, len(insight.Story), 400)
}

func TestEngine_ComputeMonthly_ZeroIncomeFallback(t *testing.T) {
	engine := NewEngine()

	input := domain.ComputeMonthlyInput{
		UserID: "user-2",
		Month:  "2026-06",
		Transactions: []*domain.Transaction{
			{Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(100)},
		},
	}

	insight := engine.ComputeMonthly(input)

	assert.Equal(t, 0.0, insight.KPIs[domain.KPISavingsRate].Value)
	assert.Equal(t, 0.0, insight.KPIs[domain.KPIInvestmentRate].Value)
	assert.Equal(t, 0.0, insight.KPIs[domain.KPIExpenseRatio].Value)
	assert.Equal(t, 0.0, insight.KPIs[domain.KPIDebtToIncome].Value)
}

func TestEngine_ComputeMonthly_NetWorthDelta(t *testing.T) {
	engine := NewEngine()

	previous := &domain.MonthlyInsight{
		KPIs: map[string]domain.KPI{
			domain.KPINetWorth: {Key: domain.KPINetWorth, Value: 10000},
		},
	}

	input := domain.ComputeMonthlyInput{
		UserID:   "user-3",
		Month:    "2026-06",
		Balances: &domain.Balances{Cash: 8000, Investments: 6000, Debt: 1000},
		Previous: previous,
	}

	insight := engine.ComputeMonthly(input)

	require.NotNil(t, insight.KPIs[domain.KPINetWorth].Delta)
	assert.Equal(t, 3000.0, *insight.KPIs[domain.KPINetWorth].Delta)
}

func TestTopExpenseCategory_TieBreakIsDeterministic(t *testing.T) {
	byCategory := map[string]decimal.Decimal{
		"zeta":  decimal.NewFromInt(100),
		"alpha": decimal.NewFromInt(100),
	}
	top := topExpenseCategory(byCategory, 200)
	assert.Equal(t, "alpha", top.Label)
}

func TestInternalEmbed_DimensionAndNormalization(t *testing.T) {
	insight := &domain.MonthlyInsight{
		KPIs: map[string]domain.KPI{
			domain.KPIIncome:         {Value: 5000},
			domain.KPIExpenses:       {Value: 2000},
			domain.KPICashFlow:       {Value: 1000},
			domain.KPISavingsRate:    {Value: 0.4},
			domain.KPIInvestmentRate: {Value: 0.1},
			domain.KPIDebtToIncome:   {Value: 0.2},
			domain.KPIExpenseRatio:   {Value: 0.4},
		},
	}

	vec := InternalEmbed(insight)
	require.Len(t, vec, InternalEmbeddingDimension)

	normalized := L2Normalize(vec)
	var sumSq float64
	for _, v := range normalized {
		sumSq += v * v
	}
	assert.InDelta(t, 1.0, sumSq, 0.0001)
}

func TestL2Normalize_ZeroVector(t *testing.T) {
	out := L2Normalize([]float64{0, 0, 0})
	assert.Equal(t, []float64{0, 0, 0}, out)
}
