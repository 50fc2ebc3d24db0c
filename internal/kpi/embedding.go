package kpi

import (
	"math"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/util"
)

// InternalEmbeddingDimension is D for the built-in embedder (spec.md §4.2, §4.7).
const InternalEmbeddingDimension = domain.EmbeddingDimensionInternal

// InternalEmbed computes the 7-dimension fallback embedding vector used when
// no external embedding provider is configured (spec.md §4.2). The result is
// L2-normalised by the caller (vector store upsert), as required by §4.7/§8.
func InternalEmbed(insight *domain.MonthlyInsight) []float64 {
	income := insight.KPIs[domain.KPIIncome].Value
	expenses := insight.KPIs[domain.KPIExpenses].Value
	cashFlow := insight.KPIs[domain.KPICashFlow].Value
	savingsRate := insight.KPIs[domain.KPISavingsRate].Value
	investmentRate := insight.KPIs[domain.KPIInvestmentRate].Value
	debtToIncome := insight.KPIs[domain.KPIDebtToIncome].Value
	expenseRatio := insight.KPIs[domain.KPIExpenseRatio].Value

	scale := math.Max(income, math.Max(expenses, math.Max(math.Abs(cashFlow), 1)))

	return []float64{
		util.Clamp(income/scale, -1, 1),
		util.Clamp(expenses/scale, -1, 1),
		util.Clamp(cashFlow/scale, -1, 1),
		util.Clamp(savingsRate, 0, 1),
		util.Clamp(investmentRate, 0, 1),
		util.Clamp(debtToIncome, 0, 1),
		util.Clamp(expenseRatio, 0, 1),
	}
}

// L2Normalize returns a unit-length copy of v, or a zero vector if v is zero.
func L2Normalize(v []float64) []float64 {
	var sumSq float64
	for _, x := range v {
		sumSq += x * x
	}
	norm := math.Sqrt(sumSq)
	out := make([]float64, len(v))
	if norm == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
