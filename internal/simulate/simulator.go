// Package simulate implements the pure what-if transform from spec.md §4.5:
// (insight, selected actions) -> projected insight + projected health.
package simulate

import (
	"encoding/json"
	"fmt"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/health"
	"github.com/fadhilmayati/dompet-platform/internal/util"
)

type Simulator struct {
	scorer *health.Scorer
}

func NewSimulator(scorer *health.Scorer) *Simulator {
	return &Simulator{scorer: scorer}
}

// Simulate applies each selected action's fixed delta, refreshes derived
// KPIs, re-scores health, and regenerates the narrative (spec.md §4.5).
func (s *Simulator) Simulate(insight *domain.MonthlyInsight, actionIDs []string) *domain.SimulationResult {
	projected := deepCopyInsight(insight)
	adjustments := make(map[string]float64, len(actionIDs))

	income := projected.KPIs[domain.KPIIncome]
	expenses := projected.KPIs[domain.KPIExpenses]
	investments := projected.KPIs[domain.KPIInvestments]
	debtOutstanding := projected.KPIs[domain.KPIDebtOutstanding]
	savingsRate := projected.KPIs[domain.KPISavingsRate]

	for _, id := range actionIDs {
		switch id {
		case domain.ActionImproveSavings:
			delta := 0.03
			newRate := util.Clamp(savingsRate.Value+delta, 0, 0.8)
			actualDelta := newRate - savingsRate.Value
			savingsRate.Value = newRate
			if income.Value > 0 {
				moved := actualDelta * income.Value
				expenses.Value -= moved
			}
			adjustments[id] = actualDelta

		case domain.ActionOptimizeExpenses:
			reduction := expenses.Value * 0.05
			expenses.Value -= reduction
			adjustments[id] = reduction

		case domain.ActionAccelerateDebt:
			reduction := debtOutstanding.Value * 0.05
			debtOutstanding.Value -= reduction
			adjustments[id] = reduction

		case domain.ActionBoostInvestments:
			add := income.Value * 0.02
			investments.Value += add
			adjustments[id] = add

		case domain.ActionGrowIncome:
			growth := income.Value * 0.03
			income.Value += growth
			adjustments[id] = growth

		default:
			adjustments[id] = 0
		}
	}

	projected.KPIs[domain.KPIIncome] = income
	projected.KPIs[domain.KPIExpenses] = expenses
	projected.KPIs[domain.KPIInvestments] = investments
	projected.KPIs[domain.KPIDebtOutstanding] = debtOutstanding
	projected.KPIs[domain.KPISavingsRate] = savingsRate

	refreshDerived(projected)

	projectedHealth := s.scorer.Score(projected.KPIs)
	projected.Story = appendProjectedSuffix(regenerateStory(projected))

	return &domain.SimulationResult{
		ProjectedInsight: projected,
		ProjectedHealth:  projectedHealth,
		Adjustments:      adjustments,
	}
}

// refreshDerived recomputes cashFlow, savingsRate, investmentRate,
// expenseRatio, debtToIncome from primitives to keep the KPI set internally
// consistent after every selected action has been applied (spec.md §4.5).
func refreshDerived(insight *domain.MonthlyInsight) {
	income := insight.KPIs[domain.KPIIncome].Value
	expenses := insight.KPIs[domain.KPIExpenses].Value
	investments := insight.KPIs[domain.KPIInvestments].Value
	debtPayments := insight.KPIs[domain.KPIDebtPayments].Value
	debtOutstanding := insight.KPIs[domain.KPIDebtOutstanding].Value

	cashFlow := income - expenses - investments - debtPayments
	var savingsRate, investmentRate, expenseRatio, debtToIncome float64
	if income > 0 {
		savingsRate = util.Clamp((income-expenses)/income, 0, 1.5)
		investmentRate = util.Clamp(investments/income, 0, 1.5)
		expenseRatio = util.Clamp(expenses/income, 0, 2)
		debtToIncome = util.Clamp(debtOutstanding/income, 0, 2)
	}

	setValue(insight, domain.KPICashFlow, cashFlow)
	setValue(insight, domain.KPISavingsRate, savingsRate)
	setValue(insight, domain.KPIInvestmentRate, investmentRate)
	setValue(insight, domain.KPIExpenseRatio, expenseRatio)
	setValue(insight, domain.KPIDebtToIncome, debtToIncome)
}

func setValue(insight *domain.MonthlyInsight, key string, value float64) {
	k := insight.KPIs[key]
	k.Value = value
	insight.KPIs[key] = k
}

func deepCopyInsight(insight *domain.MonthlyInsight) *domain.MonthlyInsight {
	raw, _ := json.Marshal(insight)
	var copied domain.MonthlyInsight
	_ = json.Unmarshal(raw, &copied)
	return &copied
}

func appendProjectedSuffix(story string) string {
	return story + " (projected)"
}

// regenerateStory renders a short narrative for the projected insight. It
// mirrors the three-sentence shape of the monthly narrative (spec.md §4.2)
// without depending on the kpi package, keeping the simulator a leaf module.
func regenerateStory(insight *domain.MonthlyInsight) string {
	income := insight.KPIs[domain.KPIIncome].Value
	expenses := insight.KPIs[domain.KPIExpenses].Value
	cashFlow := insight.KPIs[domain.KPICashFlow].Value
	savingsRate := insight.KPIs[domain.KPISavingsRate].Value

	story := fmt.Sprintf(
		"If you follow through, %s would bring in %.0f and spend %.0f. "+
			"That leaves a projected cash flow of %.0f and a savings rate of %d%%. "+
			"Your biggest expense category would still be %s, at %d%% of total spending.",
		insight.Month, income, expenses, cashFlow, int(savingsRate*100+0.5),
		insight.TopExpense.Label, int(insight.TopExpense.Value*100+0.5),
	)
	return clampLength(story)
}

func clampLength(story string) string {
	const minLen, maxLen = 200, 400
	if len(story) > maxLen {
		return story[:maxLen-1] + "…"
	}
	for len(story) < minLen {
		story += "."
	}
	return story
}
