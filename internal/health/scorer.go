// Package health implements the pure health-scoring transform from
// spec.md §4.3: KPI set -> weighted [0,1] score with per-component rationale.
package health

import (
	"fmt"
	"math"
	"sort"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/util"
)

type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

// Score computes the HealthScore for a given KPI map (spec.md §4.3).
func (s *Scorer) Score(kpis map[string]domain.KPI) *domain.HealthScore {
	income := kpis[domain.KPIIncome].Value
	cashFlow := kpis[domain.KPICashFlow].Value
	savingsRate := kpis[domain.KPISavingsRate].Value
	debtToIncome := kpis[domain.KPIDebtToIncome].Value
	investmentRate := kpis[domain.KPIInvestmentRate].Value

	cashFlowScore := scoreCashFlow(income, cashFlow)
	savingsScore := round3(util.Clamp(savingsRate, 0, 1))
	debtScore := scoreDebtToIncome(debtToIncome)
	investScore := round3(util.Clamp(investmentRate/0.3, 0, 1))

	components := []domain.HealthComponent{
		{Key: domain.KPICashFlow, Label: "Cash flow", Score: cashFlowScore, Weight: domain.WeightCashFlow, Rationale: fmt.Sprintf("cash flow of %.2f against income of %.2f", cashFlow, income)},
		{Key: domain.KPISavingsRate, Label: "Savings rate", Score: savingsScore, Weight: domain.WeightSavingsRate, Rationale: fmt.Sprintf("savings rate of %.1f%%", savingsRate*100)},
		{Key: domain.KPIDebtToIncome, Label: "Debt to income", Score: debtScore, Weight: domain.WeightDebtToIncome, Rationale: fmt.Sprintf("debt-to-income ratio of %.2f", debtToIncome)},
		{Key: domain.KPIInvestmentRate, Label: "Investment rate", Score: investScore, Weight: domain.WeightInvestmentRate, Rationale: fmt.Sprintf("investment rate of %.1f%%", investmentRate*100)},
	}

	var total float64
	for _, c := range components {
		total += c.Weight * c.Score
	}

	return &domain.HealthScore{
		Total:      round3(total),
		Components: components,
		Notes:      notesFor(kpis, components),
	}
}

func scoreCashFlow(income, cashFlow float64) float64 {
	if income <= 0 {
		return 0.5
	}
	return round3(util.Clamp((cashFlow/income+1)/2, 0, 1))
}

func scoreDebtToIncome(debtRatio float64) float64 {
	if debtRatio <= 0 {
		return 1
	}
	return round3(util.Clamp(1-debtRatio, 0, 1))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// notesFor surfaces any KPI failing its declared goal; if none fail, the
// lowest-scoring component's label is surfaced instead (spec.md §4.3).
func notesFor(kpis map[string]domain.KPI, components []domain.HealthComponent) []string {
	var notes []string
	keys := make([]string, 0, len(kpis))
	for k := range kpis {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		kpi := kpis[k]
		if kpi.Goal == nil {
			continue
		}
		// Ceiling-style KPIs fail when they exceed their goal; the rest are
		// floor-style and fail when they fall short (mirrors the action
		// suggester's trigger directions in spec.md §4.4).
		ceiling := k == domain.KPIExpenseRatio || k == domain.KPIDebtToIncome
		if ceiling && kpi.Value > *kpi.Goal {
			notes = append(notes, fmt.Sprintf("%s is above its goal of %.2f", kpi.Label, *kpi.Goal))
		} else if !ceiling && kpi.Value < *kpi.Goal {
			notes = append(notes, fmt.Sprintf("%s is below its goal of %.2f", kpi.Label, *kpi.Goal))
		}
	}
	if len(notes) > 0 {
		return notes
	}

	lowest := components[0]
	for _, c := range components[1:] {
		if c.Score < lowest.Score {
			lowest = c
		}
	}
	return []string{fmt.Sprintf("%s is your lowest-scoring area", lowest.Label)}
}
