// Package action implements the pure action-suggestion transform from
// spec.md §4.4: (KPIs, health) -> ordered list of suggested actions.
package action

import (
	"fmt"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
)

// Default goal thresholds used when the caller supplies none (spec.md §4.4).
const (
	DefaultSavingsRateGoal    = 0.2
	DefaultExpenseRatioGoal   = 0.5
	DefaultDebtToIncomeGoal   = 0.35
	DefaultInvestmentRateGoal = 0.15
)

type Suggester struct{}

func NewSuggester() *Suggester { return &Suggester{} }

// Suggest fires the fixed-order rule table from spec.md §4.4. Each id
// appears at most once; impact/scoreDelta are left zero here and filled by
// the API layer per spec.md §4.4's closing formulas.
func (s *Suggester) Suggest(kpis map[string]domain.KPI, h *domain.HealthScore) []domain.SuggestedAction {
	income := kpis[domain.KPIIncome].Value
	savingsRate := kpis[domain.KPISavingsRate].Value
	expenseRatio := kpis[domain.KPIExpenseRatio].Value
	debtToIncome := kpis[domain.KPIDebtToIncome].Value
	investmentRate := kpis[domain.KPIInvestmentRate].Value

	savingsGoal := goalOr(kpis[domain.KPISavingsRate].Goal, DefaultSavingsRateGoal)
	expenseGoal := goalOr(kpis[domain.KPIExpenseRatio].Goal, DefaultExpenseRatioGoal)
	debtGoal := goalOr(kpis[domain.KPIDebtToIncome].Goal, DefaultDebtToIncomeGoal)
	investGoal := goalOr(kpis[domain.KPIInvestmentRate].Goal, DefaultInvestmentRateGoal)

	var actions []domain.SuggestedAction

	if savingsRate < savingsGoal {
		actions = append(actions, domain.SuggestedAction{
			ID: domain.ActionImproveSavings, Title: "Improve your savings rate",
			Description: "Redirect a slice of discretionary spending into savings.",
			Category:    "savings",
			Rationale:   fmt.Sprintf("savings rate %.1f%% is below the %.1f%% goal", savingsRate*100, savingsGoal*100),
		})
	}
	if expenseRatio > expenseGoal {
		actions = append(actions, domain.SuggestedAction{
			ID: domain.ActionOptimizeExpenses, Title: "Optimize your expenses",
			Description: "Trim recurring expenses that exceed your target spending ratio.",
			Category:    "expense",
			Rationale:   fmt.Sprintf("expense ratio %.1f%% is above the %.1f%% goal", expenseRatio*100, expenseGoal*100),
		})
	}
	if debtToIncome > debtGoal {
		actions = append(actions, domain.SuggestedAction{
			ID: domain.ActionAccelerateDebt, Title: "Accelerate debt payoff",
			Description: "Put extra cash flow toward your highest-interest debt.",
			Category:    "debt",
			Rationale:   fmt.Sprintf("debt-to-income %.2f is above the %.2f goal", debtToIncome, debtGoal),
		})
	}
	if investmentRate < investGoal {
		actions = append(actions, domain.SuggestedAction{
			ID: domain.ActionBoostInvestments, Title: "Boost your investments",
			Description: "Increase your monthly contribution toward investments.",
			Category:    "investment",
			Rationale:   fmt.Sprintf("investment rate %.1f%% is below the %.1f%% goal", investmentRate*100, investGoal*100),
		})
	}
	if income > 0 {
		if cf := componentScore(h, domain.KPICashFlow); cf < 0.5 {
			actions = append(actions, domain.SuggestedAction{
				ID: domain.ActionGrowIncome, Title: "Grow your income",
				Description: "Explore additional income streams to widen your cash flow margin.",
				Category:    "income",
				Rationale:   fmt.Sprintf("cash flow health component %.2f is below 0.5", cf),
			})
		}
	}
	if len(actions) == 0 {
		actions = append(actions, domain.SuggestedAction{
			ID: domain.ActionStayTheCourse, Title: "Stay the course",
			Description: "Your finances are on track across every tracked goal.",
			Category:    "savings",
			Rationale:   "no KPI is currently missing its goal",
		})
	}

	for i := range actions {
		actions[i].ExpectedImpact = expectedImpactText(actions[i].ID)
	}
	return actions
}

func componentScore(h *domain.HealthScore, key string) float64 {
	for _, c := range h.Components {
		if c.Key == key {
			return c.Score
		}
	}
	return 0
}

func goalOr(g *float64, def float64) float64 {
	if g == nil {
		return def
	}
	return *g
}

func expectedImpactText(id string) string {
	switch id {
	case domain.ActionImproveSavings:
		return "Raises your savings rate and strengthens your cash buffer."
	case domain.ActionOptimizeExpenses:
		return "Frees up cash flow by trimming non-essential spending."
	case domain.ActionAccelerateDebt:
		return "Reduces outstanding debt and interest paid over time."
	case domain.ActionBoostInvestments:
		return "Compounds toward long-term net worth growth."
	case domain.ActionGrowIncome:
		return "Widens your margin between income and obligations."
	default:
		return "Keeps your current trajectory steady."
	}
}

// Impact computes the API-layer impact/scoreDelta formulas from spec.md §4.4.
func Impact(a domain.SuggestedAction, income, cashFlow, healthTotal float64) (impactMYR, scoreDelta float64) {
	k := domain.ActionCategoryMultipliers[a.Category]
	absCF := cashFlow
	if absCF < 0 {
		absCF = -absCF
	}
	base := absCF
	if income*0.05 > base {
		base = income * 0.05
	}
	if 100 > base {
		base = 100
	}
	impactMYR = base * k
	scoreDelta = (1 - healthTotal) * k
	if scoreDelta > 0.15 {
		scoreDelta = 0.15
	}
	return
}
