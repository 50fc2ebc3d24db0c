package action

import (
	"testing"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuggester_Suggest_FiresAllFailingRules(t *testing.T) {
	suggester := NewSuggester()

	kpis := map[string]domain.KPI{
		domain.KPIIncome:         {Value: 5000},
		domain.KPISavingsRate:    {Value: 0.05},
		domain.KPIExpenseRatio:   {Value: 0.7},
		domain.KPIDebtToIncome:   {Value: 0.5},
		domain.KPIInvestmentRate: {Value: 0.02},
	}
	h := &domain.HealthScore{
		Components: []domain.HealthComponent{
			{Key: domain.KPICashFlow, Score: 0.2},
		},
	}

	actions := suggester.Suggest(kpis, h)

	ids := make([]string, len(actions))
	for i, a := range actions {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{
		domain.ActionImproveSavings,
		domain.ActionOptimizeExpenses,
		domain.ActionAccelerateDebt,
		domain.ActionBoostInvestments,
		domain.ActionGrowIncome,
	}, ids)
}

func TestSuggester_Suggest_StayTheCourseWhenNothingFails(t *testing.T) {
	suggester := NewSuggester()

	kpis := map[string]domain.KPI{
		domain.KPIIncome:         {Value: 5000},
		domain.KPISavingsRate:    {Value: 0.3},
		domain.KPIExpenseRatio:   {Value: 0.3},
		domain.KPIDebtToIncome:   {Value: 0.1},
		domain.KPIInvestmentRate: {Value: 0.2},
	}
	h := &domain.HealthScore{
		Components: []domain.HealthComponent{
			{Key: domain.KPICashFlow, Score: 0.9},
		},
	}

	actions := suggester.Suggest(kpis, h)
	require.Len(t, actions, 1)
	assert.Equal(t, domain.ActionStayTheCourse, actions[0].ID)
}

func TestImpact_ClampsScoreDeltaAndFloorsBase(t *testing.T) {
	a := domain.SuggestedAction{Category: "expense"}

	impact, scoreDelta := Impact(a, 1000, 10, 0.1)
	assert.Greater(t, impact, 0.0)
	assert.LessOrEqual(t, scoreDelta, 0.15)
}
