// Package kpi implements the pure monthly aggregation transform described in
// spec.md §4.2: (transactions, balances, goals, previous) -> KPI set,
// deterministic narrative, and an embedding vector.
package kpi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/util"
	"github.com/shopspring/decimal"
)

// Engine computes MonthlyInsight values. It holds no state; every method is
// referentially transparent given its arguments (spec.md §8).
type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// ComputeMonthly is the pure aggregation function from spec.md §4.2.
func (e *Engine) ComputeMonthly(input domain.ComputeMonthlyInput) *domain.MonthlyInsight {
	var income, expenses, investments, debtPayments decimal.Decimal
	expenseByCategory := map[string]decimal.Decimal{}

	for _, tx := range input.Transactions {
		abs := tx.Amount.Abs()
		switch tx.Type {
		case domain.TransactionTypeIncome:
			income = income.Add(abs)
		case domain.TransactionTypeExpense:
			expenses = expenses.Add(abs)
			cat := "general expenses"
			if tx.Category != nil && strings.TrimSpace(*tx.Category) != "" {
				cat = *tx.Category
			}
			expenseByCategory[cat] = expenseByCategory[cat].Add(abs)
		case domain.TransactionTypeInvestment:
			investments = investments.Add(abs)
		case domain.TransactionTypeDebt:
			debtPayments = debtPayments.Add(abs)
		}
	}

	incomeF, _ := income.Float64()
	expensesF, _ := expenses.Float64()
	investmentsF, _ := investments.Float64()
	debtPaymentsF, _ := debtPayments.Float64()

	cashFlow := incomeF - expensesF - investmentsF - debtPaymentsF

	var savingsRate, investmentRate, expenseRatio, debtToIncome float64
	if incomeF > 0 {
		savingsRate = util.Clamp((incomeF-expensesF)/incomeF, 0, 1.5)
		investmentRate = util.Clamp(investmentsF/incomeF, 0, 1.5)
		expenseRatio = util.Clamp(expensesF/incomeF, 0, 2)
	}

	var debtOutstanding float64
	var cash, investBalance float64
	if input.Balances != nil {
		debtOutstanding = input.Balances.Debt
		cash = input.Balances.Cash
		investBalance = input.Balances.Investments
	}
	if incomeF > 0 {
		debtToIncome = util.Clamp(debtOutstanding/incomeF, 0, 2)
	}

	netWorth := cash + investBalance - debtOutstanding
	var netWorthDelta *float64
	if input.Previous != nil {
		if prevKPI, ok := input.Previous.KPIs[domain.KPINetWorth]; ok {
			d := netWorth - prevKPI.Value
			netWorthDelta = &d
		}
	}

	top := topExpenseCategory(expenseByCategory, expensesF)

	kpis := map[string]domain.KPI{
		domain.KPIIncome:          {Key: domain.KPIIncome, Label: "Income", Value: incomeF, Unit: domain.KPIUnitCurrency},
		domain.KPIExpenses:        {Key: domain.KPIExpenses, Label: "Expenses", Value: expensesF, Unit: domain.KPIUnitCurrency},
		domain.KPIInvestments:     {Key: domain.KPIInvestments, Label: "Investments", Value: investmentsF, Unit: domain.KPIUnitCurrency},
		domain.KPIDebtPayments:    {Key: domain.KPIDebtPayments, Label: "Debt payments", Value: debtPaymentsF, Unit: domain.KPIUnitCurrency},
		domain.KPICashFlow:        {Key: domain.KPICashFlow, Label: "Cash flow", Value: cashFlow, Unit: domain.KPIUnitCurrency},
		domain.KPISavingsRate:     {Key: domain.KPISavingsRate, Label: "Savings rate", Value: savingsRate, Unit: domain.KPIUnitRatio, Goal: goalFor(input.Goals, domain.KPISavingsRate)},
		domain.KPIInvestmentRate:  {Key: domain.KPIInvestmentRate, Label: "Investment rate", Value: investmentRate, Unit: domain.KPIUnitRatio, Goal: goalFor(input.Goals, domain.KPIInvestmentRate)},
		domain.KPIDebtToIncome:    {Key: domain.KPIDebtToIncome, Label: "Debt to income", Value: debtToIncome, Unit: domain.KPIUnitRatio, Goal: goalFor(input.Goals, domain.KPIDebtToIncome)},
		domain.KPIExpenseRatio:    {Key: domain.KPIExpenseRatio, Label: "Expense ratio", Value: expenseRatio, Unit: domain.KPIUnitRatio, Goal: goalFor(input.Goals, domain.KPIExpenseRatio)},
		domain.KPIDebtOutstanding: {Key: domain.KPIDebtOutstanding, Label: "Debt outstanding", Value: debtOutstanding, Unit: domain.KPIUnitCurrency},
		domain.KPINetWorth:        {Key: domain.KPINetWorth, Label: "Net worth", Value: netWorth, Unit: domain.KPIUnitCurrency, Delta: netWorthDelta},
	}

	insight := &domain.MonthlyInsight{
		ID:         input.UserID + ":" + input.Month,
		UserID:     input.UserID,
		Month:      input.Month,
		KPIs:       kpis,
		TopExpense: top,
	}
	insight.Story = buildStory(insight)
	return insight
}

func goalFor(goals domain.Goals, key string) *float64 {
	if goals == nil {
		return nil
	}
	if v, ok := goals[key]; ok {
		return &v
	}
	return nil
}

func topExpenseCategory(byCategory map[string]decimal.Decimal, totalExpenses float64) domain.TopExpenseCategory {
	if len(byCategory) == 0 || totalExpenses <= 0 {
		return domain.TopExpenseCategory{Label: "general expenses", Value: 0}
	}
	// Deterministic: break ties by category name.
	keys := make([]string, 0, len(byCategory))
	for k := range byCategory {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	bestLabel := keys[0]
	bestAmount := byCategory[keys[0]]
	for _, k := range keys[1:] {
		if byCategory[k].GreaterThan(bestAmount) {
			bestLabel = k
			bestAmount = byCategory[k]
		}
	}
	amountF, _ := bestAmount.Float64()
	share := util.Clamp(amountF/totalExpenses, 0, 1)
	return domain.TopExpenseCategory{Label: bestLabel, Value: share}
}

// buildStory renders the deterministic three-sentence narrative described in
// spec.md §4.2, padded/truncated to land in [200, 400] characters.
func buildStory(insight *domain.MonthlyInsight) string {
	income := insight.KPIs[domain.KPIIncome].Value
	expenses := insight.KPIs[domain.KPIExpenses].Value
	cashFlow := insight.KPIs[domain.KPICashFlow].Value
	savingsRate := insight.KPIs[domain.KPISavingsRate].Value

	s1 := fmt.Sprintf("In %s you brought in %s and spent %s.", insight.Month, formatCurrency(income), formatCurrency(expenses))
	s2 := fmt.Sprintf("That left you with a cash flow of %s, a savings rate of %d%%.", formatCurrency(cashFlow), int(round(savingsRate*100)))
	s3 := fmt.Sprintf("Your biggest expense category was %s, at %d%% of total spending.", insight.TopExpense.Label, int(round(insight.TopExpense.Value*100)))

	story := s1 + " " + s2 + " " + s3
	return clampStoryLength(story)
}

func clampStoryLength(story string) string {
	const minLen, maxLen = 200, 400
	if len(story) > maxLen {
		return story[:maxLen-1] + "…"
	}
	for len(story) < minLen {
		story += "."
	}
	return story
}

func formatCurrency(v float64) string {
	return fmt.Sprintf("%.0f", round(v))
}

func round(v float64) float64 {
	if v >= 0 {
		return float64(int64(v + 0.5))
	}
	return float64(int64(v - 0.5))
}
