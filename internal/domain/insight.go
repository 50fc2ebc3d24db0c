package domain

import (
	"context"
	"time"
)

// KPIUnit enumerates the unit a KPI value is expressed in.
type KPIUnit string

const (
	KPIUnitCurrency   KPIUnit = "currency"
	KPIUnitRatio      KPIUnit = "ratio"
	KPIUnitPercentage KPIUnit = "percentage"
)

// KPI is a single named numeric indicator (spec.md §3).
type KPI struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Unit  KPIUnit `json:"unit"`
	Delta *float64 `json:"delta,omitempty"`
	Goal  *float64 `json:"goal,omitempty"`
}

// Canonical KPI keys, fixed by spec.md §3.
const (
	KPIIncome              = "income"
	KPIExpenses            = "expenses"
	KPIInvestments         = "investments"
	KPIDebtPayments        = "debtPayments"
	KPICashFlow            = "cashFlow"
	KPISavingsRate         = "savingsRate"
	KPIInvestmentRate      = "investmentRate"
	KPIDebtToIncome        = "debtToIncome"
	KPIExpenseRatio        = "expenseRatio"
	KPIDebtOutstanding     = "debtOutstanding"
	KPINetWorth            = "netWorth"
	KPITopExpenseCategory  = "topExpenseCategory"
)

// Balances is the optional balances snapshot fed into computeMonthly.
type Balances struct {
	Cash        float64 `json:"cash"`
	Investments float64 `json:"investments"`
	Debt        float64 `json:"debt"`
}

// Goals maps a KPI key to a target value, consumed by the health scorer and
// action suggester (spec.md §4.3/§4.4).
type Goals map[string]float64

// TopExpenseCategory is the structured value behind the topExpenseCategory KPI.
type TopExpenseCategory struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// MonthlyInsight is the per-user, per-month aggregate computed by the KPI
// engine (spec.md §3, §4.2).
type MonthlyInsight struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Month     string         `json:"month"`
	KPIs      map[string]KPI `json:"kpis"`
	TopExpense TopExpenseCategory `json:"topExpenseCategory"`
	Story     string         `json:"story"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ComputeMonthlyInput is the pure-function input to the KPI engine.
type ComputeMonthlyInput struct {
	UserID       string
	TenantID     int32
	Month        string
	Transactions []*Transaction
	Balances     *Balances
	Goals        Goals
	Previous     *MonthlyInsight
}

// InsightRepository persists MonthlyInsight rows, upserting on (userId, month).
type InsightRepository interface {
	Upsert(ctx context.Context, insight *MonthlyInsight) error
	GetByUserMonth(ctx context.Context, userID, month string) (*MonthlyInsight, error)
	ListLatestPerUser(ctx context.Context, tenantID int32, month string) ([]*MonthlyInsight, error)
	List(ctx context.Context, userID string) ([]*MonthlyInsight, error)
}

// EmbeddingRecord is the vector stored alongside each insight (spec.md §3, §4.7).
type EmbeddingRecord struct {
	ID       string         `json:"id"`
	UserID   string         `json:"userId"`
	Vector   []float64      `json:"vector"`
	Metadata map[string]any `json:"metadata"`
}
