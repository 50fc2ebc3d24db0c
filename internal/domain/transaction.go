package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType enumerates the kinds of money movement the KPI engine
// aggregates over (spec.md §3).
type TransactionType string

const (
	TransactionTypeIncome     TransactionType = "income"
	TransactionTypeExpense    TransactionType = "expense"
	TransactionTypeInvestment TransactionType = "investment"
	TransactionTypeDebt       TransactionType = "debt"
	TransactionTypeTransfer   TransactionType = "transfer"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeInvestment, TransactionTypeDebt, TransactionTypeTransfer:
		return true
	}
	return false
}

// Transaction is a single ledger entry belonging to exactly one customer of
// one tenant.
type Transaction struct {
	ID                int32           `json:"id"`
	TenantID          int32           `json:"tenantId"`
	CustomerID        int32           `json:"customerId"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	Type              TransactionType `json:"type"`
	Category          *string         `json:"category,omitempty"`
	Description       *string         `json:"description,omitempty"`
	OccurredAt        time.Time       `json:"occurredAt"`
	Metadata          map[string]any  `json:"metadata,omitempty"`
	IdempotencyHandle string          `json:"idempotencyHandle,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// NewTransactionInput is the caller-supplied shape for transactions.create.
type NewTransactionInput struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Type            TransactionType `json:"type"`
	Category        *string         `json:"category,omitempty"`
	Description     *string         `json:"description,omitempty"`
	Notes           *string         `json:"notes,omitempty"`
	OccurredAt      time.Time       `json:"occurredAt"`
	IdempotencyKey  string          `json:"idempotencyKey,omitempty"`
}

// TransactionFilters scopes TransactionRepository.List.
type TransactionFilters struct {
	Month     string // YYYY-MM, optional
	Type      *TransactionType
	Page      int32
	PageSize  int32
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginatedTransactions struct {
	Data       []*Transaction `json:"data"`
	Page       int32          `json:"page"`
	PageSize   int32          `json:"pageSize"`
	TotalItems int64          `json:"totalItems"`
}

// TransactionRepository persists Transaction rows, tenant- and
// customer-scoped.
type TransactionRepository interface {
	Create(ctx context.Context, tx *Transaction, externalReference string) (*Transaction, bool, error)
	GetByID(ctx context.Context, tenantID, customerID, id int32) (*Transaction, error)
	List(ctx context.Context, tenantID, customerID int32, filters TransactionFilters) (*PaginatedTransactions, error)
	ListByMonth(ctx context.Context, tenantID, customerID int32, month string) ([]*Transaction, error)
}
