package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TransactionRepository implements domain.TransactionRepository using
// PostgreSQL. Amounts travel as decimal strings rather than a numeric
// codec, so no extra pgtype registration is required for shopspring/decimal.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create inserts a transaction, using externalReference as the secondary
// ON CONFLICT DO NOTHING dedup barrier described in spec.md §4.8. When the
// row already exists, it is returned with created=false.
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction, externalReference string) (*domain.Transaction, bool, error) {
	metadata, err := json.Marshal(tx.Metadata)
	if err != nil {
		return nil, false, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO transactions (tenant_id, customer_id, amount, currency, type, category, description, occurred_at, metadata, external_reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (tenant_id, external_reference) DO NOTHING
		RETURNING id, tenant_id, customer_id, amount, currency, type, category, description, occurred_at, metadata, external_reference, created_at
	`, tx.TenantID, tx.CustomerID, tx.Amount.String(), tx.Currency, string(tx.Type), tx.Category, tx.Description, tx.OccurredAt, metadata, externalReference)

	created, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.getByExternalReference(ctx, tx.TenantID, externalReference)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (r *TransactionRepository) getByExternalReference(ctx context.Context, tenantID int32, externalReference string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, customer_id, amount, currency, type, category, description, occurred_at, metadata, external_reference, created_at
		FROM transactions WHERE tenant_id = $1 AND external_reference = $2
	`, tenantID, externalReference)
	return scanTransaction(row)
}

func (r *TransactionRepository) GetByID(ctx context.Context, tenantID, customerID, id int32) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, customer_id, amount, currency, type, category, description, occurred_at, metadata, external_reference, created_at
		FROM transactions WHERE tenant_id = $1 AND customer_id = $2 AND id = $3
	`, tenantID, customerID, id)
	t, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

func (r *TransactionRepository) List(ctx context.Context, tenantID, customerID int32, filters domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	var typeFilter *string
	if filters.Type != nil {
		s := string(*filters.Type)
		typeFilter = &s
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, customer_id, amount, currency, type, category, description, occurred_at, metadata, external_reference, created_at
		FROM transactions
		WHERE tenant_id = $1 AND customer_id = $2
			AND ($3::text IS NULL OR to_char(occurred_at, 'YYYY-MM') = $3)
			AND ($4::text IS NULL OR type = $4)
		ORDER BY occurred_at DESC, id DESC
		LIMIT $5 OFFSET $6
	`, tenantID, customerID, nullableString(filters.Month), typeFilter, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var data []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		data = append(data, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM transactions
		WHERE tenant_id = $1 AND customer_id = $2
			AND ($3::text IS NULL OR to_char(occurred_at, 'YYYY-MM') = $3)
			AND ($4::text IS NULL OR type = $4)
	`, tenantID, customerID, nullableString(filters.Month), typeFilter).Scan(&total); err != nil {
		return nil, err
	}

	return &domain.PaginatedTransactions{Data: data, Page: page, PageSize: pageSize, TotalItems: total}, nil
}

func (r *TransactionRepository) ListByMonth(ctx context.Context, tenantID, customerID int32, month string) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, customer_id, amount, currency, type, category, description, occurred_at, metadata, external_reference, created_at
		FROM transactions
		WHERE tenant_id = $1 AND customer_id = $2 AND to_char(occurred_at, 'YYYY-MM') = $3
		ORDER BY occurred_at ASC, id ASC
	`, tenantID, customerID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	var amountStr string
	var txType string
	var metadata []byte
	if err := row.Scan(&t.ID, &t.TenantID, &t.CustomerID, &amountStr, &t.Currency, &txType, &t.Category, &t.Description, &t.OccurredAt, &metadata, &t.IdempotencyHandle, &t.CreatedAt); err != nil {
		return nil, err
	}
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	t.Amount = amount
	t.Type = domain.TransactionType(txType)
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &t.Metadata)
	}
	return &t, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
