package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantRepository implements domain.TenantRepository using PostgreSQL.
type TenantRepository struct {
	pool *pgxpool.Pool
}

func NewTenantRepository(pool *pgxpool.Pool) *TenantRepository {
	return &TenantRepository{pool: pool}
}

// GetOrCreateBySlug resolves a tenant row, creating it lazily on first use
// (spec.md §3 "Tenant").
func (r *TenantRepository) GetOrCreateBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tenants (slug, metadata)
		VALUES ($1, '{}'::jsonb)
		ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
		RETURNING id, slug, metadata, created_at
	`, slug)
	return scanTenant(row)
}

func (r *TenantRepository) GetByID(ctx context.Context, id int32) (*domain.Tenant, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, slug, metadata, created_at FROM tenants WHERE id = $1`, id)
	t, err := scanTenant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	return t, err
}

func scanTenant(row pgx.Row) (*domain.Tenant, error) {
	var t domain.Tenant
	var metadata []byte
	if err := row.Scan(&t.ID, &t.Slug, &metadata, &t.CreatedAt); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &t.Metadata)
	}
	return &t, nil
}
