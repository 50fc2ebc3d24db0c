package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerRepository implements domain.CustomerRepository using PostgreSQL.
// metadata.preferences and metadata.profile are stored inline on the same
// jsonb column (spec.md §3 "Customer").
type CustomerRepository struct {
	pool *pgxpool.Pool
}

func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

func (r *CustomerRepository) GetOrCreate(ctx context.Context, tenantID int32, externalReference string) (*domain.Customer, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO customers (tenant_id, external_reference, metadata)
		VALUES ($1, $2, '{}'::jsonb)
		ON CONFLICT (tenant_id, external_reference) DO UPDATE SET external_reference = EXCLUDED.external_reference
		RETURNING id, tenant_id, external_reference, metadata, created_at, updated_at
	`, tenantID, externalReference)
	return scanCustomer(row)
}

func (r *CustomerRepository) GetByID(ctx context.Context, tenantID, id int32) (*domain.Customer, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, external_reference, metadata, created_at, updated_at
		FROM customers WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	return c, err
}

func (r *CustomerRepository) UpdatePreferences(ctx context.Context, tenantID, id int32, prefs domain.CustomerPreferences) (*domain.Customer, error) {
	existing, err := r.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	existing.Preferences = prefs
	metadata := mergeCustomerMetadata(existing)

	row := r.pool.QueryRow(ctx, `
		UPDATE customers SET metadata = $3, updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING id, tenant_id, external_reference, metadata, created_at, updated_at
	`, tenantID, id, metadata)
	return scanCustomer(row)
}

func (r *CustomerRepository) ListOptedIn(ctx context.Context, tenantID int32) ([]*domain.Customer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, external_reference, metadata, created_at, updated_at
		FROM customers
		WHERE tenant_id = $1 AND (metadata #>> '{preferences,allowBenchmarking}') = 'true'
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// customerMetadata is the on-disk shape of the customers.metadata column:
// preferences and profile nest under it, plus any caller-supplied extras.
type customerMetadata struct {
	Preferences domain.CustomerPreferences `json:"preferences"`
	Profile     domain.CustomerProfile     `json:"profile"`
	Extra       map[string]any             `json:"-"`
}

func mergeCustomerMetadata(c *domain.Customer) []byte {
	merged := make(map[string]any, len(c.Metadata)+2)
	for k, v := range c.Metadata {
		merged[k] = v
	}
	merged["preferences"] = c.Preferences
	merged["profile"] = c.Profile
	raw, _ := json.Marshal(merged)
	return raw
}

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	var metadata []byte
	if err := row.Scan(&c.ID, &c.TenantID, &c.ExternalReference, &metadata, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		var full map[string]any
		if err := json.Unmarshal(metadata, &full); err == nil {
			c.Metadata = full
		}
		var m customerMetadata
		if err := json.Unmarshal(metadata, &m); err == nil {
			c.Preferences = m.Preferences
			c.Profile = m.Profile
		}
	}
	return &c, nil
}
