package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdempotencyRepository implements domain.IdempotencyRepository using
// PostgreSQL, backing the tool registry's claim/replay protocol (spec.md
// §4.8) with a unique (tenant_id, key) constraint.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Claim atomically inserts-or-locks the record for (tenantID, key) via
// ON CONFLICT DO UPDATE, per spec.md §4.8 step 2.
func (r *IdempotencyRepository) Claim(ctx context.Context, tenantID int32, key, requestHash string, ttl time.Duration) (*domain.IdempotencyRecord, bool, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO idempotency_records (tenant_id, key, request_hash, locked_at, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $4, $5)
		ON CONFLICT (tenant_id, key) DO UPDATE SET locked_at = $4
		RETURNING id, tenant_id, key, request_hash, response_payload, locked_at, created_at, expires_at
	`, tenantID, key, requestHash, now, expiresAt)

	rec, err := scanIdempotencyRecord(row)
	if err != nil {
		return nil, false, err
	}
	if rec.RequestHash != requestHash {
		return rec, true, nil
	}
	return rec, false, nil
}

func (r *IdempotencyRepository) Complete(ctx context.Context, tenantID int32, key string, responsePayload []byte) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE idempotency_records SET response_payload = $3, locked_at = NULL
		WHERE tenant_id = $1 AND key = $2
	`, tenantID, key, responsePayload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *IdempotencyRepository) ReleaseLock(ctx context.Context, tenantID int32, key string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE idempotency_records SET locked_at = NULL
		WHERE tenant_id = $1 AND key = $2
	`, tenantID, key)
	return err
}

// ReapExpired deletes in-flight (no response recorded) records past their
// expiry, so a cancelled request's lock never blocks its key forever
// (spec.md §5 "Cancellation").
func (r *IdempotencyRepository) ReapExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM idempotency_records
		WHERE response_payload IS NULL AND expires_at IS NOT NULL AND expires_at < $1
	`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanIdempotencyRecord(row pgx.Row) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	if err := row.Scan(&rec.ID, &rec.TenantID, &rec.Key, &rec.RequestHash, &rec.ResponsePayload, &rec.LockedAt, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
