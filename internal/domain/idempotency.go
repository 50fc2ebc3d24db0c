package domain

import (
	"context"
	"time"
)

// IdempotencyRecord guards exactly-once execution of a tool invocation for
// a given (tenantId, key) pair (spec.md §3, §4.8).
type IdempotencyRecord struct {
	ID              int64      `json:"id"`
	TenantID        int32      `json:"tenantId"`
	Key             string     `json:"key"`
	RequestHash     string     `json:"requestHash"`
	ResponsePayload []byte     `json:"responsePayload,omitempty"`
	LockedAt        *time.Time `json:"lockedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
}

// IdempotencyRepository implements the claim/replay protocol from spec.md §4.8.
type IdempotencyRepository interface {
	// Claim atomically inserts-or-locks the record for (tenantID, key). It
	// returns the current row after the attempt, whether it already held a
	// response, and whether the caller raced a requestHash mismatch.
	Claim(ctx context.Context, tenantID int32, key, requestHash string, ttl time.Duration) (rec *IdempotencyRecord, conflict bool, err error)
	Complete(ctx context.Context, tenantID int32, key string, responsePayload []byte) error
	ReleaseLock(ctx context.Context, tenantID int32, key string) error
	ReapExpired(ctx context.Context, before time.Time) (int64, error)
}
