package tool

import (
	"context"
	"testing"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func echoTool() *Tool {
	return &Tool{
		Name: "echo.test",
		Validate: func(input map[string]any) ([]string, bool) {
			if _, ok := input["value"]; !ok {
				return []string{"value is required"}, false
			}
			return nil, true
		},
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			return map[string]any{"echoed": input["value"]}, nil
		},
	}
}

func TestRegistry_Invoke_WithoutIdempotencyKeyRunsEveryTime(t *testing.T) {
	idempotency := testutil.NewMockIdempotencyRepository()
	r := NewRegistry(idempotency)
	et := echoTool()
	r.Register(et)

	result, err := r.Invoke(context.Background(), 1, et, map[string]any{"value": "a"}, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
	assert.False(t, result.Replayed)
}

func TestRegistry_Invoke_ValidationFailureReturnsErrorResult(t *testing.T) {
	idempotency := testutil.NewMockIdempotencyRepository()
	r := NewRegistry(idempotency)
	et := echoTool()
	r.Register(et)

	result, err := r.Invoke(context.Background(), 1, et, map[string]any{}, "")
	require.NoError(t, err)
	assert.Equal(t, "error", result.Status)
	assert.Equal(t, "VALIDATION_ERROR", result.Code)
}

func TestRegistry_Invoke_SameKeyReplaysInsteadOfRerunning(t *testing.T) {
	idempotency := testutil.NewMockIdempotencyRepository()
	r := NewRegistry(idempotency)

	calls := 0
	et := &Tool{
		Name:     "counting.test",
		Validate: func(input map[string]any) ([]string, bool) { return nil, true },
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			calls++
			return map[string]any{"calls": calls}, nil
		},
	}
	r.Register(et)

	first, err := r.Invoke(context.Background(), 1, et, map[string]any{"value": "a"}, "key-1")
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := r.Invoke(context.Background(), 1, et, map[string]any{"value": "a"}, "key-1")
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, 1, calls)
}

func TestRegistry_Invoke_ConflictingPayloadSameKeyReturnsConflict(t *testing.T) {
	idempotency := testutil.NewMockIdempotencyRepository()
	r := NewRegistry(idempotency)
	et := echoTool()
	r.Register(et)

	_, err := r.Invoke(context.Background(), 1, et, map[string]any{"value": "a"}, "key-1")
	require.NoError(t, err)

	result, err := r.Invoke(context.Background(), 1, et, map[string]any{"value": "b"}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "error", result.Status)
	assert.Equal(t, string(domain.ErrCodeIdempotencyConflict), result.Code)
}

func TestRegistry_Invoke_ResolverErrorReleasesLockForRetry(t *testing.T) {
	idempotency := testutil.NewMockIdempotencyRepository()
	r := NewRegistry(idempotency)

	attempts := 0
	et := &Tool{
		Name:     "flaky.test",
		Validate: func(input map[string]any) ([]string, bool) { return nil, true },
		Resolve: func(ctx context.Context, tenantID int32, input map[string]any) (any, error) {
			attempts++
			if attempts == 1 {
				return nil, assertErr{}
			}
			return map[string]any{"ok": true}, nil
		},
	}
	r.Register(et)

	_, err := r.Invoke(context.Background(), 1, et, map[string]any{"value": "a"}, "key-1")
	require.Error(t, err)

	result, err := r.Invoke(context.Background(), 1, et, map[string]any{"value": "a"}, "key-1")
	require.NoError(t, err)
	assert.False(t, result.Replayed)
	assert.Equal(t, 2, attempts)
}

type assertErr struct{}

func (assertErr) Error() string { return "resolver failed" }

func TestRequestHash_IsStableAcrossKeyOrder(t *testing.T) {
	h1, err := RequestHash(map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	h2, err := RequestHash(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestDeriveTransactionIdempotencyKey_IsDeterministicAndLength24(t *testing.T) {
	when := parseTime(t, "2026-07-01T10:00:00Z")
	k1 := DeriveTransactionIdempotencyKey(1, 2, when, "10.00", "lunch")
	k2 := DeriveTransactionIdempotencyKey(1, 2, when, "10.00", "lunch")
	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 24)
}

func TestDeriveTransactionIdempotencyKey_DiffersByCustomer(t *testing.T) {
	when := parseTime(t, "2026-07-01T10:00:00Z")
	k1 := DeriveTransactionIdempotencyKey(1, 2, when, "10.00", "lunch")
	k2 := DeriveTransactionIdempotencyKey(1, 3, when, "10.00", "lunch")
	assert.NotEqual(t, k1, k2)
}
