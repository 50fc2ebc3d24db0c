// Package tool implements the idempotent tool invocation protocol from
// spec.md §4.8: validate, claim, run-or-replay, complete.
package tool

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/util"
)

// DefaultLockTTL bounds how long a claimed-but-incomplete record blocks its
// (tenantId, key) pair before the reaper frees it (SPEC_FULL.md §5 expansion).
const DefaultLockTTL = 2 * time.Minute

// Resolver executes a tool's business logic given validated input.
type Resolver func(ctx context.Context, tenantID int32, input map[string]any) (output any, err error)

// Validator checks input against a tool's declared schema, returning
// structured issues on failure.
type Validator func(input map[string]any) (issues []string, ok bool)

// Tool is {name, inputSchema, outputSchema, resolver} from spec.md §4.8.
type Tool struct {
	Name     string
	Validate Validator
	Resolve  Resolver
}

// InvokeResult is the uniform envelope returned by Invoke.
type InvokeResult struct {
	Status   string `json:"status"`
	Replayed bool   `json:"replayed"`
	Output   any    `json:"output,omitempty"`
	Code     string `json:"code,omitempty"`
	Details  any    `json:"details,omitempty"`
}

// Registry holds the canonical tool set and drives the claim/lock/complete
// lifecycle against an IdempotencyRepository.
type Registry struct {
	tools        map[string]*Tool
	idempotency  domain.IdempotencyRepository
}

func NewRegistry(idempotency domain.IdempotencyRepository) *Registry {
	return &Registry{tools: make(map[string]*Tool), idempotency: idempotency}
}

func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Invoke runs the full protocol from spec.md §4.8 steps 1-6.
func (r *Registry) Invoke(ctx context.Context, tenantID int32, t *Tool, input map[string]any, idempotencyKey string) (*InvokeResult, error) {
	if issues, ok := t.Validate(input); !ok {
		return &InvokeResult{Status: "error", Code: "VALIDATION_ERROR", Details: issues}, nil
	}

	if idempotencyKey == "" {
		output, err := t.Resolve(ctx, tenantID, input)
		if err != nil {
			return nil, err
		}
		return &InvokeResult{Status: "ok", Replayed: false, Output: output}, nil
	}

	requestHash, err := RequestHash(input)
	if err != nil {
		return nil, err
	}

	rec, conflict, err := r.idempotency.Claim(ctx, tenantID, idempotencyKey, requestHash, DefaultLockTTL)
	if err != nil {
		return nil, err
	}
	if conflict {
		return &InvokeResult{Status: "error", Code: string(domain.ErrCodeIdempotencyConflict)}, nil
	}
	if len(rec.ResponsePayload) > 0 {
		var replayed any
		if err := json.Unmarshal(rec.ResponsePayload, &replayed); err != nil {
			return nil, err
		}
		return &InvokeResult{Status: "ok", Replayed: true, Output: replayed}, nil
	}

	output, resolveErr := t.Resolve(ctx, tenantID, input)
	if resolveErr != nil {
		_ = r.idempotency.ReleaseLock(ctx, tenantID, idempotencyKey)
		return nil, resolveErr
	}

	payload, err := util.CanonicalJSON(output)
	if err != nil {
		return nil, err
	}
	if err := r.idempotency.Complete(ctx, tenantID, idempotencyKey, payload); err != nil {
		return nil, err
	}

	return &InvokeResult{Status: "ok", Replayed: false, Output: output}, nil
}

// RequestHash computes SHA256(canonicalJSON(payload)) hex-encoded, the
// requestHash stored alongside every idempotency record (spec.md §4.8).
func RequestHash(payload any) (string, error) {
	canonical, err := util.CanonicalJSON(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// DeriveTransactionIdempotencyKey builds the fallback key described in
// spec.md §4.8 for transactions.create calls with no caller-supplied key:
// SHA256(tenantId ∥ customerId ∥ occurredAt ∥ amount ∥ descriptionOrNotes),
// truncated to 24 hex characters.
func DeriveTransactionIdempotencyKey(tenantID, customerID int32, occurredAt time.Time, amount string, descriptionOrNotes string) string {
	h := sha256.New()
	h.Write(tenantCustomerPrefix(tenantID, customerID))
	h.Write([]byte(occurredAt.UTC().Format(time.RFC3339)))
	h.Write([]byte(amount))
	h.Write([]byte(descriptionOrNotes))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:24]
}

func tenantCustomerPrefix(tenantID, customerID int32) []byte {
	return []byte{
		byte(tenantID >> 24), byte(tenantID >> 16), byte(tenantID >> 8), byte(tenantID),
		byte(customerID >> 24), byte(customerID >> 16), byte(customerID >> 8), byte(customerID),
	}
}
