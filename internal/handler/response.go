// Package handler implements the /v1 HTTP surface: request/response JSON
// schemas, the shared error envelope, and one file per endpoint group.
package handler

import (
	"errors"
	"net/http"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ErrorEnvelope is the uniform JSON error body from spec.md §6.
type ErrorEnvelope struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Details any              `json:"details,omitempty"`
}

// statusForCode maps each error code to its HTTP status (spec.md §6/§7).
var statusForCode = map[domain.ErrorCode]int{
	domain.ErrCodeValidation:          http.StatusBadRequest,
	domain.ErrCodeAuthRequired:        http.StatusUnauthorized,
	domain.ErrCodeAuthInvalid:         http.StatusUnauthorized,
	domain.ErrCodeNotFound:            http.StatusNotFound,
	domain.ErrCodeIdempotencyConflict: http.StatusConflict,
	domain.ErrCodeRateLimit:           http.StatusTooManyRequests,
	domain.ErrCodeBenchmarkOptIn:      http.StatusForbidden,
	domain.ErrCodeModelOutputInvalid:  http.StatusBadGateway,
	domain.ErrCodeProviderUnavailable: http.StatusServiceUnavailable,
	domain.ErrCodeCancelled:          499,
	domain.ErrCodeInternal:            http.StatusInternalServerError,
}

// mapDomainError translates a sentinel domain error into a CodedError with
// its spec.md §6 code, for call sites that don't already construct one.
func mapDomainError(err error) *domain.CodedError {
	var coded *domain.CodedError
	if errors.As(err, &coded) {
		return coded
	}

	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInsightNotFound),
		errors.Is(err, domain.ErrCustomerNotFound), errors.Is(err, domain.ErrTenantNotFound):
		return domain.NewCodedError(domain.ErrCodeNotFound, "resource not found", err)
	case errors.Is(err, domain.ErrAuthRequired):
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "authentication required", err)
	case errors.Is(err, domain.ErrAuthInvalid), errors.Is(err, domain.ErrForbidden):
		return domain.NewCodedError(domain.ErrCodeAuthInvalid, "authentication invalid", err)
	case errors.Is(err, domain.ErrValidation):
		return domain.NewCodedError(domain.ErrCodeValidation, "validation failed", err)
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return domain.NewCodedError(domain.ErrCodeIdempotencyConflict, "idempotency key reused with a different payload", err)
	case errors.Is(err, domain.ErrRateLimited):
		return domain.NewCodedError(domain.ErrCodeRateLimit, "rate limit exceeded", err)
	case errors.Is(err, domain.ErrBenchmarkOptInRequired):
		return domain.NewCodedError(domain.ErrCodeBenchmarkOptIn, "benchmarking opt-in required", err)
	case errors.Is(err, domain.ErrModelOutputInvalid):
		return domain.NewCodedError(domain.ErrCodeModelOutputInvalid, "model output invalid", err)
	case errors.Is(err, domain.ErrProviderUnavailable):
		return domain.NewCodedError(domain.ErrCodeProviderUnavailable, "provider unavailable", err)
	case errors.Is(err, domain.ErrCancelled):
		return domain.NewCodedError(domain.ErrCodeCancelled, "operation cancelled", err)
	case errors.Is(err, domain.ErrPlanDependencyUnmet):
		return domain.NewCodedError(domain.ErrCodeValidation, "plan dependency unmet", err)
	default:
		return domain.NewCodedError(domain.ErrCodeInternal, "internal error", err)
	}
}

// writeError renders a domain error as the spec.md §6 error envelope.
func writeError(c echo.Context, err error) error {
	coded := mapDomainError(err)
	status, ok := statusForCode[coded.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, ErrorEnvelope{Code: coded.Code, Message: coded.Message, Details: coded.Details})
}

// HTTPErrorHandler is installed as echo.Echo.HTTPErrorHandler so errors
// returned from any handler (not just ones that call writeError directly)
// still produce the spec.md §6 envelope. Secrets never reach here: handlers
// never wrap raw provider bodies or tokens into CodedError.Details.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code := domain.ErrCodeInternal
		if httpErr.Code == http.StatusNotFound {
			code = domain.ErrCodeNotFound
		}
		if writeErr := c.JSON(httpErr.Code, ErrorEnvelope{Code: code, Message: http.StatusText(httpErr.Code)}); writeErr != nil {
			log.Error().Err(writeErr).Msg("failed to write HTTP error response")
		}
		return
	}

	if writeErr := writeError(c, err); writeErr != nil {
		log.Error().Err(writeErr).Msg("failed to write error envelope")
	}
}
