package middleware

import (
	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/governor"
	"github.com/labstack/echo/v4"
)

// RateLimit returns an Echo middleware applying the per-identity token
// bucket for routeClass, keyed by {routeClass}:{userId}:{remoteAddr}
// (spec.md §4.11). It must run after Authenticate so IdentityFromContext
// resolves.
func RateLimit(g *governor.Governor, route governor.RouteClass) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := IdentityFromContext(c)
			userID := ""
			if user != nil {
				userID = user.UserID
			}

			allowed, retryAfter := g.Allow(route, userID, c.RealIP())
			if !allowed {
				return domain.NewCodedError(domain.ErrCodeRateLimit, "rate limit exceeded", domain.ErrRateLimited).
					WithDetails(map[string]any{"retryAfter": retryAfter})
			}
			return next(c)
		}
	}
}
