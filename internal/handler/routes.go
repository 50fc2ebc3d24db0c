package handler

import (
	"github.com/fadhilmayati/dompet-platform/internal/governor"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts every spec.md §6 route under both /v1 (authoritative)
// and /api/v1 (backward-compatible mirror, per SPEC_FULL.md §10(a)).
func RegisterRoutes(e *echo.Echo, app *App, auth *middleware.AuthMiddleware, g *governor.Governor) {
	for _, prefix := range []string{"/v1", "/api/v1"} {
		group := e.Group(prefix)
		group.GET("/healthz", app.Healthz)

		protected := group.Group("")
		protected.Use(auth.Authenticate())

		protected.POST("/chat", app.Chat, middleware.RateLimit(g, governor.RouteChat))
		group.GET("/chat/stream/ws", app.ChatStreamWS, middleware.RateLimit(g, governor.RouteChat))
		protected.GET("/insights", app.GetInsight)
		protected.POST("/insights", app.ComputeInsight, middleware.RateLimit(g, governor.RouteInsightsCompute))
		protected.GET("/score", app.GetScore)
		protected.POST("/simulate", app.Simulate, middleware.RateLimit(g, governor.RouteSimulate))
		protected.POST("/upload-csv", app.UploadCSV, middleware.RateLimit(g, governor.RouteUploadCSV))
		protected.GET("/benchmarks", app.GetBenchmarks)
		protected.GET("/leaderboard", app.GetLeaderboard)
		protected.GET("/preferences", app.GetPreferences)
		protected.POST("/preferences", app.UpdatePreferences, middleware.RateLimit(g, governor.RoutePreferences))
	}
}
