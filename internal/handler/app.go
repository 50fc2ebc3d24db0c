package handler

import (
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/action"
	"github.com/fadhilmayati/dompet-platform/internal/aggregator"
	"github.com/fadhilmayati/dompet-platform/internal/archive"
	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/governor"
	"github.com/fadhilmayati/dompet-platform/internal/health"
	"github.com/fadhilmayati/dompet-platform/internal/kpi"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/fadhilmayati/dompet-platform/internal/plan"
	"github.com/fadhilmayati/dompet-platform/internal/provider"
	"github.com/fadhilmayati/dompet-platform/internal/simulate"
	"github.com/fadhilmayati/dompet-platform/internal/tool"
	ws "github.com/fadhilmayati/dompet-platform/internal/websocket"
	gorilla "github.com/gorilla/websocket"
)

// Deps bundles everything a route needs, built once in cmd/api/main.go and
// shared by every handler on *App.
type Deps struct {
	Tenants        domain.TenantRepository
	Customers      domain.CustomerRepository
	Transactions   domain.TransactionRepository
	Insights       domain.InsightRepository
	Idempotency    domain.IdempotencyRepository
	VectorStore    domain.VectorStoreRepository
	Tools          *tool.Registry
	Router         *provider.Router
	Engine         *kpi.Engine
	Scorer         *health.Scorer
	Suggester      *action.Suggester
	Simulator      *simulate.Simulator
	Executor       *plan.Executor
	Governor       *governor.Governor
	Aggregator     *aggregator.Aggregator
	Archive        *archive.Writer
	RequestTimeout time.Duration
	Auth           *middleware.AuthMiddleware
	CORSOrigins    []string
}

// App holds Deps and exposes one method per spec.md §6 route.
type App struct {
	deps       Deps
	auth       *middleware.AuthMiddleware
	hub        *ws.Hub
	wsUpgrader gorilla.Upgrader
}

func NewApp(deps Deps) *App {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = governor.DefaultDeadline
	}
	return &App{
		deps:       deps,
		auth:       deps.Auth,
		hub:        ws.NewHub(),
		wsUpgrader: newWSUpgrader(deps.CORSOrigins),
	}
}
