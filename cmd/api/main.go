package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/action"
	"github.com/fadhilmayati/dompet-platform/internal/aggregator"
	"github.com/fadhilmayati/dompet-platform/internal/archive"
	"github.com/fadhilmayati/dompet-platform/internal/config"
	"github.com/fadhilmayati/dompet-platform/internal/governor"
	"github.com/fadhilmayati/dompet-platform/internal/handler"
	"github.com/fadhilmayati/dompet-platform/internal/health"
	"github.com/fadhilmayati/dompet-platform/internal/kpi"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/fadhilmayati/dompet-platform/internal/plan"
	"github.com/fadhilmayati/dompet-platform/internal/provider"
	"github.com/fadhilmayati/dompet-platform/internal/reaper"
	"github.com/fadhilmayati/dompet-platform/internal/repository/postgres"
	"github.com/fadhilmayati/dompet-platform/internal/simulate"
	"github.com/fadhilmayati/dompet-platform/internal/tool"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Repositories
	tenantRepo := postgres.NewTenantRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	transactionRepo := postgres.NewTransactionRepository(pool)
	insightRepo := postgres.NewInsightRepository(pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(pool)
	vectorStoreRepo := postgres.NewVectorStoreRepository(pool, domainEmbeddingDimension(cfg))

	if _, err := tenantRepo.GetOrCreateBySlug(context.Background(), "default"); err != nil {
		log.Fatal().Err(err).Msg("Failed to bootstrap default tenant")
	}

	// Domain logic
	engine := kpi.NewEngine()
	scorer := health.NewScorer()
	suggester := action.NewSuggester()
	simulator := simulate.NewSimulator(scorer)

	// Provider router
	router := provider.NewRouter(provider.Config{
		DefaultChatProvider:  cfg.DefaultChatProvider,
		DefaultEmbedProvider: cfg.DefaultEmbedProvider,
	})
	if cfg.OpenAIAPIKey != "" {
		router.RegisterVendor(provider.NewOpenAIVendor(cfg.OpenAIAPIKey))
	}
	if cfg.AnthropicAPIKey != "" {
		router.RegisterVendor(provider.NewAnthropicVendor(cfg.AnthropicAPIKey))
	}

	// Idempotent tool registry
	toolRegistry := tool.NewRegistry(idempotencyRepo)
	tool.RegisterCanonicalTools(toolRegistry, transactionRepo, insightRepo, engine, scorer, suggester, simulator)

	executor := &plan.Executor{
		Router:       router,
		VectorStore:  vectorStoreRepo,
		Tools:        toolRegistry,
		Transactions: transactionRepo,
	}

	// Request governor
	g := governor.New()
	defer g.Stop()

	// Privacy-preserving aggregator
	agg := aggregator.New(customerRepo, insightRepo, scorer, nil)

	// Best-effort insight archival
	archiveWriter, err := archive.NewWriter(context.Background(), cfg.S3, log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("insight archival disabled: failed to initialize S3 writer")
		archiveWriter = nil
	}

	// Background idempotency reaper
	idempotencyReaper, err := reaper.New(idempotencyRepo, log.Logger, reaper.DefaultConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create idempotency reaper")
	}
	reaperCtx, cancelReaper := context.WithCancel(context.Background())
	idempotencyReaper.Start(reaperCtx)
	defer func() {
		cancelReaper()
		idempotencyReaper.Stop()
	}()

	authMiddleware := middleware.NewAuthMiddleware(cfg.AuthSecret, customerRepo)

	app := handler.NewApp(handler.Deps{
		Tenants:        tenantRepo,
		Customers:      customerRepo,
		Transactions:   transactionRepo,
		Insights:       insightRepo,
		Idempotency:    idempotencyRepo,
		VectorStore:    vectorStoreRepo,
		Tools:          toolRegistry,
		Router:         router,
		Engine:         engine,
		Scorer:         scorer,
		Suggester:      suggester,
		Simulator:      simulator,
		Executor:       executor,
		Governor:       g,
		Aggregator:     agg,
		Archive:        archiveWriter,
		RequestTimeout: cfg.RequestTimeout,
		Auth:           authMiddleware,
		CORSOrigins:    cfg.CORSOrigins,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.HTTPErrorHandler

	e.Use(echomiddleware.RequestID())

	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())

	handler.RegisterRoutes(e, app, authMiddleware, g)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// domainEmbeddingDimension picks the vector store's fixed dimension: 1536
// when the default embedding provider is OpenAI and its key is configured,
// 7 for the internal fallback embedder (spec.md §4.7).
func domainEmbeddingDimension(cfg *config.Config) int {
	if cfg.DefaultEmbedProvider == provider.NameOpenAI && cfg.OpenAIAPIKey != "" {
		return 1536
	}
	return 7
}

func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
