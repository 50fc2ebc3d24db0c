package handler

import (
	"net/http"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/fadhilmayati/dompet-platform/internal/util"
	"github.com/labstack/echo/v4"
)

// CohortView is one row of GET /v1/benchmarks (spec.md §6).
type CohortView struct {
	Cohort  CohortKeyView  `json:"cohort"`
	Metrics CohortMetricsView `json:"metrics"`
}

type CohortKeyView struct {
	Region     string `json:"region"`
	IncomeBand string `json:"income_band"`
}

type CohortMetricsView struct {
	IncomeAvg      float64 `json:"income_avg"`
	SavingsRateAvg float64 `json:"savings_rate_avg"`
	SampleSize     int     `json:"sample_size"`
}

// BenchmarksResponse is the body of GET /v1/benchmarks (spec.md §6).
type BenchmarksResponse struct {
	Cohorts []CohortView `json:"cohorts"`
}

// LeaderboardRowView is one row of GET /v1/leaderboard.
type LeaderboardRowView struct {
	Alias      string  `json:"alias"`
	Score      float64 `json:"score"`
	Region     string  `json:"region"`
	IncomeBand string  `json:"income_band"`
}

// LeaderboardYouView is the requester's own row, aliased like any other.
type LeaderboardYouView struct {
	Alias string  `json:"alias"`
	Score float64 `json:"score"`
}

// LeaderboardResponse is the body of GET /v1/leaderboard (spec.md §6).
type LeaderboardResponse struct {
	Leaderboard []LeaderboardRowView `json:"leaderboard"`
	You         LeaderboardYouView   `json:"you"`
}

// GetBenchmarks serves GET /v1/benchmarks (spec.md §6, §4.12). Requires the
// caller to be opted into benchmarking.
func (a *App) GetBenchmarks(c echo.Context) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "authentication required", domain.ErrAuthRequired)
	}
	month := c.QueryParam("month")
	if month == "" {
		month = util.MonthOf(time.Now())
	}

	cohorts, err := a.deps.Aggregator.Benchmarks(c.Request().Context(), identity.TenantID, identity.CustomerID, month)
	if err != nil {
		return err
	}

	views := make([]CohortView, 0, len(cohorts))
	for _, cohort := range cohorts {
		views = append(views, CohortView{
			Cohort:  CohortKeyView{Region: cohort.Cohort.Region, IncomeBand: cohort.Cohort.IncomeBand},
			Metrics: CohortMetricsView{IncomeAvg: cohort.IncomeAvg, SavingsRateAvg: cohort.SavingsRateAvg, SampleSize: cohort.SampleSize},
		})
	}
	return c.JSON(http.StatusOK, BenchmarksResponse{Cohorts: views})
}

// GetLeaderboard serves GET /v1/leaderboard (spec.md §6, §4.12).
func (a *App) GetLeaderboard(c echo.Context) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "authentication required", domain.ErrAuthRequired)
	}
	month := c.QueryParam("month")
	if month == "" {
		month = util.MonthOf(time.Now())
	}

	top, you, err := a.deps.Aggregator.Leaderboard(c.Request().Context(), identity.TenantID, identity.CustomerID, month)
	if err != nil {
		return err
	}

	rows := make([]LeaderboardRowView, 0, len(top))
	for _, entry := range top {
		rows = append(rows, LeaderboardRowView{Alias: entry.Alias, Score: entry.Score, Region: entry.Region, IncomeBand: entry.IncomeBand})
	}

	return c.JSON(http.StatusOK, LeaderboardResponse{
		Leaderboard: rows,
		You:         LeaderboardYouView{Alias: you.Alias, Score: you.Score},
	})
}
