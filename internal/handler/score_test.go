package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// TestGetScore_ScalesTotalTo0To100 guards the GET /v1/score contract
// (spec.md §6): the wire field is `score` on a 0..100 scale, not the
// internal `total` on 0..1 that every other component works in.
func TestGetScore_ScalesTotalTo0To100(t *testing.T) {
	app, insights := newTestApp(t)

	insight := &domain.MonthlyInsight{
		UserID: "user-1",
		Month:  "2026-07",
		KPIs: map[string]domain.KPI{
			domain.KPIIncome:         {Key: domain.KPIIncome, Value: 1_000_000},
			domain.KPICashFlow:       {Key: domain.KPICashFlow, Value: 200_000},
			domain.KPISavingsRate:    {Key: domain.KPISavingsRate, Value: 0.2},
			domain.KPIDebtToIncome:   {Key: domain.KPIDebtToIncome, Value: 0.1},
			domain.KPIInvestmentRate: {Key: domain.KPIInvestmentRate, Value: 0.1},
		},
	}
	require.NoError(t, insights.Upsert(nil, insight))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/score?month=2026-07", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetRequest(req.WithContext(middleware.WithIdentity(req.Context(), &domain.AuthenticatedUser{UserID: "user-1", TenantID: 1, CustomerID: 1})))

	require.NoError(t, app.GetScore(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Greater(t, resp.Score, 1.0, "score should be on a 0..100 scale, not 0..1")
	require.LessOrEqual(t, resp.Score, 100.0)
	require.Len(t, resp.Components, 4)
}

func TestGetScore_MissingMonthIsValidationError(t *testing.T) {
	app, _ := newTestApp(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/score", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetRequest(req.WithContext(middleware.WithIdentity(req.Context(), &domain.AuthenticatedUser{UserID: "user-1", TenantID: 1, CustomerID: 1})))

	err := app.GetScore(c)
	require.Error(t, err)

	var coded *domain.CodedError
	require.ErrorAs(t, err, &coded)
	require.Equal(t, domain.ErrCodeValidation, coded.Code)
}
