package aggregator

import (
	"context"
	"strconv"
	"testing"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/health"
	"github.com/fadhilmayati/dompet-platform/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCustomer(t *testing.T, customers *testutil.MockCustomerRepository, tenantID int32, externalRef, region, incomeBand string, allowBenchmarking bool) *domain.Customer {
	t.Helper()
	c, err := customers.GetOrCreate(context.Background(), tenantID, externalRef)
	require.NoError(t, err)
	c.Profile = domain.CustomerProfile{Region: region, IncomeBand: incomeBand}
	c.Preferences.AllowBenchmarking = allowBenchmarking
	return c
}

func seedInsight(t *testing.T, insights *testutil.MockInsightRepository, userID, month string, income, savingsRate float64) {
	t.Helper()
	err := insights.Upsert(context.Background(), &domain.MonthlyInsight{
		ID:     userID + "-" + month,
		UserID: userID,
		Month:  month,
		KPIs: map[string]domain.KPI{
			domain.KPIIncome:      {Key: domain.KPIIncome, Value: income},
			domain.KPISavingsRate: {Key: domain.KPISavingsRate, Value: savingsRate},
		},
	})
	require.NoError(t, err)
}

func TestAggregator_Benchmarks_RequiresOptIn(t *testing.T) {
	customers := testutil.NewMockCustomerRepository()
	insights := testutil.NewMockInsightRepository()
	requester := seedCustomer(t, customers, 1, "user-1", "west", "mid", false)

	agg := New(customers, insights, health.NewScorer(), nil)
	_, err := agg.Benchmarks(context.Background(), 1, requester.ID, "2026-06")

	var coded *domain.CodedError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, domain.ErrCodeBenchmarkOptIn, coded.Code)
}

func TestAggregator_Benchmarks_BucketsByRegionAndIncomeBand(t *testing.T) {
	customers := testutil.NewMockCustomerRepository()
	insights := testutil.NewMockInsightRepository()

	requester := seedCustomer(t, customers, 1, "user-1", "west", "mid", true)
	seedCustomer(t, customers, 1, "user-2", "west", "mid", true)
	seedCustomer(t, customers, 1, "user-3", "east", "high", true)

	seedInsight(t, insights, "user-1", "2026-06", 4000, 0.2)
	seedInsight(t, insights, "user-2", "2026-06", 6000, 0.3)
	seedInsight(t, insights, "user-3", "2026-06", 10000, 0.4)

	agg := New(customers, insights, health.NewScorer(), nil)
	cohorts, err := agg.Benchmarks(context.Background(), 1, requester.ID, "2026-06")
	require.NoError(t, err)
	require.Len(t, cohorts, 2)

	var westMid, eastHigh *CohortMetrics
	for i := range cohorts {
		switch cohorts[i].Cohort {
		case CohortKey{Region: "west", IncomeBand: "mid"}:
			westMid = &cohorts[i]
		case CohortKey{Region: "east", IncomeBand: "high"}:
			eastHigh = &cohorts[i]
		}
	}
	require.NotNil(t, westMid)
	require.NotNil(t, eastHigh)
	assert.Equal(t, 2, westMid.SampleSize)
	assert.InDelta(t, 5000, westMid.IncomeAvg, 0.001)
	assert.InDelta(t, 0.25, westMid.SavingsRateAvg, 0.001)
	assert.Equal(t, 1, eastHigh.SampleSize)
}

func TestAggregator_Benchmarks_IsCachedWithinTTL(t *testing.T) {
	customers := testutil.NewMockCustomerRepository()
	insights := testutil.NewMockInsightRepository()
	requester := seedCustomer(t, customers, 1, "user-1", "west", "mid", true)
	seedInsight(t, insights, "user-1", "2026-06", 4000, 0.2)

	agg := New(customers, insights, health.NewScorer(), nil)

	first, err := agg.Benchmarks(context.Background(), 1, requester.ID, "2026-06")
	require.NoError(t, err)

	// A second customer opts in after the first call; within the cache TTL
	// the snapshot should not reflect it yet.
	seedCustomer(t, customers, 1, "user-2", "west", "mid", true)
	seedInsight(t, insights, "user-2", "2026-06", 8000, 0.1)

	second, err := agg.Benchmarks(context.Background(), 1, requester.ID, "2026-06")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregator_Leaderboard_TopNAndRequesterRow(t *testing.T) {
	customers := testutil.NewMockCustomerRepository()
	insights := testutil.NewMockInsightRepository()

	requester := seedCustomer(t, customers, 1, "user-1", "west", "mid", true)
	for i := 2; i <= 12; i++ {
		seedCustomer(t, customers, 1, externalRefFor(i), "west", "mid", true)
		seedInsight(t, insights, externalRefFor(i), "2026-06", 5000, 0.5)
	}
	seedInsight(t, insights, "user-1", "2026-06", 1000, 0.01)

	agg := New(customers, insights, health.NewScorer(), nil)
	top, you, err := agg.Leaderboard(context.Background(), 1, requester.ID, "2026-06")
	require.NoError(t, err)

	assert.LessOrEqual(t, len(top), leaderboardTopN)
	require.NotNil(t, you)
	assert.NotEqual(t, "You", you.Alias)
	for _, entry := range top {
		assert.NotEmpty(t, entry.Alias)
	}
}

func externalRefFor(i int) string {
	return "user-" + strconv.Itoa(i)
}
