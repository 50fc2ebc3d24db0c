// Package aggregator implements the privacy-preserving cohort benchmarks
// and leaderboard views described in spec.md §4.12: opt-in-gated, aliased,
// read-only aggregates over opted-in customers' latest monthly insights.
package aggregator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/health"
	"github.com/fadhilmayati/dompet-platform/internal/util"
	"github.com/patrickmn/go-cache"
)

const leaderboardTopN = 10

// cacheTTL bounds how stale a cohort/leaderboard view can be. Cohort
// membership only moves as fast as customers opt in or insights are
// recomputed, so a short TTL avoids a full opted-in scan on every request
// without meaningfully staling the numbers (SPEC_FULL.md §5).
const cacheTTL = 2 * time.Minute

// CohortKey is an (region, incomeBand) bucket; missing fields bucket into
// "unknown" (spec.md §4.12).
type CohortKey struct {
	Region     string
	IncomeBand string
}

// CohortMetrics is one row of GET /v1/benchmarks.
type CohortMetrics struct {
	Cohort         CohortKey
	IncomeAvg      float64
	SavingsRateAvg float64
	SampleSize     int
}

// LeaderboardEntry is one anonymised row of GET /v1/leaderboard.
type LeaderboardEntry struct {
	Alias      string
	Score      float64
	Region     string
	IncomeBand string
}

// Aggregator computes benchmarks and leaderboards, gated by the requesting
// customer's own opt-in.
type Aggregator struct {
	customers domain.CustomerRepository
	insights  domain.InsightRepository
	scorer    *health.Scorer
	emojiPool []string
	cache     *cache.Cache
}

func New(customers domain.CustomerRepository, insights domain.InsightRepository, scorer *health.Scorer, emojiPool []string) *Aggregator {
	if len(emojiPool) == 0 {
		emojiPool = util.DefaultEmojiPool
	}
	return &Aggregator{
		customers: customers,
		insights:  insights,
		scorer:    scorer,
		emojiPool: emojiPool,
		cache:     cache.New(cacheTTL, cacheTTL),
	}
}

// cohortSnapshot is the tenant+month-scoped view shared by Benchmarks and
// Leaderboard, recomputed at most once per cacheTTL window.
type cohortSnapshot struct {
	byExternalRef map[string]*domain.Customer
	insights      []*domain.MonthlyInsight
}

func (a *Aggregator) snapshot(ctx context.Context, tenantID int32, month string) (*cohortSnapshot, error) {
	key := fmt.Sprintf("%d:%s", tenantID, month)
	if cached, ok := a.cache.Get(key); ok {
		return cached.(*cohortSnapshot), nil
	}

	customers, err := a.customers.ListOptedIn(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	byExternalRef := make(map[string]*domain.Customer, len(customers))
	for _, c := range customers {
		byExternalRef[c.ExternalReference] = c
	}

	insights, err := a.insights.ListLatestPerUser(ctx, tenantID, month)
	if err != nil {
		return nil, err
	}

	snap := &cohortSnapshot{byExternalRef: byExternalRef, insights: insights}
	a.cache.SetDefault(key, snap)
	return snap, nil
}

// requireOptIn enforces that the requesting customer has opted in before
// any aggregate is computed (spec.md §4.12: "the caller themselves must be
// opted in").
func (a *Aggregator) requireOptIn(ctx context.Context, tenantID, requestingCustomerID int32) (*domain.Customer, error) {
	requester, err := a.customers.GetByID(ctx, tenantID, requestingCustomerID)
	if err != nil {
		return nil, err
	}
	if !requester.Preferences.AllowBenchmarking {
		return nil, domain.NewCodedError(domain.ErrCodeBenchmarkOptIn, "benchmarking opt-in required", domain.ErrBenchmarkOptInRequired)
	}
	return requester, nil
}

// Benchmarks computes per-cohort mean income and savings rate across every
// opted-in customer's latest insight for the month (spec.md §4.12).
func (a *Aggregator) Benchmarks(ctx context.Context, tenantID, requestingCustomerID int32, month string) ([]CohortMetrics, error) {
	if _, err := a.requireOptIn(ctx, tenantID, requestingCustomerID); err != nil {
		return nil, err
	}

	snap, err := a.snapshot(ctx, tenantID, month)
	if err != nil {
		return nil, err
	}

	type accum struct {
		incomeSum, savingsSum float64
		count                 int
	}
	buckets := make(map[CohortKey]*accum)

	for _, insight := range snap.insights {
		customer, ok := snap.byExternalRef[insight.UserID]
		if !ok {
			continue
		}
		key := cohortOf(customer)
		bucket, ok := buckets[key]
		if !ok {
			bucket = &accum{}
			buckets[key] = bucket
		}
		bucket.incomeSum += insight.KPIs[domain.KPIIncome].Value
		bucket.savingsSum += insight.KPIs[domain.KPISavingsRate].Value
		bucket.count++
	}

	out := make([]CohortMetrics, 0, len(buckets))
	for key, bucket := range buckets {
		out = append(out, CohortMetrics{
			Cohort:         key,
			IncomeAvg:      bucket.incomeSum / float64(bucket.count),
			SavingsRateAvg: bucket.savingsSum / float64(bucket.count),
			SampleSize:     bucket.count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cohort.Region != out[j].Cohort.Region {
			return out[i].Cohort.Region < out[j].Cohort.Region
		}
		return out[i].Cohort.IncomeBand < out[j].Cohort.IncomeBand
	})
	return out, nil
}

// Leaderboard computes the top-10 anonymised health scores among opted-in
// customers, plus the requester's own aliased row (never labelled "You";
// spec.md §4.12, §8).
func (a *Aggregator) Leaderboard(ctx context.Context, tenantID, requestingCustomerID int32, month string) (top []LeaderboardEntry, you *LeaderboardEntry, err error) {
	requester, err := a.requireOptIn(ctx, tenantID, requestingCustomerID)
	if err != nil {
		return nil, nil, err
	}

	snap, err := a.snapshot(ctx, tenantID, month)
	if err != nil {
		return nil, nil, err
	}

	var entries []LeaderboardEntry
	var requesterEntry *LeaderboardEntry
	for _, insight := range snap.insights {
		customer, ok := snap.byExternalRef[insight.UserID]
		if !ok {
			continue
		}
		h := a.scorer.Score(insight.KPIs)
		entry := LeaderboardEntry{
			Alias:      util.Alias(insight.UserID, a.emojiPool),
			Score:      h.Total * 100,
			Region:     customer.Profile.Region,
			IncomeBand: customer.Profile.IncomeBand,
		}
		entries = append(entries, entry)
		if customer.ID == requester.ID {
			e := entry
			requesterEntry = &e
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > leaderboardTopN {
		entries = entries[:leaderboardTopN]
	}

	if requesterEntry == nil {
		// Requester opted in but has no insight for this month yet: still
		// report their own aliased row at score 0, never "You".
		requesterEntry = &LeaderboardEntry{
			Alias:      util.Alias(requester.ExternalReference, a.emojiPool),
			Region:     requester.Profile.Region,
			IncomeBand: requester.Profile.IncomeBand,
		}
	}

	return entries, requesterEntry, nil
}

func cohortOf(c *domain.Customer) CohortKey {
	region := c.Profile.Region
	if region == "" {
		region = "unknown"
	}
	band := c.Profile.IncomeBand
	if band == "" {
		band = "unknown"
	}
	return CohortKey{Region: region, IncomeBand: band}
}
