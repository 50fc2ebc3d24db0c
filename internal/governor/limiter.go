// Package governor implements the per-identity request governor: a
// token-bucket rate limiter keyed by route class, user and remote address,
// plus per-request deadline propagation.
package governor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RouteClass names one of the rate-limited operation families.
type RouteClass string

const (
	RouteChat             RouteClass = "chat"
	RouteInsightsCompute  RouteClass = "insights.compute"
	RouteSimulate         RouteClass = "simulate"
	RouteUploadCSV        RouteClass = "upload-csv"
	RoutePreferences      RouteClass = "preferences"
)

// defaultPerMinute holds the fixed default rate for each route class.
var defaultPerMinute = map[RouteClass]int{
	RouteChat:            10,
	RouteInsightsCompute: 6,
	RouteSimulate:        5,
	RouteUploadCSV:       3,
	RoutePreferences:     10,
}

// DefaultDeadline is the per-request timeout applied when the caller does
// not override it.
const DefaultDeadline = 20 * time.Second

const (
	cleanupInterval = 5 * time.Minute
	bucketTTL       = 10 * time.Minute
)

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Governor owns one token bucket per (routeClass, userId, remoteAddr) key.
type Governor struct {
	mu      sync.Mutex
	buckets map[string]*bucketEntry
	rates   map[RouteClass]int
	stopCh  chan struct{}
}

// New creates a Governor using the documented default rates. Call Stop when
// the process is shutting down to release the cleanup goroutine.
func New() *Governor {
	return NewWithRates(defaultPerMinute)
}

// NewWithRates creates a Governor with caller-supplied per-route rates
// (requests per minute), falling back to the documented defaults for any
// route class left unset.
func NewWithRates(rates map[RouteClass]int) *Governor {
	merged := make(map[RouteClass]int, len(defaultPerMinute))
	for k, v := range defaultPerMinute {
		merged[k] = v
	}
	for k, v := range rates {
		merged[k] = v
	}
	g := &Governor{
		buckets: make(map[string]*bucketEntry),
		rates:   merged,
		stopCh:  make(chan struct{}),
	}
	go g.cleanup()
	return g
}

// Allow reports whether a request in routeClass from (userID, remoteAddr) may
// proceed, and if not, how many seconds the caller should wait before retrying.
func (g *Governor) Allow(route RouteClass, userID, remoteAddr string) (allowed bool, retryAfterSeconds int) {
	key := fmt.Sprintf("%s:%s:%s", route, userID, remoteAddr)
	perMinute := g.rates[route]
	if perMinute <= 0 {
		perMinute = defaultPerMinute[RouteChat]
	}

	g.mu.Lock()
	entry, ok := g.buckets[key]
	if !ok {
		entry = &bucketEntry{
			limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
			lastSeen: time.Now(),
		}
		g.buckets[key] = entry
	} else {
		entry.lastSeen = time.Now()
	}
	limiter := entry.limiter
	g.mu.Unlock()

	if limiter.Allow() {
		return true, 0
	}

	tokensNeeded := 1 - limiter.Tokens()
	wait := tokensNeeded / float64(perMinute) * 60.0
	if wait < 1 {
		wait = 1
	}
	return false, int(wait + 0.999)
}

// WithDeadline returns a derived context bounded by d, or DefaultDeadline if
// d <= 0. The returned cancel func must be called by the caller.
func WithDeadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultDeadline
	}
	return context.WithTimeout(ctx, d)
}

// Stop releases the background cleanup goroutine.
func (g *Governor) Stop() {
	close(g.stopCh)
}

func (g *Governor) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.mu.Lock()
			now := time.Now()
			for key, entry := range g.buckets {
				if now.Sub(entry.lastSeen) > bucketTTL {
					delete(g.buckets, key)
				}
			}
			g.mu.Unlock()
		case <-g.stopCh:
			return
		}
	}
}
