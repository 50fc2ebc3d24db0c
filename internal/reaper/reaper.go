// Package reaper runs the background sweep that deletes expired, never
// completed idempotency records (spec.md §4.9: "Abandoned locks expire and
// are reclaimed by a background sweep").
package reaper

import (
	"context"
	"sync"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Config controls how often the sweep runs.
type Config struct {
	// Schedule is a standard 5-field cron expression. Defaults to every
	// five minutes.
	Schedule string
}

func DefaultConfig() Config {
	return Config{Schedule: "*/5 * * * *"}
}

// Reaper periodically deletes idempotency records whose lock expired
// without ever completing.
type Reaper struct {
	repo     domain.IdempotencyRepository
	logger   zerolog.Logger
	cron     *cron.Cron
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

func New(repo domain.IdempotencyRepository, logger zerolog.Logger, cfg Config) (*Reaper, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultConfig().Schedule
	}
	r := &Reaper{
		repo:   repo,
		logger: logger.With().Str("component", "idempotency_reaper").Logger(),
		cron:   cron.New(),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if _, err := r.cron.AddFunc(cfg.Schedule, func() { r.sweep(context.Background()) }); err != nil {
		return nil, err
	}
	return r, nil
}

// Start begins the background sweep. It is safe to call once; subsequent
// calls are no-ops until Stop.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info().Msg("starting idempotency reaper")
	r.cron.Start()
	go r.waitForStop(ctx)
}

func (r *Reaper) waitForStop(ctx context.Context) {
	defer close(r.doneCh)
	select {
	case <-ctx.Done():
	case <-r.stopCh:
	}
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// Stop gracefully stops the reaper, waiting for any in-flight sweep to
// finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
	r.logger.Info().Msg("idempotency reaper stopped")
}

func (r *Reaper) sweep(ctx context.Context) {
	before := time.Now()
	n, err := r.repo.ReapExpired(ctx, before)
	if err != nil {
		r.logger.Error().Err(err).Msg("idempotency sweep failed")
		return
	}
	if n > 0 {
		r.logger.Info().Int64("reaped", n).Msg("reaped expired idempotency records")
	}
}
