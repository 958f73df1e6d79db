package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for cooldown tracking.
var (
	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsuche_rate_limit_blocks_total",
		Help: "Total number of Retry-After cooldowns recorded",
	})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobsuche_rate_limit_waits_total",
		Help: "Total number of requests held back by an active cooldown",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jobsuche_rate_limit_wait_seconds",
		Help:    "Time requests spent waiting for a cooldown to expire",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
	})
)

// Tracker records server cooldowns and gates requests on them.
type Tracker struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a tracker over store.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// GetState returns the stored cooldown.
func (t *Tracker) GetState(ctx context.Context) (State, error) {
	return t.store.Load(ctx)
}

// Record blocks requests for retryAfter from now. A shorter block never
// shortens one already stored.
func (t *Tracker) Record(ctx context.Context, retryAfter time.Duration) error {
	if retryAfter <= 0 {
		return nil
	}

	now := t.now()
	state, err := t.store.Extend(ctx, now.Add(retryAfter), now)
	if err != nil {
		return fmt.Errorf("record cooldown: %w", err)
	}

	rateLimitBlocksTotal.Inc()
	t.logger.Warn().
		Dur("retry_after", retryAfter).
		Time("blocked_until", state.BlockedUntil).
		Msg("Service cooldown recorded")

	return nil
}

// Wait sleeps until no cooldown is active or ctx is done. A store failure
// is returned without waiting.
func (t *Tracker) Wait(ctx context.Context) error {
	var waited time.Duration
	defer func() {
		if waited > 0 {
			rateLimitWaitSeconds.Observe(waited.Seconds())
		}
	}()

	for {
		state, err := t.store.Load(ctx)
		if err != nil {
			return fmt.Errorf("get rate limit state: %w", err)
		}

		d := state.TimeUntilUnblocked(t.now())
		if d == 0 {
			return nil
		}

		if waited == 0 {
			rateLimitWaitsTotal.Inc()
		}
		t.logger.Debug().
			Dur("wait_duration", d).
			Time("blocked_until", state.BlockedUntil).
			Msg("Cooldown active - delaying request")

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			waited += d
		}
	}
}
