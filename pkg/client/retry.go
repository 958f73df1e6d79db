package client

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobsuche_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"kind"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobsuche_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error kind",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"kind"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobsuche_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"kind"})
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// Enabled turns retries on. When false the first error is terminal.
	Enabled bool

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps a single computed delay. A server Retry-After is not capped.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// Jitter is the randomization factor (0.0 to 1.0) applied to computed delays.
	Jitter float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Enabled:           true,
		MaxRetries:        3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        60 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            0.2,
	}
}

// RetryPolicy decides whether a failed attempt is retried and how long to
// wait before the next one. It is safe for concurrent use.
type RetryPolicy struct {
	config RetryConfig
	random func() float64
}

// NewRetryPolicy creates a policy from cfg.
func NewRetryPolicy(cfg RetryConfig) *RetryPolicy {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 1
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	} else if cfg.Jitter > 1 {
		cfg.Jitter = 1
	}
	return &RetryPolicy{config: cfg, random: rand.Float64}
}

// Config returns the effective configuration.
func (p *RetryPolicy) Config() RetryConfig { return p.config }

// Retryable reports whether err is worth another attempt: transport
// failures, rate limiting, and 503/504 server faults.
func Retryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case KindTransport, KindRateLimited:
		return true
	case KindServerFault:
		return apiErr.StatusCode == http.StatusServiceUnavailable ||
			apiErr.StatusCode == http.StatusGatewayTimeout
	default:
		return false
	}
}

// Decide returns whether to retry after attempts failed attempts, and the
// delay to wait first.
func (p *RetryPolicy) Decide(err error, attempts int) (bool, time.Duration) {
	if !p.config.Enabled || !Retryable(err) || attempts > p.config.MaxRetries {
		return false, 0
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == KindRateLimited && apiErr.RetryAfter != nil {
		return true, *apiErr.RetryAfter
	}

	return true, p.Backoff(attempts)
}

// Backoff returns the jittered exponential delay after attempts failures,
// capped at MaxBackoff.
func (p *RetryPolicy) Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := float64(p.config.InitialBackoff) * math.Pow(p.config.BackoffMultiplier, float64(attempts-1))

	if p.config.Jitter > 0 {
		jitterAmount := delay * p.config.Jitter
		delay = delay - jitterAmount + (p.random() * 2 * jitterAmount)
	}

	if p.config.MaxBackoff > 0 && delay > float64(p.config.MaxBackoff) {
		delay = float64(p.config.MaxBackoff)
	}
	return time.Duration(delay)
}

// exhausted reports whether a terminal err ended a retry loop that would
// otherwise have continued.
func (p *RetryPolicy) exhausted(err error) bool {
	return p.config.Enabled && p.config.MaxRetries > 0 && Retryable(err)
}

// retryWithBackoff runs fn until it succeeds or the policy gives up, and
// returns the last error unchanged. Intermediate failures are only logged.
func retryWithBackoff[T any](ctx context.Context, policy *RetryPolicy, logger zerolog.Logger, fn func(attempt int) (T, error)) (T, error) {
	var zero T

	for attempt := 1; ; attempt++ {
		result, err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return result, nil
		}

		kind := string(KindOf(err))

		retry, wait := policy.Decide(err, attempt)
		if !retry {
			if policy.exhausted(err) {
				retryExhaustedTotal.WithLabelValues(kind).Inc()
				logger.Warn().
					Err(err).
					Str("error_kind", kind).
					Int("attempts", attempt).
					Msg("Retry attempts exhausted")
			}
			return zero, err
		}

		if ctx.Err() != nil {
			return zero, ClassifyTransport(ctx.Err())
		}

		retriesTotal.WithLabelValues(kind).Inc()
		retryBackoffSeconds.WithLabelValues(kind).Observe(wait.Seconds())

		logger.Warn().
			Err(err).
			Str("error_kind", kind).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")

		if err := sleep(ctx, wait); err != nil {
			logger.Warn().
				Str("error_kind", kind).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return zero, ClassifyTransport(err)
		}
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
