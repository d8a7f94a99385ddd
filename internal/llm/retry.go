package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/metrics"
)

// ErrBackendExhausted means a backend kept failing transiently after every retry.
// Callers must treat it as a failed call, never as an empty answer.
var ErrBackendExhausted = errors.New("backend exhausted retries")

// RetryConfig holds retry configuration for backend calls.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration

	// CallTimeout bounds a single attempt. Zero means no per-attempt deadline.
	CallTimeout time.Duration
}

// DefaultRetryConfig returns the retry defaults for backend calls.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		BackoffBase:       500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        10 * time.Second,
		CallTimeout:       30 * time.Second,
	}
}

// Retrier runs backend calls with exponential backoff on transient failures.
// Fatal and unclassified errors, and cancellation of the caller's context, return at once.
type Retrier struct {
	cfg     RetryConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRetrier(cfg RetryConfig, m *metrics.Metrics, logger *zap.Logger) *Retrier {
	return &Retrier{cfg: cfg, metrics: m, logger: logger}
}

// Do calls fn until it succeeds, fails permanently, or runs out of retries. op labels
// logs and the retry metric.
func (r *Retrier) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := r.backoff(attempt)
			r.metrics.IncRetry(op)
			r.logger.Debug("backend call failed, retrying",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", r.cfg.MaxRetries),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := r.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}

	r.logger.Warn("backend exhausted retries",
		zap.String("operation", op),
		zap.Int("attempts", r.cfg.MaxRetries+1),
		zap.Error(lastErr))
	return fmt.Errorf("%w: %s: %w", ErrBackendExhausted, op, lastErr)
}

func (r *Retrier) attempt(ctx context.Context, fn func(context.Context) error) error {
	if r.cfg.CallTimeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return fn(callCtx)
}

// retryable reports transient backend errors and per-attempt timeouts.
func retryable(err error) bool {
	if IsFatal(err) {
		return false
	}
	return IsTransient(err) || errors.Is(err, context.DeadlineExceeded)
}

// backoff computes exponential backoff with +/- 25% jitter.
func (r *Retrier) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= r.cfg.BackoffMultiplier
	}

	backoff := time.Duration(float64(r.cfg.BackoffBase) * multiplier)
	if r.cfg.MaxBackoff > 0 && backoff > r.cfg.MaxBackoff {
		backoff = r.cfg.MaxBackoff
	}

	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}
