package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// Throttled bounds the request rate of an LLM client. Every call waits for a token
// before reaching the backend; a cancelled wait returns the context error unwrapped.
type Throttled struct {
	next    domain.LLMClient
	limiter *rate.Limiter
}

// NewThrottled wraps next with a token bucket of rps requests per second and the given
// burst. A non-positive rps disables throttling.
func NewThrottled(next domain.LLMClient, rps float64, burst int) *Throttled {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (t *Throttled) wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (t *Throttled) JudgeEquivalence(ctx context.Context, textA, textB string) (*domain.EquivalenceJudgment, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.JudgeEquivalence(ctx, textA, textB)
}

func (t *Throttled) DescribeConflict(ctx context.Context, stmtA, stmtB string) (*domain.ConflictResult, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.DescribeConflict(ctx, stmtA, stmtB)
}

func (t *Throttled) ClassifySignal(ctx context.Context, text string) (*domain.SignalClassification, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.ClassifySignal(ctx, text)
}
