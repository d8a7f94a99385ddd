package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// Throttled bounds the request rate of an embedding client.
type Throttled struct {
	next    domain.EmbeddingClient
	limiter *rate.Limiter
}

// NewThrottled wraps next with a token bucket. A non-positive rps disables throttling.
func NewThrottled(next domain.EmbeddingClient, rps float64, burst int) *Throttled {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (t *Throttled) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return t.next.Embed(ctx, text)
}
