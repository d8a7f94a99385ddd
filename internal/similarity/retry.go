package similarity

import (
	"context"

	"github.com/live-neon/neon-soul-sub003/internal/llm"
)

// ErrBackendExhausted is returned when a similarity backend kept failing after every
// retry. It is never a "no match" answer.
var ErrBackendExhausted = llm.ErrBackendExhausted

// Retrying wraps an Oracle so every call goes through a Retrier.
type Retrying struct {
	next    Oracle
	retrier *llm.Retrier
}

func NewRetrying(next Oracle, retrier *llm.Retrier) *Retrying {
	return &Retrying{next: next, retrier: retrier}
}

// Unwrap returns the decorated oracle.
func (r *Retrying) Unwrap() Oracle {
	return r.next
}

func (r *Retrying) Compare(ctx context.Context, a, b string) (Match, error) {
	var m Match
	err := r.retrier.Do(ctx, "compare", func(ctx context.Context) error {
		var err error
		m, err = r.next.Compare(ctx, a, b)
		return err
	})
	return m, err
}

// BestMatch retries each candidate comparison on its own, so the per-attempt timeout
// bounds one backend call and a single failure does not repeat the whole scan.
func (r *Retrying) BestMatch(ctx context.Context, text string, candidates []string) (BestMatch, error) {
	if len(candidates) == 0 {
		return BestMatch{Index: -1}, nil
	}
	if v, ok := AsVectorizer(r.next); ok {
		err := r.retrier.Do(ctx, "embed", func(ctx context.Context) error {
			_, err := v.Vector(ctx, text)
			return err
		})
		if err != nil {
			return BestMatch{}, err
		}
	}
	return bestOf(ctx, text, candidates, concurrencyOf(r.next), r.Compare)
}

func concurrencyOf(o Oracle) int {
	if c, ok := o.(interface{ Concurrency() int }); ok {
		return c.Concurrency()
	}
	if u, ok := o.(interface{ Unwrap() Oracle }); ok {
		return concurrencyOf(u.Unwrap())
	}
	return DefaultConcurrency
}
