package llm

import (
	"context"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// RetryingConflicts runs every DescribeConflict call through a Retrier, so a transient
// provider failure during a tension or contradiction scan does not end the run.
type RetryingConflicts struct {
	next    domain.ConflictOracle
	retrier *Retrier
}

func NewRetryingConflicts(next domain.ConflictOracle, retrier *Retrier) *RetryingConflicts {
	return &RetryingConflicts{next: next, retrier: retrier}
}

func (r *RetryingConflicts) DescribeConflict(ctx context.Context, stmtA, stmtB string) (*domain.ConflictResult, error) {
	var res *domain.ConflictResult
	err := r.retrier.Do(ctx, "describe_conflict", func(ctx context.Context) error {
		var err error
		res, err = r.next.DescribeConflict(ctx, stmtA, stmtB)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
