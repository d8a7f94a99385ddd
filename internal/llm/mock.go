package llm

import (
	"context"
	"strings"
	"sync"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// MockClient is a configurable LLM client for testing.
// Set the response fields to control what each method returns. It is safe for
// concurrent use because the engine fans backend calls out across workers.
type MockClient struct {
	mu sync.Mutex

	// EquivalenceFunc overrides EquivalenceResponse when set.
	EquivalenceFunc     func(textA, textB string) *domain.EquivalenceJudgment
	EquivalenceResponse *domain.EquivalenceJudgment
	EquivalenceError    error
	// ConflictFunc overrides ConflictResponse when set.
	ConflictFunc     func(stmtA, stmtB string) *domain.ConflictResult
	ConflictResponse *domain.ConflictResult
	ConflictError    error
	ClassifyResponse *domain.SignalClassification
	ClassifyError    error

	// Call tracking for assertions
	EquivalenceCalls []struct{ A, B string }
	ConflictCalls    []struct{ A, B string }
	ClassifyCalls    []string
}

// NewMockClient returns a mock that treats case-insensitively identical texts as
// equivalent, finds no conflicts, and classifies everything as a supporting assertion.
func NewMockClient() *MockClient {
	return &MockClient{
		EquivalenceFunc: func(a, b string) *domain.EquivalenceJudgment {
			if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
				return &domain.EquivalenceJudgment{Equivalent: true, Band: "high"}
			}
			return &domain.EquivalenceJudgment{Equivalent: false, Band: "high"}
		},
		ConflictResponse: &domain.ConflictResult{},
		ClassifyResponse: &domain.SignalClassification{
			Stance:     domain.StanceAssert,
			Importance: domain.ImportanceSupporting,
			SourceKind: domain.SourceAgentInitiated,
			Dimension:  "general",
		},
	}
}

func (c *MockClient) JudgeEquivalence(ctx context.Context, textA, textB string) (*domain.EquivalenceJudgment, error) {
	c.mu.Lock()
	c.EquivalenceCalls = append(c.EquivalenceCalls, struct{ A, B string }{textA, textB})
	fn, resp, err := c.EquivalenceFunc, c.EquivalenceResponse, c.EquivalenceError
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(textA, textB), nil
	}
	if resp == nil {
		return &domain.EquivalenceJudgment{Band: "low"}, nil
	}
	out := *resp
	return &out, nil
}

func (c *MockClient) DescribeConflict(ctx context.Context, stmtA, stmtB string) (*domain.ConflictResult, error) {
	c.mu.Lock()
	c.ConflictCalls = append(c.ConflictCalls, struct{ A, B string }{stmtA, stmtB})
	fn, resp, err := c.ConflictFunc, c.ConflictResponse, c.ConflictError
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if fn != nil {
		return fn(stmtA, stmtB), nil
	}
	if resp == nil {
		return &domain.ConflictResult{}, nil
	}
	out := *resp
	return &out, nil
}

func (c *MockClient) ClassifySignal(ctx context.Context, text string) (*domain.SignalClassification, error) {
	c.mu.Lock()
	c.ClassifyCalls = append(c.ClassifyCalls, text)
	resp, err := c.ClassifyResponse, c.ClassifyError
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if resp == nil {
		return &domain.SignalClassification{}, nil
	}
	out := *resp
	return &out, nil
}

// CallCounts returns the number of calls per method.
func (c *MockClient) CallCounts() (equivalence, conflict, classify int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.EquivalenceCalls), len(c.ConflictCalls), len(c.ClassifyCalls)
}
