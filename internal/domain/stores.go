package domain

import (
	"context"
)

// CorpusStore persists corpus snapshots between runs. The storage medium is up to the
// implementation; Latest returns store.ErrNotFound when nothing has been saved yet.
type CorpusStore interface {
	Latest(ctx context.Context) (*Corpus, error)
	Save(ctx context.Context, c *Corpus) error
	Ping(ctx context.Context) error
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EquivalenceJudge asks a language model whether two statements are semantically equivalent.
type EquivalenceJudge interface {
	JudgeEquivalence(ctx context.Context, textA, textB string) (*EquivalenceJudgment, error)
}

// ConflictOracle asks whether two statements conflict and, if so, how.
type ConflictOracle interface {
	DescribeConflict(ctx context.Context, stmtA, stmtB string) (*ConflictResult, error)
}

// SignalClassifier supplies stance, importance, source kind and dimension for a signal.
type SignalClassifier interface {
	ClassifySignal(ctx context.Context, text string) (*SignalClassification, error)
}

// LLMClient is the full surface a language-model provider offers the engine.
type LLMClient interface {
	EquivalenceJudge
	ConflictOracle
	SignalClassifier
}

// RunSummary is the event payload announced after a corpus is saved.
type RunSummary struct {
	CorpusID         string        `json:"corpus_id"`
	Cycle            int           `json:"cycle"`
	Decision         CycleDecision `json:"decision"`
	Principles       int           `json:"principles"`
	PromotableAxioms int           `json:"promotable_axioms"`
	Tensions         int           `json:"tensions"`
	OrphanedSignals  int           `json:"orphaned_signals"`
}

// RunPublisher announces completed runs to downstream consumers.
type RunPublisher interface {
	PublishRun(ctx context.Context, s *RunSummary) error
}
