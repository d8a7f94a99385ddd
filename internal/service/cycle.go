package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
	"github.com/live-neon/neon-soul-sub003/internal/similarity"
)

// Cycle defaults.
const (
	DefaultNewPrincipleRatio   = 0.3
	DefaultContradictionCount  = 2
	DefaultCycleMatchThreshold = 0.85
)

const TriggerManualOverride = "manual resynthesis override"

func DefaultCycleThresholds() domain.CycleThresholds {
	return domain.CycleThresholds{
		NewPrincipleRatio:  DefaultNewPrincipleRatio,
		ContradictionCount: DefaultContradictionCount,
		MatchThreshold:     DefaultCycleMatchThreshold,
	}
}

// CycleManager decides how a run relates to the persisted corpus. Decide has no state of
// its own: given the same inputs and deterministic oracles it returns the same decision.
type CycleManager struct {
	oracle      similarity.Oracle
	conflicts   domain.ConflictOracle
	concurrency int
	logger      *zap.Logger
}

func NewCycleManager(oracle similarity.Oracle, conflicts domain.ConflictOracle, concurrency int, logger *zap.Logger) *CycleManager {
	if concurrency < 1 {
		concurrency = 1
	}
	return &CycleManager{
		oracle:      oracle,
		conflicts:   conflicts,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Decide compares freshly clustered principles against the existing corpus.
//
// A missing corpus, or one with no principles, is an initial run; there is nothing to
// compare against or replace, so the manual override does not apply. Otherwise each
// fired trigger forces full resynthesis, and a quiet run is incremental.
func (m *CycleManager) Decide(ctx context.Context, existing *domain.Corpus, newPrinciples []domain.Principle, t domain.CycleThresholds) (domain.CycleDecision, error) {
	t = withCycleDefaults(t)

	if existing == nil {
		return domain.CycleDecision{Mode: domain.CycleInitial, Reason: "no existing corpus", Triggers: []string{}}, nil
	}
	if len(existing.Principles) == 0 {
		return domain.CycleDecision{Mode: domain.CycleInitial, Reason: "existing corpus has no principles", Triggers: []string{}}, nil
	}

	unmatched, err := m.countUnmatched(ctx, existing.Principles, newPrinciples, t.MatchThreshold)
	if err != nil {
		return domain.CycleDecision{}, err
	}
	ratio := float64(unmatched) / float64(len(existing.Principles))

	contradicted, err := m.countContradicted(ctx, existing.PromotableAxioms(), newPrinciples)
	if err != nil {
		return domain.CycleDecision{}, err
	}

	triggers := []string{}
	if ratio > t.NewPrincipleRatio {
		triggers = append(triggers, fmt.Sprintf("new principle ratio %.1f%% exceeds threshold %.1f%%", ratio*100, t.NewPrincipleRatio*100))
	}
	if contradicted >= t.ContradictionCount {
		triggers = append(triggers, fmt.Sprintf("%d existing axioms contradicted (threshold %d)", contradicted, t.ContradictionCount))
	}
	if t.ForceResynthesis {
		triggers = append(triggers, TriggerManualOverride)
	}

	m.logger.Debug("cycle evaluated",
		zap.Int("existing_principles", len(existing.Principles)),
		zap.Int("new_principles", len(newPrinciples)),
		zap.Int("unmatched", unmatched),
		zap.Float64("new_ratio", ratio),
		zap.Int("contradicted", contradicted),
		zap.Strings("triggers", triggers))

	if len(triggers) > 0 {
		return domain.CycleDecision{
			Mode:     domain.CycleFullResynthesis,
			Reason:   "resynthesis triggered: " + strings.Join(triggers, "; "),
			Triggers: triggers,
		}, nil
	}
	reason := fmt.Sprintf("new principle ratio %.1f%% within threshold %.1f%%, %d contradicted axioms below threshold %d",
		ratio*100, t.NewPrincipleRatio*100, contradicted, t.ContradictionCount)
	return domain.CycleDecision{Mode: domain.CycleIncremental, Reason: reason, Triggers: triggers}, nil
}

// countUnmatched counts new principles with no existing principle at or above threshold.
func (m *CycleManager) countUnmatched(ctx context.Context, existing, incoming []domain.Principle, threshold float64) (int, error) {
	texts := make([]string, len(existing))
	for i, p := range existing {
		texts[i] = p.RepresentativeText
	}

	var unmatched atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, p := range incoming {
		g.Go(func() error {
			best, err := m.oracle.BestMatch(gctx, p.RepresentativeText, texts)
			if err != nil {
				return fmt.Errorf("match new principle %s: %w", p.ID, err)
			}
			if !best.Found || best.Confidence < threshold {
				unmatched.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return int(unmatched.Load()), nil
}

// countContradicted counts existing promotable axioms that at least one new principle
// conflicts with. Once an axiom is known to be contradicted its remaining pairs are skipped.
func (m *CycleManager) countContradicted(ctx context.Context, axioms []domain.Axiom, incoming []domain.Principle) (int, error) {
	if len(axioms) == 0 || len(incoming) == 0 {
		return 0, nil
	}

	hit := make([]atomic.Bool, len(axioms))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i := range axioms {
		for _, p := range incoming {
			g.Go(func() error {
				if hit[i].Load() {
					return nil
				}
				res, err := m.conflicts.DescribeConflict(gctx, axioms[i].Text, p.RepresentativeText)
				if err != nil {
					return fmt.Errorf("check axiom %s against principle %s: %w", axioms[i].ID, p.ID, err)
				}
				if res.Conflict {
					hit[i].Store(true)
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	count := 0
	for i := range hit {
		if hit[i].Load() {
			count++
		}
	}
	return count, nil
}

func withCycleDefaults(t domain.CycleThresholds) domain.CycleThresholds {
	if t.NewPrincipleRatio <= 0 {
		t.NewPrincipleRatio = DefaultNewPrincipleRatio
	}
	if t.ContradictionCount <= 0 {
		t.ContradictionCount = DefaultContradictionCount
	}
	if t.MatchThreshold <= 0 {
		t.MatchThreshold = DefaultCycleMatchThreshold
	}
	return t
}
