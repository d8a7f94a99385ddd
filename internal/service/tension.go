package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// TensionDetector looks for conflicts between every pair of promotable axioms.
type TensionDetector struct {
	oracle      domain.ConflictOracle
	concurrency int
	logger      *zap.Logger
}

func NewTensionDetector(oracle domain.ConflictOracle, concurrency int, logger *zap.Logger) *TensionDetector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &TensionDetector{oracle: oracle, concurrency: concurrency, logger: logger}
}

type axiomPair struct {
	a, b *domain.Axiom
}

// Scan returns at most one tension per unordered pair of promotable axioms, sorted by pair.
// Pairs are put in canonical order before the oracle sees them, so the input order of
// axioms never changes the question asked or the answer recorded.
func (d *TensionDetector) Scan(ctx context.Context, axioms []domain.Axiom) ([]domain.ValueTension, error) {
	promotable := uniquePromotable(axioms)

	var pairs []axiomPair
	for i := 0; i < len(promotable); i++ {
		for j := i + 1; j < len(promotable); j++ {
			pairs = append(pairs, axiomPair{a: promotable[i], b: promotable[j]})
		}
	}
	if len(pairs) == 0 {
		return []domain.ValueTension{}, nil
	}

	found := make([]*domain.ValueTension, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, pair := range pairs {
		g.Go(func() error {
			res, err := d.oracle.DescribeConflict(gctx, pair.a.Text, pair.b.Text)
			if err != nil {
				return fmt.Errorf("describe conflict %s/%s: %w", pair.a.ID, pair.b.ID, err)
			}
			if !res.Conflict {
				return nil
			}
			found[i] = &domain.ValueTension{
				AxiomAID:    pair.a.ID,
				AxiomBID:    pair.b.ID,
				Description: describe(res.Description, pair),
				Severity:    Severity(pair.a, pair.b),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tensions := make([]domain.ValueTension, 0)
	for _, t := range found {
		if t != nil {
			tensions = append(tensions, *t)
		}
	}

	d.logger.Debug("tension scan complete",
		zap.Int("axioms", len(promotable)),
		zap.Int("pairs", len(pairs)),
		zap.Int("tensions", len(tensions)))
	return tensions, nil
}

// Severity is high for a shared dimension, medium when both axioms are core, low otherwise.
func Severity(a, b *domain.Axiom) domain.TensionSeverity {
	switch {
	case a.Dimension != "" && a.Dimension == b.Dimension:
		return domain.SeverityHigh
	case a.Tier == domain.TierCore && b.Tier == domain.TierCore:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// AttachTensions returns copies of the axioms with each Tensions set filled from the
// detected tensions, sorted by ID.
func AttachTensions(axioms []domain.Axiom, tensions []domain.ValueTension) []domain.Axiom {
	links := make(map[uuid.UUID][]uuid.UUID)
	for _, t := range tensions {
		links[t.AxiomAID] = append(links[t.AxiomAID], t.AxiomBID)
		links[t.AxiomBID] = append(links[t.AxiomBID], t.AxiomAID)
	}

	out := make([]domain.Axiom, len(axioms))
	for i, a := range axioms {
		a.SupportingPrincipleIDs = append([]uuid.UUID(nil), a.SupportingPrincipleIDs...)
		ids := append([]uuid.UUID{}, links[a.ID]...)
		sort.Slice(ids, func(x, y int) bool { return ids[x].String() < ids[y].String() })
		a.Tensions = ids
		out[i] = a
	}
	return out
}

// uniquePromotable returns the promotable axioms once each, ordered by ID.
func uniquePromotable(axioms []domain.Axiom) []*domain.Axiom {
	seen := make(map[uuid.UUID]bool)
	var out []*domain.Axiom
	for i := range axioms {
		a := &axioms[i]
		if !a.Promotable || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func describe(desc string, pair axiomPair) string {
	if desc != "" {
		return desc
	}
	return fmt.Sprintf("%q conflicts with %q", pair.a.Text, pair.b.Text)
}
