package service

import (
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// Promotion defaults. Tier marks are provisional and meant to be tuned through config.
const (
	DefaultMinPrincipleCount       = 3
	DefaultMinProvenanceDiversity  = 2
	DefaultCoreEvidenceThreshold   = 6.0
	DefaultDomainEvidenceThreshold = 4.0
)

// DefaultCoreDimensions are the identity and boundary dimensions eligible for the core tier.
var DefaultCoreDimensions = []string{"identity-core", "boundaries-ethics"}

func DefaultPromotionCriteria() domain.PromotionCriteria {
	return domain.PromotionCriteria{
		MinPrincipleCount:      DefaultMinPrincipleCount,
		MinProvenanceDiversity: DefaultMinProvenanceDiversity,
		TierThresholds: domain.TierThresholds{
			CoreDimensions:          append([]string(nil), DefaultCoreDimensions...),
			CoreEvidenceThreshold:   DefaultCoreEvidenceThreshold,
			DomainEvidenceThreshold: DefaultDomainEvidenceThreshold,
		},
	}
}

// AxiomPromoter turns principles with enough evidence into axioms. It makes no backend
// calls: the same principles and criteria always yield the same axioms.
type AxiomPromoter struct {
	logger *zap.Logger
}

func NewAxiomPromoter(logger *zap.Logger) *AxiomPromoter {
	return &AxiomPromoter{logger: logger}
}

// Promote emits one axiom per principle with at least MinPrincipleCount signals, sorted
// by lineage key. Axioms that fail a check are still emitted, with Promotable false and
// the first failing blocker, so callers can see why.
func (p *AxiomPromoter) Promote(principles []domain.Principle, criteria domain.PromotionCriteria) []domain.Axiom {
	if criteria.MinPrincipleCount <= 0 {
		criteria.MinPrincipleCount = DefaultMinPrincipleCount
	}
	if criteria.MinProvenanceDiversity <= 0 {
		criteria.MinProvenanceDiversity = DefaultMinProvenanceDiversity
	}

	axioms := make([]domain.Axiom, 0)
	blocked := 0
	for i := range principles {
		pr := &principles[i]
		if pr.NCount() < criteria.MinPrincipleCount {
			continue
		}

		blocker := PromotionBlocker(pr, criteria)
		if blocker != "" {
			blocked++
		}

		lineage := domain.LineageKey([]uuid.UUID{pr.ID})
		tier := domain.ComputeTier(pr.Dimension, pr.EvidenceWeight, criteria.TierThresholds)
		p.logger.Debug("axiom candidate",
			zap.String("lineage_key", lineage),
			zap.String("tier", string(tier)),
			zap.String("tier_reason", domain.TierReason(pr.Dimension, pr.EvidenceWeight, criteria.TierThresholds)),
			zap.String("blocker", blocker))
		axioms = append(axioms, domain.Axiom{
			ID:                     domain.AxiomID(lineage, criteria.Cycle),
			LineageKey:             lineage,
			Cycle:                  criteria.Cycle,
			Text:                   pr.RepresentativeText,
			Tier:                   tier,
			Dimension:              pr.Dimension,
			SupportingPrincipleIDs: []uuid.UUID{pr.ID},
			SignalCount:            pr.NCount(),
			EvidenceWeight:         pr.EvidenceWeight,
			Promotable:             blocker == "",
			PromotionBlocker:       blocker,
			Tensions:               []uuid.UUID{},
		})
	}

	sort.Slice(axioms, func(i, j int) bool { return axioms[i].LineageKey < axioms[j].LineageKey })

	p.logger.Debug("promotion complete",
		zap.Int("principles", len(principles)),
		zap.Int("candidates", len(axioms)),
		zap.Int("blocked", blocked))
	return axioms
}

// PromotionBlocker returns the first promotion check the principle fails, or "" when it
// passes. The signal-count bar is applied by Promote before this is consulted.
func PromotionBlocker(p *domain.Principle, criteria domain.PromotionCriteria) string {
	if len(p.DistinctProvenance()) < criteria.MinProvenanceDiversity {
		return domain.BlockerProvenanceDiversity
	}
	if !challenged(p) {
		return domain.BlockerEchoChamber
	}
	return ""
}

// challenged reports whether any supporting evidence is independently sourced or contests
// the claim. Self-authored or curated agreement alone cannot validate an identity claim.
func challenged(p *domain.Principle) bool {
	for _, s := range p.Signals {
		if s.Provenance == domain.ProvenanceExternal || s.Stance.Contests() {
			return true
		}
	}
	return false
}
