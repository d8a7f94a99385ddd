package domain

import (
	"time"

	"github.com/google/uuid"
)

type CycleMode string

const (
	CycleInitial         CycleMode = "initial"
	CycleIncremental     CycleMode = "incremental"
	CycleFullResynthesis CycleMode = "full_resynthesis"
)

func ValidCycleMode(m string) bool {
	switch CycleMode(m) {
	case CycleInitial, CycleIncremental, CycleFullResynthesis:
		return true
	}
	return false
}

// CycleDecision records how a run relates to the persisted corpus.
type CycleDecision struct {
	Mode     CycleMode `json:"mode"`
	Reason   string    `json:"reason"`
	Triggers []string  `json:"triggers"`
}

// CycleThresholds configures the resynthesis triggers.
type CycleThresholds struct {
	NewPrincipleRatio  float64 `json:"new_principle_ratio"`
	ContradictionCount int     `json:"contradiction_count"`
	MatchThreshold     float64 `json:"match_threshold"`
	ForceResynthesis   bool    `json:"force_resynthesis"`
}

// PromotionCriteria configures the axiom promoter.
type PromotionCriteria struct {
	MinPrincipleCount      int `json:"min_principle_count"`
	MinProvenanceDiversity int `json:"min_provenance_diversity"`
	TierThresholds
	Cycle int `json:"cycle"`
}

// Corpus is the persisted snapshot a run reads before deciding and writes after success.
type Corpus struct {
	ID         uuid.UUID      `json:"id"`
	Cycle      int            `json:"cycle"`
	Principles []Principle    `json:"principles"`
	Axioms     []Axiom        `json:"axioms"`
	Tensions   []ValueTension `json:"tensions"`
	Decision   CycleDecision  `json:"decision"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Signals returns every signal held by the corpus principles.
func (c *Corpus) Signals() []Signal {
	if c == nil {
		return nil
	}
	var out []Signal
	for _, p := range c.Principles {
		out = append(out, p.Signals...)
	}
	return out
}

// PromotableAxioms returns the axioms that passed promotion.
func (c *Corpus) PromotableAxioms() []Axiom {
	if c == nil {
		return nil
	}
	var out []Axiom
	for _, a := range c.Axioms {
		if a.Promotable {
			out = append(out, a)
		}
	}
	return out
}

// RunStats summarizes what a run did.
type RunStats struct {
	SignalsIn          int                     `json:"signals_in" yaml:"signals_in"`
	Created            int                     `json:"created" yaml:"created"`
	Reinforced         int                     `json:"reinforced" yaml:"reinforced"`
	Merged             int                     `json:"merged" yaml:"merged"`
	Duplicates         int                     `json:"duplicates" yaml:"duplicates"`
	Reclustered        int                     `json:"reclustered" yaml:"reclustered"`
	Classified         int                     `json:"classified" yaml:"classified"`
	PromotableAxioms   int                     `json:"promotable_axioms" yaml:"promotable_axioms"`
	BlockedAxioms      int                     `json:"blocked_axioms" yaml:"blocked_axioms"`
	TensionsBySeverity map[TensionSeverity]int `json:"tensions_by_severity" yaml:"tensions_by_severity"`
}

// RunResult is what the engine hands to downstream rendering and audit.
type RunResult struct {
	CorpusID        uuid.UUID      `json:"corpus_id"`
	Cycle           int            `json:"cycle"`
	Principles      []Principle    `json:"principles"`
	Axioms          []Axiom        `json:"axioms"`
	Tensions        []ValueTension `json:"tensions"`
	CycleDecision   CycleDecision  `json:"cycle_decision"`
	OrphanedSignals []Signal       `json:"orphaned_signals"`
	Stats           RunStats       `json:"stats"`
	Warnings        []string       `json:"warnings,omitempty"`
}
