package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Principle is a cluster of semantically equivalent signals.
// EvidenceWeight and RepresentativeText are owned by the principle store.
type Principle struct {
	ID                  uuid.UUID          `json:"id"`
	RepresentativeText  string             `json:"representative_text"`
	Signals             []Signal           `json:"signals"`
	EvidenceWeight      float64            `json:"evidence_weight"`
	Dimension           string             `json:"dimension,omitempty"`
	ProvenanceDiversity []ProvenanceOrigin `json:"provenance_diversity"`
	Embedding           []float32          `json:"-"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// NCount is the number of signals supporting the principle.
func (p *Principle) NCount() int {
	return len(p.Signals)
}

// Representative returns the member with the highest confidence x importance weight.
// Ties go to the earliest CreatedAt, then to insertion order.
func (p *Principle) Representative() (Signal, bool) {
	if len(p.Signals) == 0 {
		return Signal{}, false
	}
	best := p.Signals[0]
	for _, s := range p.Signals[1:] {
		switch {
		case s.Score() > best.Score():
			best = s
		case s.Score() == best.Score() && s.CreatedAt.Before(best.CreatedAt):
			best = s
		}
	}
	return best, true
}

// MajorityDimension returns the most frequent member dimension, ties to the first seen.
func (p *Principle) MajorityDimension() string {
	counts := make(map[string]int)
	var order []string
	for _, s := range p.Signals {
		if s.Dimension == "" {
			continue
		}
		if counts[s.Dimension] == 0 {
			order = append(order, s.Dimension)
		}
		counts[s.Dimension]++
	}
	best := ""
	for _, d := range order {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}

// DistinctProvenance returns the sorted set of provenance origins among the signals.
func (p *Principle) DistinctProvenance() []ProvenanceOrigin {
	seen := make(map[ProvenanceOrigin]bool)
	var out []ProvenanceOrigin
	for _, s := range p.Signals {
		if !seen[s.Provenance] {
			seen[s.Provenance] = true
			out = append(out, s.Provenance)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a deep copy safe to hand outside the store.
func (p *Principle) Clone() Principle {
	c := *p
	c.Signals = append([]Signal(nil), p.Signals...)
	c.ProvenanceDiversity = append([]ProvenanceOrigin(nil), p.ProvenanceDiversity...)
	if p.Embedding != nil {
		c.Embedding = append([]float32(nil), p.Embedding...)
	}
	return c
}
