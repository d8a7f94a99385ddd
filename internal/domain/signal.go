package domain

import (
	"time"

	"github.com/google/uuid"
)

type Stance string

const (
	StanceAssert   Stance = "assert"
	StanceDeny     Stance = "deny"
	StanceQuestion Stance = "question"
	StanceQualify  Stance = "qualify"
)

func ValidStance(s string) bool {
	switch Stance(s) {
	case StanceAssert, StanceDeny, StanceQuestion, StanceQualify:
		return true
	}
	return false
}

// Contests reports whether the stance challenges the statement rather than asserting it.
func (s Stance) Contests() bool {
	switch s {
	case StanceQuestion, StanceDeny:
		return true
	case StanceAssert, StanceQualify:
		return false
	}
	return false
}

type Importance string

const (
	ImportanceCore       Importance = "core"
	ImportanceSupporting Importance = "supporting"
	ImportancePeripheral Importance = "peripheral"
)

func ValidImportance(i string) bool {
	switch Importance(i) {
	case ImportanceCore, ImportanceSupporting, ImportancePeripheral:
		return true
	}
	return false
}

// Weight returns the evidence multiplier for the importance level.
// The second return is false for values outside the closed set.
func (i Importance) Weight() (float64, bool) {
	switch i {
	case ImportanceCore:
		return 1.5, true
	case ImportanceSupporting:
		return 1.0, true
	case ImportancePeripheral:
		return 0.5, true
	}
	return 0, false
}

type SourceKind string

const (
	SourceAgentInitiated          SourceKind = "agent_initiated"
	SourceUserElicited            SourceKind = "user_elicited"
	SourceContextDependent        SourceKind = "context_dependent"
	SourceConsistentAcrossContext SourceKind = "consistent_across_context"
)

func ValidSourceKind(k string) bool {
	switch SourceKind(k) {
	case SourceAgentInitiated, SourceUserElicited, SourceContextDependent, SourceConsistentAcrossContext:
		return true
	}
	return false
}

// ProvenanceOrigin classifies where the source material of a signal came from.
type ProvenanceOrigin string

const (
	ProvenanceSelf     ProvenanceOrigin = "self"
	ProvenanceCurated  ProvenanceOrigin = "curated"
	ProvenanceExternal ProvenanceOrigin = "external"
)

func ValidProvenance(p string) bool {
	switch ProvenanceOrigin(p) {
	case ProvenanceSelf, ProvenanceCurated, ProvenanceExternal:
		return true
	}
	return false
}

// Signal is an atomic behavioral statement extracted from source text.
// Signals are immutable once created.
type Signal struct {
	ID         uuid.UUID        `json:"id" yaml:"id"`
	Text       string           `json:"text" yaml:"text"`
	Confidence float64          `json:"confidence" yaml:"confidence"`
	Stance     Stance           `json:"stance" yaml:"stance"`
	Importance Importance       `json:"importance" yaml:"importance"`
	SourceKind SourceKind       `json:"source_kind" yaml:"source_kind"`
	Provenance ProvenanceOrigin `json:"provenance_origin" yaml:"provenance_origin"`
	Dimension  string           `json:"dimension,omitempty" yaml:"dimension,omitempty"`
	CreatedAt  time.Time        `json:"created_at" yaml:"created_at"`
}

// Score is the signal's individual weight when choosing a principle's representative text.
func (s Signal) Score() float64 {
	w, _ := s.Importance.Weight()
	return s.Confidence * w
}

// NeedsClassification reports whether any classifier-supplied field is missing.
func (s Signal) NeedsClassification() bool {
	return s.Stance == "" || s.Importance == "" || s.SourceKind == "" || s.Dimension == ""
}

// SignalClassification is the metadata a classifier attaches to a signal.
type SignalClassification struct {
	Stance     Stance     `json:"stance"`
	Importance Importance `json:"importance"`
	SourceKind SourceKind `json:"source_kind"`
	Dimension  string     `json:"dimension"`
}
