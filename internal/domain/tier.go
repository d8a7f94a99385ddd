package domain

import (
	"fmt"
	"slices"
)

type AxiomTier string

const (
	TierCore     AxiomTier = "core"
	TierDomain   AxiomTier = "domain"
	TierEmerging AxiomTier = "emerging"
)

// TierThresholds holds the configurable evidence marks used for tier assignment.
type TierThresholds struct {
	CoreDimensions          []string `json:"core_dimensions"`
	CoreEvidenceThreshold   float64  `json:"core_evidence_threshold"`
	DomainEvidenceThreshold float64  `json:"domain_evidence_threshold"`
}

func (t TierThresholds) isCoreDimension(dimension string) bool {
	for _, d := range t.CoreDimensions {
		if d == dimension {
			return true
		}
	}
	return false
}

// ComputeTier assigns a tier from a principle's dimension and evidence weight.
func ComputeTier(dimension string, evidenceWeight float64, t TierThresholds) AxiomTier {
	switch {
	case dimension != "" && t.isCoreDimension(dimension) && evidenceWeight >= t.CoreEvidenceThreshold:
		return TierCore
	case dimension != "" && evidenceWeight >= t.DomainEvidenceThreshold:
		return TierDomain
	default:
		return TierEmerging
	}
}

// TierReason explains the tier ComputeTier assigns, naming the mark that decided it.
func TierReason(dimension string, evidenceWeight float64, t TierThresholds) string {
	switch ComputeTier(dimension, evidenceWeight, t) {
	case TierCore:
		return fmt.Sprintf("identity dimension %q with evidence %.2f >= %.2f", dimension, evidenceWeight, t.CoreEvidenceThreshold)
	case TierDomain:
		return fmt.Sprintf("dimension %q with evidence %.2f >= %.2f", dimension, evidenceWeight, t.DomainEvidenceThreshold)
	default:
		return fmt.Sprintf("evidence %.2f below domain mark %.2f", evidenceWeight, t.DomainEvidenceThreshold)
	}
}

// AllTiers lists tiers from strongest to weakest.
func AllTiers() []AxiomTier {
	return []AxiomTier{TierCore, TierDomain, TierEmerging}
}

func ValidTier(t string) bool {
	return slices.Contains(AllTiers(), AxiomTier(t))
}
