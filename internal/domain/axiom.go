package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// axiomNamespace scopes UUIDv5 axiom identifiers.
var axiomNamespace = uuid.MustParse("6f1c2d7e-3a4b-5c6d-8e9f-0a1b2c3d4e5f")

const (
	BlockerProvenanceDiversity = "insufficient provenance diversity"
	BlockerEchoChamber         = "requires EXTERNAL provenance OR QUESTIONING/DENYING stance"
)

// Axiom is a promoted, canonical identity statement. Text and Tier are fixed for the
// run that emitted it; later cycles emit new records sharing the same LineageKey.
type Axiom struct {
	ID                     uuid.UUID   `json:"id"`
	LineageKey             string      `json:"lineage_key"`
	Cycle                  int         `json:"cycle"`
	Text                   string      `json:"text"`
	Tier                   AxiomTier   `json:"tier"`
	Dimension              string      `json:"dimension,omitempty"`
	SupportingPrincipleIDs []uuid.UUID `json:"supporting_principle_ids"`
	SignalCount            int         `json:"signal_count"`
	EvidenceWeight         float64     `json:"evidence_weight"`
	Promotable             bool        `json:"promotable"`
	PromotionBlocker       string      `json:"promotion_blocker,omitempty"`
	Tensions               []uuid.UUID `json:"tensions"`
}

// LineageKey derives a stable identity key from a set of principle IDs.
func LineageKey(principleIDs []uuid.UUID) string {
	ids := make([]string, len(principleIDs))
	for i, id := range principleIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)

	h := sha256.New()
	for _, id := range ids {
		h.Write([]byte(id))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// AxiomID returns the per-cycle identifier for a lineage.
func AxiomID(lineageKey string, cycle int) uuid.UUID {
	return uuid.NewSHA1(axiomNamespace, []byte(lineageKey+":"+strconv.Itoa(cycle)))
}

type TensionSeverity string

const (
	SeverityHigh   TensionSeverity = "high"
	SeverityMedium TensionSeverity = "medium"
	SeverityLow    TensionSeverity = "low"
)

// ValueTension is a detected conflict between two axioms, stored with AxiomAID < AxiomBID.
type ValueTension struct {
	AxiomAID    uuid.UUID       `json:"axiom_a_id"`
	AxiomBID    uuid.UUID       `json:"axiom_b_id"`
	Description string          `json:"description"`
	Severity    TensionSeverity `json:"severity"`
}

// CanonicalPair orders two axiom IDs for tension storage.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if b.String() < a.String() {
		return b, a
	}
	return a, b
}

// ConflictResult is the answer of a semantic-conflict oracle.
type ConflictResult struct {
	Conflict    bool   `json:"conflict"`
	Description string `json:"description"`
}

// EquivalenceJudgment is a language-model verdict on whether two texts say the same thing.
// Band is the raw confidence band as returned ("high", "medium", "low" or anything else).
type EquivalenceJudgment struct {
	Equivalent bool   `json:"equivalent"`
	Band       string `json:"band"`
}
