package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestImportanceWeight(t *testing.T) {
	tests := []struct {
		importance Importance
		want       float64
		ok         bool
	}{
		{ImportanceCore, 1.5, true},
		{ImportanceSupporting, 1.0, true},
		{ImportancePeripheral, 0.5, true},
		{Importance("critical"), 0, false},
		{Importance(""), 0, false},
	}

	for _, tt := range tests {
		got, ok := tt.importance.Weight()
		if got != tt.want || ok != tt.ok {
			t.Errorf("%q.Weight() = (%v, %v), want (%v, %v)", tt.importance, got, ok, tt.want, tt.ok)
		}
	}
}

func TestStanceContests(t *testing.T) {
	contesting := map[Stance]bool{
		StanceAssert:   false,
		StanceQualify:  false,
		StanceQuestion: true,
		StanceDeny:     true,
	}
	for stance, want := range contesting {
		if got := stance.Contests(); got != want {
			t.Errorf("%q.Contests() = %v, want %v", stance, got, want)
		}
	}
}

func TestValidEnums(t *testing.T) {
	if !ValidStance("qualify") || ValidStance("maybe") {
		t.Error("stance validation mismatch")
	}
	if !ValidSourceKind("consistent_across_context") || ValidSourceKind("unknown") {
		t.Error("source kind validation mismatch")
	}
	if !ValidProvenance("external") || ValidProvenance("EXTERNAL") {
		t.Error("provenance validation mismatch")
	}
}

func TestPrincipleRepresentative(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("highest score wins", func(t *testing.T) {
		p := &Principle{Signals: []Signal{
			{ID: uuid.New(), Text: "low", Confidence: 0.9, Importance: ImportancePeripheral, CreatedAt: t0},
			{ID: uuid.New(), Text: "high", Confidence: 0.6, Importance: ImportanceCore, CreatedAt: t0.Add(time.Hour)},
		}}
		rep, ok := p.Representative()
		if !ok || rep.Text != "high" {
			t.Errorf("expected 'high', got %q", rep.Text)
		}
	})

	t.Run("tie broken by earliest created_at", func(t *testing.T) {
		p := &Principle{Signals: []Signal{
			{ID: uuid.New(), Text: "later", Confidence: 0.8, Importance: ImportanceSupporting, CreatedAt: t0.Add(time.Minute)},
			{ID: uuid.New(), Text: "earlier", Confidence: 0.8, Importance: ImportanceSupporting, CreatedAt: t0},
		}}
		rep, _ := p.Representative()
		if rep.Text != "earlier" {
			t.Errorf("expected 'earlier', got %q", rep.Text)
		}
	})

	t.Run("full tie keeps insertion order", func(t *testing.T) {
		p := &Principle{Signals: []Signal{
			{ID: uuid.New(), Text: "first", Confidence: 0.5, Importance: ImportanceCore, CreatedAt: t0},
			{ID: uuid.New(), Text: "second", Confidence: 0.5, Importance: ImportanceCore, CreatedAt: t0},
		}}
		rep, _ := p.Representative()
		if rep.Text != "first" {
			t.Errorf("expected 'first', got %q", rep.Text)
		}
	})

	t.Run("empty principle", func(t *testing.T) {
		if _, ok := (&Principle{}).Representative(); ok {
			t.Error("expected no representative for empty principle")
		}
	})
}

func TestPrincipleMajorityDimension(t *testing.T) {
	p := &Principle{Signals: []Signal{
		{Dimension: "voice-presence"},
		{Dimension: "identity-core"},
		{Dimension: ""},
		{Dimension: "identity-core"},
	}}
	if got := p.MajorityDimension(); got != "identity-core" {
		t.Errorf("MajorityDimension() = %q, want identity-core", got)
	}

	tied := &Principle{Signals: []Signal{{Dimension: "b"}, {Dimension: "a"}}}
	if got := tied.MajorityDimension(); got != "b" {
		t.Errorf("tie should go to first seen, got %q", got)
	}
}

func TestPrincipleDistinctProvenance(t *testing.T) {
	p := &Principle{Signals: []Signal{
		{Provenance: ProvenanceSelf},
		{Provenance: ProvenanceExternal},
		{Provenance: ProvenanceSelf},
	}}
	got := p.DistinctProvenance()
	if len(got) != 2 || got[0] != ProvenanceExternal || got[1] != ProvenanceSelf {
		t.Errorf("DistinctProvenance() = %v, want [external self]", got)
	}
}

func TestLineageKeyOrderIndependent(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	if LineageKey([]uuid.UUID{a, b}) != LineageKey([]uuid.UUID{b, a}) {
		t.Error("lineage key must not depend on principle order")
	}
	if AxiomID("k", 1) == AxiomID("k", 2) {
		t.Error("axiom IDs must differ across cycles")
	}
	if AxiomID("k", 3) != AxiomID("k", 3) {
		t.Error("axiom IDs must be deterministic")
	}
}

func TestCanonicalPair(t *testing.T) {
	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	x, y := CanonicalPair(b, a)
	if x != a || y != b {
		t.Errorf("CanonicalPair(b, a) = (%v, %v), want (%v, %v)", x, y, a, b)
	}
}
