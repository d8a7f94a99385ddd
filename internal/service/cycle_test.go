package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
	"github.com/live-neon/neon-soul-sub003/internal/llm"
)

func principlesFrom(texts ...string) []domain.Principle {
	out := make([]domain.Principle, len(texts))
	for i, text := range texts {
		out[i] = domain.Principle{ID: uuid.New(), RepresentativeText: text}
	}
	return out
}

func numbered(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d", prefix, i)
	}
	return out
}

func corpusOf(principles []domain.Principle, axioms ...domain.Axiom) *domain.Corpus {
	return &domain.Corpus{ID: uuid.New(), Cycle: 1, Principles: principles, Axioms: axioms}
}

func newCycleManager(mock *llm.MockClient) *CycleManager {
	return NewCycleManager(llmOracle(mock), mock, 4, zap.NewNop())
}

func TestCycleManager_Initial(t *testing.T) {
	tests := []struct {
		name     string
		existing *domain.Corpus
		force    bool
	}{
		{"no corpus", nil, false},
		{"empty corpus", corpusOf(nil), false},
		{"force without corpus", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := llm.NewMockClient()
			th := DefaultCycleThresholds()
			th.ForceResynthesis = tt.force

			d, err := newCycleManager(mock).Decide(context.Background(), tt.existing, principlesFrom("a", "b"), th)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Mode != domain.CycleInitial {
				t.Errorf("expected initial, got %s", d.Mode)
			}
			if d.Triggers == nil || len(d.Triggers) != 0 {
				t.Errorf("expected empty triggers, got %v", d.Triggers)
			}
			if eq, conflict, _ := mock.CallCounts(); eq+conflict != 0 {
				t.Errorf("initial decision should not consult the oracles")
			}
		})
	}
}

func TestCycleManager_Incremental(t *testing.T) {
	texts := numbered("existing principle", 10)
	existing := corpusOf(principlesFrom(texts...))
	incoming := principlesFrom(append(texts[:8:8], "novel one", "novel two")...)

	d, err := newCycleManager(llm.NewMockClient()).Decide(context.Background(), existing, incoming, DefaultCycleThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Mode != domain.CycleIncremental {
		t.Fatalf("expected incremental, got %s (%s)", d.Mode, d.Reason)
	}
	if len(d.Triggers) != 0 {
		t.Errorf("expected no triggers, got %v", d.Triggers)
	}
	if !strings.Contains(d.Reason, "20.0%") {
		t.Errorf("expected the ratio in the reason, got %q", d.Reason)
	}
}

func TestCycleManager_RatioTrigger(t *testing.T) {
	texts := numbered("existing principle", 10)
	existing := corpusOf(principlesFrom(texts...))
	incoming := principlesFrom(append(texts[:6:6], "novel a", "novel b", "novel c", "novel d")...)

	d, err := newCycleManager(llm.NewMockClient()).Decide(context.Background(), existing, incoming, DefaultCycleThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Mode != domain.CycleFullResynthesis {
		t.Fatalf("expected full resynthesis, got %s", d.Mode)
	}
	if len(d.Triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %v", d.Triggers)
	}
	want := "new principle ratio 40.0% exceeds threshold 30.0%"
	if d.Triggers[0] != want {
		t.Errorf("expected trigger %q, got %q", want, d.Triggers[0])
	}
	if !strings.Contains(d.Reason, want) {
		t.Errorf("reason should name the trigger, got %q", d.Reason)
	}
}

func TestCycleManager_ContradictionTrigger(t *testing.T) {
	texts := numbered("existing principle", 4)
	axioms := []domain.Axiom{
		{ID: uuid.New(), Text: "Never lie", Promotable: true},
		{ID: uuid.New(), Text: "Never hedge", Promotable: true},
		{ID: uuid.New(), Text: "Stay curious", Promotable: true},
		{ID: uuid.New(), Text: "Never boast", Promotable: false},
	}
	existing := corpusOf(principlesFrom(texts...), axioms...)

	mock := llm.NewMockClient()
	mock.ConflictFunc = func(a, b string) *domain.ConflictResult {
		if strings.HasPrefix(a, "Never") && b == texts[0] {
			return &domain.ConflictResult{Conflict: true, Description: "contradiction"}
		}
		return &domain.ConflictResult{}
	}

	d, err := newCycleManager(mock).Decide(context.Background(), existing, principlesFrom(texts...), DefaultCycleThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Mode != domain.CycleFullResynthesis {
		t.Fatalf("expected full resynthesis, got %s (%s)", d.Mode, d.Reason)
	}
	want := []string{"2 existing axioms contradicted (threshold 2)"}
	if diff := cmp.Diff(want, d.Triggers); diff != "" {
		t.Errorf("triggers mismatch (-want +got):\n%s", diff)
	}
	for _, call := range mock.ConflictCalls {
		if call.A == "Never boast" {
			t.Errorf("blocked axioms must not be checked for contradiction")
		}
	}
}

func TestCycleManager_RetriesTransientConflictFailure(t *testing.T) {
	texts := numbered("existing principle", 4)
	existing := corpusOf(principlesFrom(texts...),
		domain.Axiom{ID: uuid.New(), Text: "Never lie", Promotable: true},
		domain.Axiom{ID: uuid.New(), Text: "Never hedge", Promotable: true},
	)

	mock := llm.NewMockClient()
	mock.ConflictFunc = func(a, b string) *domain.ConflictResult {
		return &domain.ConflictResult{Conflict: b == texts[0], Description: "contradiction"}
	}
	flaky := &failingOnce{next: mock}
	m := NewCycleManager(llmOracle(mock), llm.NewRetryingConflicts(flaky, fastRetrier()), 1, zap.NewNop())

	d, err := m.Decide(context.Background(), existing, principlesFrom(texts...), DefaultCycleThresholds())
	if err != nil {
		t.Fatalf("a single 429 must be retried, got %v", err)
	}
	want := []string{"2 existing axioms contradicted (threshold 2)"}
	if diff := cmp.Diff(want, d.Triggers); diff != "" {
		t.Errorf("triggers mismatch (-want +got):\n%s", diff)
	}
	if flaky.calls != len(mock.ConflictCalls)+1 {
		t.Errorf("expected exactly one extra call for the retry, got %d calls for %d answers", flaky.calls, len(mock.ConflictCalls))
	}
}

func TestCycleManager_ForceOverride(t *testing.T) {
	texts := numbered("existing principle", 5)
	existing := corpusOf(principlesFrom(texts...))
	th := DefaultCycleThresholds()
	th.ForceResynthesis = true

	d, err := newCycleManager(llm.NewMockClient()).Decide(context.Background(), existing, principlesFrom(texts...), th)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Mode != domain.CycleFullResynthesis {
		t.Fatalf("expected full resynthesis, got %s", d.Mode)
	}
	if diff := cmp.Diff([]string{TriggerManualOverride}, d.Triggers); diff != "" {
		t.Errorf("triggers mismatch (-want +got):\n%s", diff)
	}
}

func TestCycleManager_MatchThresholdIsStricterThanOracle(t *testing.T) {
	texts := numbered("existing principle", 4)
	existing := corpusOf(principlesFrom(texts...))

	// Every pair is judged equivalent with medium confidence (0.7): enough for the
	// oracle's own threshold, below the cycle match threshold.
	mock := llm.NewMockClient()
	mock.EquivalenceFunc = nil
	mock.EquivalenceResponse = &domain.EquivalenceJudgment{Equivalent: true, Band: "medium"}

	d, err := newCycleManager(mock).Decide(context.Background(), existing, principlesFrom(texts...), DefaultCycleThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Mode != domain.CycleFullResynthesis {
		t.Errorf("medium matches should count as new, got %s (%s)", d.Mode, d.Reason)
	}
}

func TestCycleManager_Idempotent(t *testing.T) {
	texts := numbered("existing principle", 10)
	existing := corpusOf(principlesFrom(texts...))
	incoming := principlesFrom(append(texts[:7:7], "x", "y", "z")...)
	m := newCycleManager(llm.NewMockClient())

	first, err := m.Decide(context.Background(), existing, incoming, DefaultCycleThresholds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := m.Decide(context.Background(), existing, incoming, DefaultCycleThresholds())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("decision changed between calls (-first +again):\n%s", diff)
		}
	}
}

func TestCycleManager_OracleError(t *testing.T) {
	mock := llm.NewMockClient()
	mock.EquivalenceError = llm.NewFatalError(errors.New("invalid key"))
	existing := corpusOf(principlesFrom("a"))

	_, err := newCycleManager(mock).Decide(context.Background(), existing, principlesFrom("b"), DefaultCycleThresholds())
	if !llm.IsFatal(err) {
		t.Errorf("expected oracle error to propagate, got %v", err)
	}
}

func TestWithCycleDefaults(t *testing.T) {
	got := withCycleDefaults(domain.CycleThresholds{ContradictionCount: 5, ForceResynthesis: true})
	want := domain.CycleThresholds{
		NewPrincipleRatio:  DefaultNewPrincipleRatio,
		ContradictionCount: 5,
		MatchThreshold:     DefaultCycleMatchThreshold,
		ForceResynthesis:   true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}
