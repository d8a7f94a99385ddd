package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

func TestDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "DATABASE_URL", "CORPUS_BACKEND", "SIMILARITY_THRESHOLD", "BACKEND_RPS", "LLM_PROVIDER"} {
		t.Setenv(key, "")
	}

	if got := ServerAddr(); got != ":8080" {
		t.Errorf("ServerAddr = %q, want :8080", got)
	}
	if got := CorpusBackend(); got != "sqlite" {
		t.Errorf("CorpusBackend = %q, want sqlite without DATABASE_URL", got)
	}
	if got := SimilarityThreshold(); got != 0.7 {
		t.Errorf("SimilarityThreshold = %v, want 0.7", got)
	}
	if got := BackendRPS(); got != 10 {
		t.Errorf("BackendRPS = %v, want 10", got)
	}
	if got := LLMProvider(); got != "openai" {
		t.Errorf("LLMProvider = %q, want openai", got)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	tests := []struct {
		key  string
		val  string
		get  func() float64
		want float64
	}{
		{"SIMILARITY_THRESHOLD", "abc", SimilarityThreshold, 0.7},
		{"SIMILARITY_THRESHOLD", "-1", SimilarityThreshold, 0.7},
		{"ORPHAN_WARN_RATE", "0", OrphanWarnRate, 0.2},
		{"RATE_LIMIT_RPS", "250", RateLimitRPS, 250},
		{"BACKEND_RPS", "0", BackendRPS, 0},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if got := tt.get(); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLLMAPIKeyFallsBackToProviderKey(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	if got := LLMAPIKey(); got != "sk-ant" {
		t.Errorf("LLMAPIKey = %q, want provider key", got)
	}

	t.Setenv("LLM_API_KEY", "override")
	if got := LLMAPIKey(); got != "override" {
		t.Errorf("LLMAPIKey = %q, want LLM_API_KEY", got)
	}
}

func TestPromotionCriteriaOverlay(t *testing.T) {
	base := domain.PromotionCriteria{
		MinPrincipleCount:      3,
		MinProvenanceDiversity: 2,
		TierThresholds: domain.TierThresholds{
			CoreDimensions:          []string{"identity-core"},
			CoreEvidenceThreshold:   6,
			DomainEvidenceThreshold: 4,
		},
	}
	t.Setenv("MIN_PRINCIPLE_COUNT", "5")
	t.Setenv("MIN_PROVENANCE_DIVERSITY", "")
	t.Setenv("CORE_EVIDENCE_THRESHOLD", "7.5")
	t.Setenv("DOMAIN_EVIDENCE_THRESHOLD", "nope")
	t.Setenv("CORE_DIMENSIONS", " identity-core, voice-presence ,,")

	got := PromotionCriteria(base)
	want := base
	want.MinPrincipleCount = 5
	want.CoreEvidenceThreshold = 7.5
	want.CoreDimensions = []string{"identity-core", "voice-presence"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("criteria mismatch (-want +got):\n%s", diff)
	}
}

func TestCycleThresholdsOverlay(t *testing.T) {
	base := domain.CycleThresholds{NewPrincipleRatio: 0.3, ContradictionCount: 2, MatchThreshold: 0.85}
	t.Setenv("NEW_PRINCIPLE_RATIO", "0.5")
	t.Setenv("CONTRADICTION_COUNT", "")
	t.Setenv("CYCLE_MATCH_THRESHOLD", "")

	got := CycleThresholds(base)
	want := base
	want.NewPrincipleRatio = 0.5
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("thresholds mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadReadsEnvFileAndSecret(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, "test.env")
	if err := os.WriteFile(env, []byte("SQLITE_PATH=/tmp/from-env.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(env+".secret", []byte("API_KEY=from-secret\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOUL_ENV", env)
	// godotenv never overrides variables that are already set, so start from empty.
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("API_KEY", "")
	os.Unsetenv("SQLITE_PATH")
	os.Unsetenv("API_KEY")

	if err := Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := SQLitePath(); got != "/tmp/from-env.db" {
		t.Errorf("SQLitePath = %q", got)
	}
	if got := APIKey(); got != "from-secret" {
		t.Errorf("APIKey = %q", got)
	}
}
