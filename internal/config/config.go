package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// Load reads the .env file specified by SOUL_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("SOUL_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// CorpusBackend selects where corpora are persisted: postgres or sqlite.
// Defaults to postgres when DATABASE_URL is set, sqlite otherwise.
func CorpusBackend() string {
	if b := os.Getenv("CORPUS_BACKEND"); b != "" {
		return b
	}
	if DatabaseURL() != "" {
		return "postgres"
	}
	return "sqlite"
}

func SQLitePath() string {
	return stringOr("SQLITE_PATH", "neon-soul.db")
}

// LLMProvider returns the configured LLM provider.
// Valid values: openai, anthropic, gemini, cerebras, mock
func LLMProvider() string {
	return stringOr("LLM_PROVIDER", "openai")
}

// LLMAPIKey returns LLM_API_KEY, falling back to the provider's own key variable.
func LLMAPIKey() string {
	if k := os.Getenv("LLM_API_KEY"); k != "" {
		return k
	}
	switch LLMProvider() {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	case "cerebras":
		return os.Getenv("CEREBRAS_API_KEY")
	case "mock":
		return ""
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock
func EmbeddingProvider() string {
	return stringOr("EMBEDDING_PROVIDER", "openai")
}

func EmbeddingAPIKey() string {
	if k := os.Getenv("EMBEDDING_API_KEY"); k != "" {
		return k
	}
	if EmbeddingProvider() == "mock" {
		return ""
	}
	return os.Getenv("OPENAI_API_KEY")
}

// SimilarityBackend selects the equivalence oracle: embedding or llm.
func SimilarityBackend() string {
	return stringOr("SIMILARITY_BACKEND", "embedding")
}

// SimilarityThreshold is the confidence at which two statements count as equivalent.
func SimilarityThreshold() float64 {
	return positiveFloat("SIMILARITY_THRESHOLD", 0.7)
}

// Concurrency bounds the backend calls in flight per batch.
func Concurrency() int {
	return positiveInt("SYNTHESIS_CONCURRENCY", 8)
}

// BackendRPS throttles calls to the LLM and embedding providers. 0 disables throttling.
func BackendRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("BACKEND_RPS"), 64)
	if err != nil || rps < 0 {
		return 10
	}
	return rps
}

func BackendBurst() int {
	return positiveInt("BACKEND_BURST", 5)
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	return positiveFloat("RATE_LIMIT_RPS", 100)
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	return positiveInt("RATE_LIMIT_BURST", 20)
}

// APIKey is the bearer token required by the HTTP API. Empty disables auth.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	return stringOr("LOG_LEVEL", "info")
}

// NATSURL enables run announcements when set.
func NATSURL() string {
	return os.Getenv("NATS_URL")
}

func NATSSubject() string {
	return stringOr("NATS_SUBJECT", "soul.synthesis.completed")
}

func OrphanEvidenceFloor() float64 {
	return positiveFloat("ORPHAN_EVIDENCE_FLOOR", 2.0)
}

func OrphanWarnRate() float64 {
	return positiveFloat("ORPHAN_WARN_RATE", 0.2)
}

// PromotionCriteria overlays the promotion settings found in the environment on base.
func PromotionCriteria(base domain.PromotionCriteria) domain.PromotionCriteria {
	c := base
	c.MinPrincipleCount = positiveInt("MIN_PRINCIPLE_COUNT", base.MinPrincipleCount)
	c.MinProvenanceDiversity = positiveInt("MIN_PROVENANCE_DIVERSITY", base.MinProvenanceDiversity)
	c.CoreEvidenceThreshold = positiveFloat("CORE_EVIDENCE_THRESHOLD", base.CoreEvidenceThreshold)
	c.DomainEvidenceThreshold = positiveFloat("DOMAIN_EVIDENCE_THRESHOLD", base.DomainEvidenceThreshold)
	if dims := splitList(os.Getenv("CORE_DIMENSIONS")); len(dims) > 0 {
		c.CoreDimensions = dims
	}
	return c
}

// CycleThresholds overlays the resynthesis trigger settings found in the environment on base.
func CycleThresholds(base domain.CycleThresholds) domain.CycleThresholds {
	t := base
	t.NewPrincipleRatio = positiveFloat("NEW_PRINCIPLE_RATIO", base.NewPrincipleRatio)
	t.ContradictionCount = positiveInt("CONTRADICTION_COUNT", base.ContradictionCount)
	t.MatchThreshold = positiveFloat("CYCLE_MATCH_THRESHOLD", base.MatchThreshold)
	return t
}

func stringOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func positiveInt(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func positiveFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
