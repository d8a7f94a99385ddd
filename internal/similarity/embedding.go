package similarity

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// EmbeddingOracle scores equivalence as the cosine similarity of text embeddings,
// clamped to [0, 1]. Embeddings are cached per text for the life of the oracle.
type EmbeddingOracle struct {
	client      domain.EmbeddingClient
	threshold   float64
	concurrency int
	logger      *zap.Logger

	mu    sync.RWMutex
	cache map[string][]float32
}

func NewEmbeddingOracle(client domain.EmbeddingClient, threshold float64, concurrency int, logger *zap.Logger) *EmbeddingOracle {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &EmbeddingOracle{
		client:      client,
		threshold:   threshold,
		concurrency: concurrency,
		logger:      logger,
		cache:       make(map[string][]float32),
	}
}

// Prime seeds the cache with a known vector, typically one persisted with a principle.
func (o *EmbeddingOracle) Prime(text string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	o.mu.Lock()
	o.cache[text] = vec
	o.mu.Unlock()
}

// Vector returns the embedding of text, calling the backend at most once per text.
func (o *EmbeddingOracle) Vector(ctx context.Context, text string) ([]float32, error) {
	o.mu.RLock()
	vec, ok := o.cache[text]
	o.mu.RUnlock()
	if ok {
		return vec, nil
	}

	vec, err := o.client.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}

	o.mu.Lock()
	if cached, ok := o.cache[text]; ok {
		vec = cached
	} else {
		o.cache[text] = vec
	}
	o.mu.Unlock()
	return vec, nil
}

func (o *EmbeddingOracle) Compare(ctx context.Context, a, b string) (Match, error) {
	va, err := o.Vector(ctx, a)
	if err != nil {
		return Match{}, err
	}
	vb, err := o.Vector(ctx, b)
	if err != nil {
		return Match{}, err
	}
	return o.score(va, vb)
}

func (o *EmbeddingOracle) Concurrency() int {
	return o.concurrency
}

func (o *EmbeddingOracle) BestMatch(ctx context.Context, text string, candidates []string) (BestMatch, error) {
	if len(candidates) == 0 {
		return BestMatch{Index: -1}, nil
	}

	target, err := o.Vector(ctx, text)
	if err != nil {
		return BestMatch{}, err
	}

	// Warm the cache in parallel; scoring afterwards is local arithmetic.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for _, c := range candidates {
		g.Go(func() error {
			_, err := o.Vector(gctx, c)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return BestMatch{}, err
	}

	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		vc, err := o.Vector(ctx, c)
		if err != nil {
			return BestMatch{}, err
		}
		if matches[i], err = o.score(target, vc); err != nil {
			return BestMatch{}, err
		}
	}
	return selectBest(matches), nil
}

func (o *EmbeddingOracle) score(a, b []float32) (Match, error) {
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		return Match{}, err
	}
	conf := math.Max(0, math.Min(1, sim))
	return Match{Equivalent: conf >= o.threshold, Confidence: conf}, nil
}

// CosineSimilarity returns the cosine of the angle between a and b. A zero vector has
// similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d vs %d", len(a), len(b))
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
