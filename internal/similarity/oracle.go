// Package similarity decides whether two statements express the same principle.
//
// Two backends are provided: EmbeddingOracle (cosine similarity over vectors) and
// LLMOracle (a language-model verdict mapped to a confidence band). Both answer
// through the Oracle interface; Retrying adds bounded retries on transient failures.
package similarity

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultThreshold is the minimum confidence at which two texts count as equivalent.
const DefaultThreshold = 0.7

// DefaultConcurrency bounds parallel candidate comparisons.
const DefaultConcurrency = 8

// Match is the outcome of comparing two texts.
type Match struct {
	Equivalent bool
	Confidence float64
}

// BestMatch is the highest-confidence equivalent candidate. Index is -1 when Found is false.
type BestMatch struct {
	Index      int
	Confidence float64
	Found      bool
}

// Oracle compares statements. Implementations must be safe for concurrent use.
type Oracle interface {
	Compare(ctx context.Context, a, b string) (Match, error)
	// BestMatch returns the same answer as comparing text against every candidate and
	// keeping the highest confidence at or above threshold, lowest index on ties.
	BestMatch(ctx context.Context, text string, candidates []string) (BestMatch, error)
}

// Vectorizer is implemented by oracles that can expose the vector behind a text.
type Vectorizer interface {
	Vector(ctx context.Context, text string) ([]float32, error)
	Prime(text string, vec []float32)
}

// AsVectorizer returns the Vectorizer behind o, looking through decorators.
func AsVectorizer(o Oracle) (Vectorizer, bool) {
	for o != nil {
		if v, ok := o.(Vectorizer); ok {
			return v, true
		}
		u, ok := o.(interface{ Unwrap() Oracle })
		if !ok {
			return nil, false
		}
		o = u.Unwrap()
	}
	return nil, false
}

// selectBest picks the winner from per-candidate matches, independent of the order in
// which they were computed.
func selectBest(matches []Match) BestMatch {
	best := BestMatch{Index: -1}
	for i, m := range matches {
		if !m.Equivalent {
			continue
		}
		if !best.Found || m.Confidence > best.Confidence {
			best = BestMatch{Index: i, Confidence: m.Confidence, Found: true}
		}
	}
	return best
}

type compareFunc func(ctx context.Context, a, b string) (Match, error)

// bestOf compares text against every candidate with at most limit calls in flight.
func bestOf(ctx context.Context, text string, candidates []string, limit int, compare compareFunc) (BestMatch, error) {
	if len(candidates) == 0 {
		return BestMatch{Index: -1}, nil
	}

	matches := make([]Match, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for i, candidate := range candidates {
		g.Go(func() error {
			m, err := compare(gctx, text, candidate)
			if err != nil {
				return err
			}
			matches[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BestMatch{}, err
	}
	return selectBest(matches), nil
}
