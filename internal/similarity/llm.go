package similarity

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

// Confidence values for the bands a language model reports.
const (
	BandHigh   = 0.9
	BandMedium = 0.7
	BandLow    = 0.5
)

// LLMOracle asks a language model for an equivalence verdict and maps its confidence
// band to a number. A not-equivalent verdict never matches but still reports its band.
type LLMOracle struct {
	judge       domain.EquivalenceJudge
	threshold   float64
	concurrency int
	logger      *zap.Logger
}

func NewLLMOracle(judge domain.EquivalenceJudge, threshold float64, concurrency int, logger *zap.Logger) *LLMOracle {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &LLMOracle{
		judge:       judge,
		threshold:   threshold,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (o *LLMOracle) Compare(ctx context.Context, a, b string) (Match, error) {
	j, err := o.judge.JudgeEquivalence(ctx, a, b)
	if err != nil {
		return Match{}, fmt.Errorf("compare: %w", err)
	}
	conf := o.bandConfidence(j.Band)
	if !j.Equivalent {
		return Match{Confidence: conf}, nil
	}
	return Match{Equivalent: conf >= o.threshold, Confidence: conf}, nil
}

// Concurrency is the number of judge calls BestMatch keeps in flight.
func (o *LLMOracle) Concurrency() int {
	return o.concurrency
}

func (o *LLMOracle) BestMatch(ctx context.Context, text string, candidates []string) (BestMatch, error) {
	return bestOf(ctx, text, candidates, o.concurrency, o.Compare)
}

// bandConfidence maps a reported band; anything unrecognised gets the lowest band.
func (o *LLMOracle) bandConfidence(band string) float64 {
	switch strings.ToLower(strings.TrimSpace(band)) {
	case "high":
		return BandHigh
	case "medium":
		return BandMedium
	case "low":
		return BandLow
	}
	o.logger.Warn("unrecognised similarity band, using lowest confidence",
		zap.String("band", band),
		zap.Float64("confidence", BandLow))
	return BandLow
}
