package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
	"github.com/live-neon/neon-soul-sub003/internal/llm"
)

// Fallbacks for classifier fields that come back missing or malformed.
const (
	DefaultStance     = domain.StanceAssert
	DefaultImportance = domain.ImportanceSupporting
	DefaultSourceKind = domain.SourceAgentInitiated
)

// MetadataClassifier fills in the stance, importance, source kind and dimension of
// signals that arrive without them. Calls fan out with bounded parallelism.
type MetadataClassifier struct {
	classifier  domain.SignalClassifier
	retrier     *llm.Retrier
	concurrency int
	logger      *zap.Logger
}

func NewMetadataClassifier(classifier domain.SignalClassifier, retrier *llm.Retrier, concurrency int, logger *zap.Logger) *MetadataClassifier {
	if concurrency < 1 {
		concurrency = 1
	}
	return &MetadataClassifier{
		classifier:  classifier,
		retrier:     retrier,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Classify returns a copy of signals with missing metadata filled in, and how many
// signals needed the classifier. Fields the caller already set are never overwritten.
func (c *MetadataClassifier) Classify(ctx context.Context, signals []domain.Signal) ([]domain.Signal, int, error) {
	out := make([]domain.Signal, len(signals))
	copy(out, signals)

	var classified atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i := range out {
		if !out[i].NeedsClassification() {
			continue
		}
		g.Go(func() error {
			var cls *domain.SignalClassification
			err := c.retrier.Do(gctx, "classify", func(ctx context.Context) error {
				var err error
				cls, err = c.classifier.ClassifySignal(ctx, out[i].Text)
				return err
			})
			if err != nil {
				return fmt.Errorf("classify signal %s: %w", out[i].ID, err)
			}
			c.apply(&out[i], cls)
			classified.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return out, int(classified.Load()), nil
}

// apply copies classifier output into the unset fields of s, substituting defaults for
// malformed values.
func (c *MetadataClassifier) apply(s *domain.Signal, cls *domain.SignalClassification) {
	if cls == nil {
		cls = &domain.SignalClassification{}
	}

	var defaulted []string
	if s.Stance == "" {
		s.Stance = cls.Stance
		if !domain.ValidStance(string(s.Stance)) {
			s.Stance = DefaultStance
			defaulted = append(defaulted, "stance")
		}
	}
	if s.Importance == "" {
		s.Importance = cls.Importance
		if !domain.ValidImportance(string(s.Importance)) {
			s.Importance = DefaultImportance
			defaulted = append(defaulted, "importance")
		}
	}
	if s.SourceKind == "" {
		s.SourceKind = cls.SourceKind
		if !domain.ValidSourceKind(string(s.SourceKind)) {
			s.SourceKind = DefaultSourceKind
			defaulted = append(defaulted, "source_kind")
		}
	}
	if s.Dimension == "" {
		s.Dimension = cls.Dimension
	}

	if len(defaulted) > 0 {
		c.logger.Warn("malformed classifier response, using defaults",
			zap.String("signal_id", s.ID.String()),
			zap.Strings("fields", defaulted))
	}
}
