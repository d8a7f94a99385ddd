package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
	"github.com/live-neon/neon-soul-sub003/internal/metrics"
	"github.com/live-neon/neon-soul-sub003/internal/similarity"
	"github.com/live-neon/neon-soul-sub003/internal/store"
)

// DefaultOrphanWarnRate is the share of orphaned signals above which a run warns.
const DefaultOrphanWarnRate = 0.2

// SynthesisConfig carries the tunable thresholds of a run.
type SynthesisConfig struct {
	Criteria            domain.PromotionCriteria
	Thresholds          domain.CycleThresholds
	OrphanEvidenceFloor float64
	OrphanWarnRate      float64
}

func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		Criteria:            DefaultPromotionCriteria(),
		Thresholds:          DefaultCycleThresholds(),
		OrphanEvidenceFloor: DefaultOrphanEvidenceFloor,
		OrphanWarnRate:      DefaultOrphanWarnRate,
	}
}

// RunRequest is one batch of new signals.
type RunRequest struct {
	Signals          []domain.Signal `json:"signals" yaml:"signals"`
	ForceResynthesis bool            `json:"force_resynthesis" yaml:"force_resynthesis"`
}

// SynthesisService runs the whole pipeline for one batch of signals: classify, cluster,
// decide the cycle mode, promote, scan for tensions, persist, announce.
type SynthesisService struct {
	corpusStore domain.CorpusStore
	oracle      similarity.Oracle
	classifier  *MetadataClassifier
	promoter    *AxiomPromoter
	tensions    *TensionDetector
	cycles      *CycleManager
	publisher   domain.RunPublisher
	metrics     *metrics.Metrics
	cfg         SynthesisConfig
	logger      *zap.Logger

	// runMu keeps a single writer per corpus.
	runMu sync.Mutex
	now   func() time.Time
}

func NewSynthesisService(
	corpusStore domain.CorpusStore,
	oracle similarity.Oracle,
	classifier *MetadataClassifier,
	promoter *AxiomPromoter,
	tensions *TensionDetector,
	cycles *CycleManager,
	publisher domain.RunPublisher,
	m *metrics.Metrics,
	cfg SynthesisConfig,
	logger *zap.Logger,
) *SynthesisService {
	return &SynthesisService{
		corpusStore: corpusStore,
		oracle:      oracle,
		classifier:  classifier,
		promoter:    promoter,
		tensions:    tensions,
		cycles:      cycles,
		publisher:   publisher,
		metrics:     m,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
	}
}

// Latest returns the most recently saved corpus, or store.ErrNotFound.
func (s *SynthesisService) Latest(ctx context.Context) (*domain.Corpus, error) {
	return s.corpusStore.Latest(ctx)
}

// Run synthesizes a new corpus from the request's signals and the latest persisted one.
// It either returns a complete result with the corpus saved, or fails with a
// FatalRunError and leaves the persisted corpus untouched. Invalid input fails with
// ErrNoSignals or ErrInvalidSignal before any backend is called.
func (s *SynthesisService) Run(ctx context.Context, req RunRequest) (*domain.RunResult, error) {
	start := s.now()
	signals, err := s.prepare(req.Signals)
	if err != nil {
		return nil, err
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	result, mode, err := s.run(ctx, signals, req.ForceResynthesis)
	outcome := "ok"
	if err != nil {
		outcome = "failed"
		s.logger.Error("synthesis run failed", zap.String("mode", mode), zap.Error(err))
	}
	s.metrics.ObserveRun(mode, outcome, s.now().Sub(start).Seconds())
	return result, err
}

func (s *SynthesisService) run(ctx context.Context, signals []domain.Signal, force bool) (*domain.RunResult, string, error) {
	mode := "unknown"

	existing, err := s.corpusStore.Latest(ctx)
	if errors.Is(err, store.ErrNotFound) {
		existing, err = nil, nil
	}
	if err != nil {
		return nil, mode, fatal(StageLoad, err)
	}

	signals, classified, err := s.classifier.Classify(ctx, signals)
	if err != nil {
		return nil, mode, fatal(StageClassify, err)
	}
	for _, sig := range signals {
		if err := ValidateSignal(sig); err != nil {
			return nil, mode, fatal(StageClassify, err)
		}
	}

	vectors, hasVectors := similarity.AsVectorizer(s.oracle)
	if hasVectors && existing != nil {
		for _, p := range existing.Principles {
			vectors.Prime(p.RepresentativeText, p.Embedding)
		}
	}

	stats := domain.RunStats{SignalsIn: len(signals), Classified: classified}

	candidates := NewPrincipleStore(s.oracle, s.cfg.OrphanEvidenceFloor, s.logger)
	if err := s.ingestAll(ctx, candidates, signals, nil, &stats); err != nil {
		return nil, mode, fatal(StageIngest, err)
	}

	thresholds := s.cfg.Thresholds
	thresholds.ForceResynthesis = thresholds.ForceResynthesis || force
	decision, err := s.cycles.Decide(ctx, existing, candidates.Principles(), thresholds)
	if err != nil {
		return nil, mode, fatal(StageDecide, err)
	}
	mode = string(decision.Mode)

	final := candidates
	switch decision.Mode {
	case domain.CycleIncremental:
		final = NewPrincipleStore(s.oracle, s.cfg.OrphanEvidenceFloor, s.logger)
		if err := final.Seed(existing.Principles); err != nil {
			return nil, mode, fatal(StageMerge, err)
		}
		for _, p := range candidates.Principles() {
			if _, err := final.Absorb(ctx, p); err != nil {
				return nil, mode, fatal(StageMerge, err)
			}
		}
	case domain.CycleFullResynthesis:
		// Every historical signal is re-clustered from scratch alongside the new ones.
		history := append(existing.Signals(), signals...)
		sort.SliceStable(history, func(i, j int) bool { return history[i].CreatedAt.Before(history[j].CreatedAt) })
		fresh := make(map[uuid.UUID]struct{}, len(signals))
		for _, sig := range signals {
			fresh[sig.ID] = struct{}{}
		}
		stats = domain.RunStats{SignalsIn: len(signals), Classified: classified}
		final = NewPrincipleStore(s.oracle, s.cfg.OrphanEvidenceFloor, s.logger)
		if err := s.ingestAll(ctx, final, history, fresh, &stats); err != nil {
			return nil, mode, fatal(StageIngest, err)
		}
		inherited := final.Inherit(existing.Principles)
		s.logger.Debug("resynthesis rebuilt principles",
			zap.Int("reclustered", stats.Reclustered),
			zap.Int("principles", final.Len()),
			zap.Int("inherited_ids", inherited))
	}

	if hasVectors {
		if err := s.embedAll(ctx, final, vectors); err != nil {
			return nil, mode, fatal(StageEmbed, err)
		}
	}

	cycle := 1
	if existing != nil {
		cycle = existing.Cycle + 1
	}
	criteria := s.cfg.Criteria
	criteria.Cycle = cycle

	principles := final.Principles()
	axioms := s.promoter.Promote(principles, criteria)

	tensions, err := s.tensions.Scan(ctx, axioms)
	if err != nil {
		return nil, mode, fatal(StageTensions, err)
	}
	axioms = AttachTensions(axioms, tensions)

	orphans := final.OrphanedSignals()
	var warnings []string
	orphanRate := 0.0
	if total := final.SignalCount(); total > 0 {
		orphanRate = float64(len(orphans)) / float64(total)
	}
	warnRate := s.cfg.OrphanWarnRate
	if warnRate <= 0 {
		warnRate = DefaultOrphanWarnRate
	}
	if orphanRate > warnRate {
		msg := fmt.Sprintf("orphaned signal rate %.1f%% exceeds %.1f%%", orphanRate*100, warnRate*100)
		warnings = append(warnings, msg)
		s.logger.Warn("high orphan rate",
			zap.Int("orphaned", len(orphans)),
			zap.Float64("rate", orphanRate),
			zap.Float64("warn_rate", warnRate))
	}

	stats.TensionsBySeverity = make(map[domain.TensionSeverity]int)
	for _, t := range tensions {
		stats.TensionsBySeverity[t.Severity]++
		s.metrics.IncTension(string(t.Severity))
	}
	for _, a := range axioms {
		if a.Promotable {
			stats.PromotableAxioms++
		} else {
			stats.BlockedAxioms++
		}
	}

	corpus := &domain.Corpus{
		ID:         uuid.New(),
		Cycle:      cycle,
		Principles: principles,
		Axioms:     axioms,
		Tensions:   tensions,
		Decision:   decision,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.corpusStore.Save(ctx, corpus); err != nil {
		return nil, mode, fatal(StageSave, err)
	}
	s.metrics.SetCorpusGauges(stats.PromotableAxioms, orphanRate)

	s.logger.Info("synthesis run complete",
		zap.String("corpus_id", corpus.ID.String()),
		zap.Int("cycle", cycle),
		zap.String("mode", mode),
		zap.Int("signals", len(signals)),
		zap.Int("principles", len(principles)),
		zap.Int("promotable_axioms", stats.PromotableAxioms),
		zap.Int("tensions", len(tensions)))

	s.announce(ctx, corpus, stats, len(orphans))

	if orphans == nil {
		orphans = []domain.Signal{}
	}
	return &domain.RunResult{
		CorpusID:        corpus.ID,
		Cycle:           cycle,
		Principles:      principles,
		Axioms:          axioms,
		Tensions:        tensions,
		CycleDecision:   decision,
		OrphanedSignals: orphans,
		Stats:           stats,
		Warnings:        warnings,
	}, mode, nil
}

// prepare copies the request signals, assigning IDs and timestamps to those without,
// and rejects signals that can never become valid.
func (s *SynthesisService) prepare(in []domain.Signal) ([]domain.Signal, error) {
	if len(in) == 0 {
		return nil, ErrNoSignals
	}

	now := s.now().UTC()
	out := make([]domain.Signal, len(in))
	for i, sig := range in {
		if sig.ID == uuid.Nil {
			sig.ID = uuid.New()
		}
		if sig.CreatedAt.IsZero() {
			sig.CreatedAt = now
		}
		if err := precheck(sig); err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		out[i] = sig
	}
	return out, nil
}

// precheck validates the fields a classifier cannot fix. Empty metadata is allowed here
// because classification fills it in; set metadata must already be valid.
func precheck(sig domain.Signal) error {
	filled := sig
	if filled.Stance == "" {
		filled.Stance = DefaultStance
	}
	if filled.Importance == "" {
		filled.Importance = DefaultImportance
	}
	if filled.SourceKind == "" {
		filled.SourceKind = DefaultSourceKind
	}
	return ValidateSignal(filled)
}

// ingestAll feeds signals into ps in order. When fresh is non-nil, only signals it holds
// count toward the outcome stats; the rest are tallied as reclustered history.
func (s *SynthesisService) ingestAll(ctx context.Context, ps *PrincipleStore, signals []domain.Signal, fresh map[uuid.UUID]struct{}, stats *domain.RunStats) error {
	for _, sig := range signals {
		res, err := ps.Ingest(ctx, sig)
		if err != nil {
			return err
		}
		s.metrics.IncIngest(string(res.Outcome))
		if fresh != nil {
			if _, ok := fresh[sig.ID]; !ok {
				stats.Reclustered++
				continue
			}
		}
		switch res.Outcome {
		case OutcomeCreated:
			stats.Created++
		case OutcomeReinforced:
			stats.Reinforced++
		case OutcomeMerged:
			stats.Merged++
		case OutcomeDuplicate:
			stats.Duplicates++
		}
	}
	return nil
}

// embedAll stores a vector for every principle whose representative text lacks one, so
// the next run can prime its cache instead of re-embedding.
func (s *SynthesisService) embedAll(ctx context.Context, ps *PrincipleStore, v similarity.Vectorizer) error {
	for _, p := range ps.Principles() {
		if len(p.Embedding) > 0 {
			continue
		}
		vec, err := v.Vector(ctx, p.RepresentativeText)
		if err != nil {
			return fmt.Errorf("embed principle %s: %w", p.ID, err)
		}
		if err := ps.SetEmbedding(p.ID, vec); err != nil {
			return err
		}
	}
	return nil
}

// announce publishes the run summary. Failure is logged and counted, never returned:
// the corpus is already saved.
func (s *SynthesisService) announce(ctx context.Context, c *domain.Corpus, stats domain.RunStats, orphaned int) {
	if s.publisher == nil {
		return
	}
	summary := &domain.RunSummary{
		CorpusID:         c.ID.String(),
		Cycle:            c.Cycle,
		Decision:         c.Decision,
		Principles:       len(c.Principles),
		PromotableAxioms: stats.PromotableAxioms,
		Tensions:         len(c.Tensions),
		OrphanedSignals:  orphaned,
	}
	if err := s.publisher.PublishRun(ctx, summary); err != nil {
		s.metrics.IncPublishFailure()
		s.logger.Warn("failed to publish run summary",
			zap.String("corpus_id", summary.CorpusID),
			zap.Error(err))
	}
}
