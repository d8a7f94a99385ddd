package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
	"github.com/live-neon/neon-soul-sub003/internal/similarity"
)

// DefaultOrphanEvidenceFloor is the evidence weight below which a principle's signals
// are reported as orphaned.
const DefaultOrphanEvidenceFloor = 2.0

type IngestOutcome string

const (
	OutcomeCreated    IngestOutcome = "created"
	OutcomeReinforced IngestOutcome = "reinforced"
	OutcomeMerged     IngestOutcome = "merged"
	OutcomeDuplicate  IngestOutcome = "duplicate"
)

// IngestResult reports what an ingest did and which principle now holds the signal.
type IngestResult struct {
	Outcome     IngestOutcome `json:"outcome"`
	PrincipleID uuid.UUID     `json:"principle_id"`
}

// PrincipleStore clusters signals into principles. It is the only component that
// mutates evidence weight or representative text, and every mutation runs under one
// lock: matching then inserting must not interleave with another ingest.
type PrincipleStore struct {
	oracle      similarity.Oracle
	orphanFloor float64
	logger      *zap.Logger
	now         func() time.Time

	mu         sync.Mutex
	principles []*domain.Principle
	index      map[uuid.UUID]int
	owner      map[uuid.UUID]uuid.UUID // signal ID -> principle ID
}

func NewPrincipleStore(oracle similarity.Oracle, orphanFloor float64, logger *zap.Logger) *PrincipleStore {
	if orphanFloor <= 0 {
		orphanFloor = DefaultOrphanEvidenceFloor
	}
	return &PrincipleStore{
		oracle:      oracle,
		orphanFloor: orphanFloor,
		logger:      logger,
		now:         time.Now,
		index:       make(map[uuid.UUID]int),
		owner:       make(map[uuid.UUID]uuid.UUID),
	}
}

// ValidateSignal checks the fields every ingested signal must carry.
func ValidateSignal(s domain.Signal) error {
	switch {
	case s.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrInvalidSignal)
	case s.Text == "":
		return fmt.Errorf("%w: signal %s has empty text", ErrInvalidSignal, s.ID)
	case s.Confidence < 0 || s.Confidence > 1:
		return fmt.Errorf("%w: signal %s confidence %.3f outside [0,1]", ErrInvalidSignal, s.ID, s.Confidence)
	case !domain.ValidStance(string(s.Stance)):
		return fmt.Errorf("%w: signal %s has unknown stance %q", ErrInvalidSignal, s.ID, s.Stance)
	case !domain.ValidImportance(string(s.Importance)):
		return fmt.Errorf("%w: signal %s has unknown importance %q", ErrInvalidSignal, s.ID, s.Importance)
	case !domain.ValidSourceKind(string(s.SourceKind)):
		return fmt.Errorf("%w: signal %s has unknown source kind %q", ErrInvalidSignal, s.ID, s.SourceKind)
	case !domain.ValidProvenance(string(s.Provenance)):
		return fmt.Errorf("%w: signal %s has unknown provenance %q", ErrInvalidSignal, s.ID, s.Provenance)
	}
	return nil
}

// Ingest matches a signal against every principle and either reinforces the best match
// or creates a new principle. When reinforcement changes a principle's representative
// text and the new text matches another principle, the two are merged.
func (s *PrincipleStore) Ingest(ctx context.Context, sig domain.Signal) (IngestResult, error) {
	if err := ValidateSignal(sig); err != nil {
		return IngestResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if pid, ok := s.owner[sig.ID]; ok {
		return IngestResult{Outcome: OutcomeDuplicate, PrincipleID: pid}, nil
	}

	best, err := s.oracle.BestMatch(ctx, sig.Text, s.representativeTexts())
	if err != nil {
		return IngestResult{}, fmt.Errorf("match signal %s: %w", sig.ID, err)
	}

	if !best.Found {
		p := s.create(sig)
		s.logger.Debug("principle created",
			zap.String("principle_id", p.ID.String()),
			zap.String("signal_id", sig.ID.String()))
		return IngestResult{Outcome: OutcomeCreated, PrincipleID: p.ID}, nil
	}

	p := s.principles[best.Index]
	before := p.RepresentativeText
	s.reinforce(p, sig)

	if p.RepresentativeText == before {
		return IngestResult{Outcome: OutcomeReinforced, PrincipleID: p.ID}, nil
	}

	// The cluster now speaks with a different voice; it may have converged on another one.
	others := s.othersThan(p.ID)
	if len(others) == 0 {
		return IngestResult{Outcome: OutcomeReinforced, PrincipleID: p.ID}, nil
	}
	texts := make([]string, len(others))
	for i, o := range others {
		texts[i] = o.RepresentativeText
	}
	again, err := s.oracle.BestMatch(ctx, p.RepresentativeText, texts)
	if err != nil {
		return IngestResult{}, fmt.Errorf("re-match principle %s: %w", p.ID, err)
	}
	if !again.Found {
		return IngestResult{Outcome: OutcomeReinforced, PrincipleID: p.ID}, nil
	}

	absorbed := others[again.Index].ID
	merged, err := s.mergeLocked(p.ID, absorbed)
	if err != nil {
		return IngestResult{}, err
	}
	s.logger.Debug("principles merged after reinforcement",
		zap.String("principle_id", merged.ID.String()),
		zap.String("absorbed_id", absorbed.String()),
		zap.Float64("confidence", again.Confidence))
	return IngestResult{Outcome: OutcomeMerged, PrincipleID: merged.ID}, nil
}

// Merge folds principle b into principle a. The survivor keeps a's ID and holds a's
// signals followed by b's; evidence weights are summed.
func (s *PrincipleStore) Merge(a, b uuid.UUID) (domain.Principle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.mergeLocked(a, b)
	if err != nil {
		return domain.Principle{}, err
	}
	return p.Clone(), nil
}

// Absorb brings an externally clustered principle into the store: merged into the best
// matching principle when there is one, adopted as is otherwise. Signals the store
// already holds are dropped first.
func (s *PrincipleStore) Absorb(ctx context.Context, incoming domain.Principle) (IngestResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []domain.Signal
	for _, sig := range incoming.Signals {
		if err := ValidateSignal(sig); err != nil {
			return IngestResult{}, err
		}
		if _, ok := s.owner[sig.ID]; !ok {
			fresh = append(fresh, sig)
		}
	}
	if len(fresh) == 0 {
		return IngestResult{Outcome: OutcomeDuplicate, PrincipleID: incoming.ID}, nil
	}

	candidate := incoming.Clone()
	candidate.Signals = fresh
	candidate.EvidenceWeight = 0
	for _, sig := range fresh {
		candidate.EvidenceWeight += evidenceOf(sig)
	}
	refresh(&candidate)

	best, err := s.oracle.BestMatch(ctx, candidate.RepresentativeText, s.representativeTexts())
	if err != nil {
		return IngestResult{}, fmt.Errorf("match principle %s: %w", incoming.ID, err)
	}

	if !best.Found {
		if _, taken := s.index[candidate.ID]; taken || candidate.ID == uuid.Nil {
			candidate.ID = uuid.New()
		}
		candidate.Embedding = nil
		s.add(&candidate)
		return IngestResult{Outcome: OutcomeCreated, PrincipleID: candidate.ID}, nil
	}

	p := s.principles[best.Index]
	before := p.RepresentativeText
	for _, sig := range fresh {
		p.Signals = append(p.Signals, sig)
		s.owner[sig.ID] = p.ID
	}
	p.EvidenceWeight += candidate.EvidenceWeight
	refresh(p)
	p.UpdatedAt = s.now()
	if p.RepresentativeText != before {
		p.Embedding = nil
	}
	return IngestResult{Outcome: OutcomeMerged, PrincipleID: p.ID}, nil
}

// Seed replaces the store contents with a persisted baseline.
func (s *PrincipleStore) Seed(principles []domain.Principle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.principles = nil
	s.index = make(map[uuid.UUID]int)
	s.owner = make(map[uuid.UUID]uuid.UUID)

	for i := range principles {
		p := principles[i].Clone()
		if _, dup := s.index[p.ID]; dup {
			return fmt.Errorf("seed: duplicate principle %s", p.ID)
		}
		s.principles = append(s.principles, &p)
		s.index[p.ID] = len(s.principles) - 1
		for _, sig := range p.Signals {
			s.owner[sig.ID] = p.ID
		}
	}
	return nil
}

// Inherit gives rebuilt principles the identity of the prior principles they descend
// from. A principle descends from the prior principle whose founding signal it holds;
// each prior ID is claimed at most once, in creation order. It returns the number of
// principles that inherited an ID.
func (s *PrincipleStore) Inherit(prior []domain.Principle) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	founders := make(map[uuid.UUID]*domain.Principle, len(prior))
	for i := range prior {
		if len(prior[i].Signals) > 0 {
			founders[prior[i].Signals[0].ID] = &prior[i]
		}
	}

	claimed := make(map[uuid.UUID]bool, len(prior))
	inherited := 0
	for _, p := range s.principles {
		for _, sig := range p.Signals {
			old, ok := founders[sig.ID]
			if !ok || claimed[old.ID] {
				continue
			}
			claimed[old.ID] = true
			p.ID = old.ID
			p.CreatedAt = old.CreatedAt
			inherited++
			break
		}
	}
	if inherited == 0 {
		return 0
	}

	s.reindex()
	for _, p := range s.principles {
		for _, sig := range p.Signals {
			s.owner[sig.ID] = p.ID
		}
	}
	return inherited
}

// SetEmbedding records the vector of a principle's current representative text.
func (s *PrincipleStore) SetEmbedding(id uuid.UUID, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPrincipleNotFound, id)
	}
	s.principles[i].Embedding = append([]float32(nil), vec...)
	return nil
}

// OrphanedSignals returns the signals of principles whose evidence weight is below the
// orphan floor. They are reported for audit, not treated as errors.
func (s *PrincipleStore) OrphanedSignals() []domain.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Signal
	for _, p := range s.principles {
		if p.EvidenceWeight < s.orphanFloor {
			out = append(out, p.Signals...)
		}
	}
	return out
}

// Principles returns a deep copy of every principle in creation order.
func (s *PrincipleStore) Principles() []domain.Principle {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Principle, len(s.principles))
	for i, p := range s.principles {
		out[i] = p.Clone()
	}
	return out
}

func (s *PrincipleStore) Get(id uuid.UUID) (domain.Principle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return domain.Principle{}, false
	}
	return s.principles[i].Clone(), true
}

func (s *PrincipleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.principles)
}

// SignalCount is the number of signals held across all principles.
func (s *PrincipleStore) SignalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owner)
}

func (s *PrincipleStore) create(sig domain.Signal) *domain.Principle {
	now := s.now()
	p := &domain.Principle{
		ID:             uuid.New(),
		Signals:        []domain.Signal{sig},
		EvidenceWeight: evidenceOf(sig),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	refresh(p)
	s.add(p)
	return p
}

func (s *PrincipleStore) add(p *domain.Principle) {
	s.principles = append(s.principles, p)
	s.index[p.ID] = len(s.principles) - 1
	for _, sig := range p.Signals {
		s.owner[sig.ID] = p.ID
	}
}

func (s *PrincipleStore) reinforce(p *domain.Principle, sig domain.Signal) {
	before := p.RepresentativeText
	p.Signals = append(p.Signals, sig)
	p.EvidenceWeight += evidenceOf(sig)
	refresh(p)
	p.UpdatedAt = s.now()
	if p.RepresentativeText != before {
		p.Embedding = nil
	}
	s.owner[sig.ID] = p.ID
}

func (s *PrincipleStore) mergeLocked(a, b uuid.UUID) (*domain.Principle, error) {
	if a == b {
		return nil, ErrSamePrinciple
	}
	ia, ok := s.index[a]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrincipleNotFound, a)
	}
	ib, ok := s.index[b]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrincipleNotFound, b)
	}

	survivor, absorbed := s.principles[ia], s.principles[ib]
	before := survivor.RepresentativeText
	survivor.Signals = append(survivor.Signals, absorbed.Signals...)
	survivor.EvidenceWeight += absorbed.EvidenceWeight
	if absorbed.CreatedAt.Before(survivor.CreatedAt) {
		survivor.CreatedAt = absorbed.CreatedAt
	}
	refresh(survivor)
	survivor.UpdatedAt = s.now()
	if survivor.RepresentativeText != before {
		survivor.Embedding = nil
	}
	for _, sig := range absorbed.Signals {
		s.owner[sig.ID] = survivor.ID
	}

	s.principles = append(s.principles[:ib], s.principles[ib+1:]...)
	s.reindex()
	return survivor, nil
}

func (s *PrincipleStore) reindex() {
	s.index = make(map[uuid.UUID]int, len(s.principles))
	for i, p := range s.principles {
		s.index[p.ID] = i
	}
}

func (s *PrincipleStore) representativeTexts() []string {
	texts := make([]string, len(s.principles))
	for i, p := range s.principles {
		texts[i] = p.RepresentativeText
	}
	return texts
}

func (s *PrincipleStore) othersThan(id uuid.UUID) []*domain.Principle {
	out := make([]*domain.Principle, 0, len(s.principles))
	for _, p := range s.principles {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// refresh recomputes the fields derived from a principle's signals.
func refresh(p *domain.Principle) {
	if rep, ok := p.Representative(); ok {
		p.RepresentativeText = rep.Text
	}
	p.Dimension = p.MajorityDimension()
	p.ProvenanceDiversity = p.DistinctProvenance()
}

// evidenceOf is a signal's contribution to evidence weight. Callers validate first.
func evidenceOf(sig domain.Signal) float64 {
	w, _ := sig.Importance.Weight()
	return sig.Confidence * w
}
