package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
	"github.com/live-neon/neon-soul-sub003/internal/store"
)

// CorpusReader returns the latest persisted corpus, or store.ErrNotFound.
type CorpusReader interface {
	Latest(ctx context.Context) (*domain.Corpus, error)
}

type CorpusHandler struct {
	corpus CorpusReader
	logger *zap.Logger
}

func NewCorpusHandler(corpus CorpusReader, logger *zap.Logger) *CorpusHandler {
	return &CorpusHandler{corpus: corpus, logger: logger}
}

type axiomsResponse struct {
	CorpusID string         `json:"corpus_id"`
	Cycle    int            `json:"cycle"`
	Axioms   []domain.Axiom `json:"axioms"`
	Count    int            `json:"count"`
}

type tensionsResponse struct {
	CorpusID string                `json:"corpus_id"`
	Cycle    int                   `json:"cycle"`
	Tensions []domain.ValueTension `json:"tensions"`
	Count    int                   `json:"count"`
}

func (h *CorpusHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.latest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Axioms lists the latest corpus axioms, optionally filtered by ?promotable= and ?tier=.
func (h *CorpusHandler) Axioms(w http.ResponseWriter, r *http.Request) {
	var promotable *bool
	if v := r.URL.Query().Get("promotable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid promotable filter")
			return
		}
		promotable = &b
	}
	tier := r.URL.Query().Get("tier")
	if tier != "" && !domain.ValidTier(tier) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid tier filter %q (valid options: %s)", tier, tierOptions()))
		return
	}

	c, ok := h.latest(w, r)
	if !ok {
		return
	}

	axioms := make([]domain.Axiom, 0, len(c.Axioms))
	for _, a := range c.Axioms {
		if promotable != nil && a.Promotable != *promotable {
			continue
		}
		if tier != "" && string(a.Tier) != tier {
			continue
		}
		axioms = append(axioms, a)
	}

	writeJSON(w, http.StatusOK, axiomsResponse{
		CorpusID: c.ID.String(),
		Cycle:    c.Cycle,
		Axioms:   axioms,
		Count:    len(axioms),
	})
}

func (h *CorpusHandler) Tensions(w http.ResponseWriter, r *http.Request) {
	c, ok := h.latest(w, r)
	if !ok {
		return
	}
	tensions := c.Tensions
	if tensions == nil {
		tensions = []domain.ValueTension{}
	}
	writeJSON(w, http.StatusOK, tensionsResponse{
		CorpusID: c.ID.String(),
		Cycle:    c.Cycle,
		Tensions: tensions,
		Count:    len(tensions),
	})
}

func (h *CorpusHandler) latest(w http.ResponseWriter, r *http.Request) (*domain.Corpus, bool) {
	c, err := h.corpus.Latest(r.Context())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no corpus has been synthesized yet")
			return nil, false
		}
		h.logger.Error("failed to load corpus", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load corpus")
		return nil, false
	}
	return c, true
}

func tierOptions() string {
	tiers := domain.AllTiers()
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
