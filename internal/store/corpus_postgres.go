package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS corpora (
	seq BIGSERIAL UNIQUE,
	id UUID PRIMARY KEY,
	cycle INT NOT NULL,
	decision JSONB NOT NULL,
	tensions JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS corpus_principles (
	corpus_id UUID NOT NULL REFERENCES corpora(id) ON DELETE CASCADE,
	id UUID NOT NULL,
	position INT NOT NULL,
	representative_text TEXT NOT NULL,
	evidence_weight DOUBLE PRECISION NOT NULL,
	dimension TEXT NOT NULL DEFAULT '',
	provenance_diversity JSONB NOT NULL,
	signals JSONB NOT NULL,
	embedding vector,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (corpus_id, id)
);

CREATE TABLE IF NOT EXISTS corpus_axioms (
	corpus_id UUID NOT NULL REFERENCES corpora(id) ON DELETE CASCADE,
	id UUID NOT NULL,
	position INT NOT NULL,
	lineage_key TEXT NOT NULL,
	cycle INT NOT NULL,
	text TEXT NOT NULL,
	tier TEXT NOT NULL,
	dimension TEXT NOT NULL DEFAULT '',
	supporting_principle_ids JSONB NOT NULL,
	signal_count INT NOT NULL,
	evidence_weight DOUBLE PRECISION NOT NULL,
	promotable BOOLEAN NOT NULL,
	promotion_blocker TEXT NOT NULL DEFAULT '',
	tensions JSONB NOT NULL,
	PRIMARY KEY (corpus_id, id)
);

CREATE INDEX IF NOT EXISTS idx_corpus_axioms_lineage ON corpus_axioms(lineage_key);
`

// PostgresCorpusStore keeps every saved corpus snapshot; Latest reads the newest.
type PostgresCorpusStore struct {
	db *pgxpool.Pool
}

func NewPostgresCorpusStore(db *pgxpool.Pool) *PostgresCorpusStore {
	return &PostgresCorpusStore{db: db}
}

// Migrate creates the corpus tables and the pgvector extension if they are missing.
func (s *PostgresCorpusStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate corpus schema: %w", err)
	}
	return nil
}

func (s *PostgresCorpusStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Save writes a corpus and all of its principles and axioms in one transaction.
func (s *PostgresCorpusStore) Save(ctx context.Context, c *domain.Corpus) error {
	if err := checkDecision(c.Decision); err != nil {
		return err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin corpus save: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tensions := c.Tensions
	if tensions == nil {
		tensions = []domain.ValueTension{}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO corpora (id, cycle, decision, tensions, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Cycle, c.Decision, tensions, c.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert corpus: %w", err)
	}

	batch := &pgx.Batch{}
	for i, p := range c.Principles {
		var embedding *pgvector.Vector
		if len(p.Embedding) > 0 {
			v := pgvector.NewVector(p.Embedding)
			embedding = &v
		}
		batch.Queue(
			`INSERT INTO corpus_principles (corpus_id, id, position, representative_text, evidence_weight, dimension, provenance_diversity, signals, embedding, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			c.ID, p.ID, i, p.RepresentativeText, p.EvidenceWeight, p.Dimension,
			nonNil(p.ProvenanceDiversity), nonNil(p.Signals), embedding, p.CreatedAt, p.UpdatedAt,
		)
	}
	for i, a := range c.Axioms {
		batch.Queue(
			`INSERT INTO corpus_axioms (corpus_id, id, position, lineage_key, cycle, text, tier, dimension, supporting_principle_ids, signal_count, evidence_weight, promotable, promotion_blocker, tensions)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			c.ID, a.ID, i, a.LineageKey, a.Cycle, a.Text, a.Tier, a.Dimension,
			nonNil(a.SupportingPrincipleIDs), a.SignalCount, a.EvidenceWeight, a.Promotable,
			a.PromotionBlocker, nonNil(a.Tensions),
		)
	}

	if batch.Len() > 0 {
		br := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert corpus rows: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("insert corpus rows: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit corpus save: %w", err)
	}
	return nil
}

// Latest returns the most recently saved corpus, or ErrNotFound.
func (s *PostgresCorpusStore) Latest(ctx context.Context) (*domain.Corpus, error) {
	c := &domain.Corpus{}
	err := s.db.QueryRow(ctx,
		`SELECT id, cycle, decision, tensions, created_at
		 FROM corpora ORDER BY seq DESC LIMIT 1`,
	).Scan(&c.ID, &c.Cycle, &c.Decision, &c.Tensions, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := checkDecision(c.Decision); err != nil {
		return nil, err
	}

	if c.Principles, err = s.principles(ctx, c.ID); err != nil {
		return nil, err
	}
	if c.Axioms, err = s.axioms(ctx, c.ID); err != nil {
		return nil, err
	}
	if c.Tensions == nil {
		c.Tensions = []domain.ValueTension{}
	}
	if c.Decision.Triggers == nil {
		c.Decision.Triggers = []string{}
	}
	return c, nil
}

func (s *PostgresCorpusStore) principles(ctx context.Context, corpusID uuid.UUID) ([]domain.Principle, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, representative_text, evidence_weight, dimension, provenance_diversity, signals, embedding, created_at, updated_at
		 FROM corpus_principles WHERE corpus_id = $1 ORDER BY position`,
		corpusID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	principles := []domain.Principle{}
	for rows.Next() {
		var p domain.Principle
		var embedding *pgvector.Vector
		if err := rows.Scan(&p.ID, &p.RepresentativeText, &p.EvidenceWeight, &p.Dimension,
			&p.ProvenanceDiversity, &p.Signals, &embedding, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if embedding != nil {
			p.Embedding = embedding.Slice()
		}
		principles = append(principles, p)
	}
	return principles, rows.Err()
}

func (s *PostgresCorpusStore) axioms(ctx context.Context, corpusID uuid.UUID) ([]domain.Axiom, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, lineage_key, cycle, text, tier, dimension, supporting_principle_ids, signal_count, evidence_weight, promotable, promotion_blocker, tensions
		 FROM corpus_axioms WHERE corpus_id = $1 ORDER BY position`,
		corpusID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	axioms := []domain.Axiom{}
	for rows.Next() {
		var a domain.Axiom
		if err := rows.Scan(&a.ID, &a.LineageKey, &a.Cycle, &a.Text, &a.Tier, &a.Dimension,
			&a.SupportingPrincipleIDs, &a.SignalCount, &a.EvidenceWeight, &a.Promotable,
			&a.PromotionBlocker, &a.Tensions); err != nil {
			return nil, err
		}
		axioms = append(axioms, a)
	}
	return axioms, rows.Err()
}

// nonNil keeps JSON list columns as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
