package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/live-neon/neon-soul-sub003/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS corpora (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	cycle INTEGER NOT NULL,
	decision TEXT NOT NULL,
	tensions TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS corpus_principles (
	corpus_id TEXT NOT NULL REFERENCES corpora(id) ON DELETE CASCADE,
	id TEXT NOT NULL,
	position INTEGER NOT NULL,
	representative_text TEXT NOT NULL,
	evidence_weight REAL NOT NULL,
	dimension TEXT NOT NULL DEFAULT '',
	provenance_diversity TEXT NOT NULL,
	signals TEXT NOT NULL,
	embedding TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (corpus_id, id)
);

CREATE TABLE IF NOT EXISTS corpus_axioms (
	corpus_id TEXT NOT NULL REFERENCES corpora(id) ON DELETE CASCADE,
	id TEXT NOT NULL,
	position INTEGER NOT NULL,
	lineage_key TEXT NOT NULL,
	cycle INTEGER NOT NULL,
	text TEXT NOT NULL,
	tier TEXT NOT NULL,
	dimension TEXT NOT NULL DEFAULT '',
	supporting_principle_ids TEXT NOT NULL,
	signal_count INTEGER NOT NULL,
	evidence_weight REAL NOT NULL,
	promotable INTEGER NOT NULL,
	promotion_blocker TEXT NOT NULL DEFAULT '',
	tensions TEXT NOT NULL,
	PRIMARY KEY (corpus_id, id)
);

CREATE INDEX IF NOT EXISTS idx_corpus_axioms_lineage ON corpus_axioms(lineage_key);
`

// SQLiteCorpusStore is the single-file corpus store used by the CLI. JSON columns hold
// the list-valued fields, including principle embeddings.
type SQLiteCorpusStore struct {
	db *sql.DB
}

// OpenSQLiteCorpusStore opens (creating if needed) the database at path.
func OpenSQLiteCorpusStore(path string) (*SQLiteCorpusStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection serializes writers and keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create corpus schema: %w", err)
	}
	return &SQLiteCorpusStore{db: db}, nil
}

func (s *SQLiteCorpusStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteCorpusStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteCorpusStore) Save(ctx context.Context, c *domain.Corpus) error {
	if err := checkDecision(c.Decision); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin corpus save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	decision, err := json.Marshal(c.Decision)
	if err != nil {
		return fmt.Errorf("encode decision: %w", err)
	}
	tensions, err := json.Marshal(nonNil(c.Tensions))
	if err != nil {
		return fmt.Errorf("encode tensions: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO corpora (id, cycle, decision, tensions, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID.String(), c.Cycle, string(decision), string(tensions), formatTime(c.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert corpus: %w", err)
	}

	for i, p := range c.Principles {
		var embedding sql.NullString
		if len(p.Embedding) > 0 {
			raw, err := json.Marshal(p.Embedding)
			if err != nil {
				return fmt.Errorf("encode embedding of %s: %w", p.ID, err)
			}
			embedding = sql.NullString{String: string(raw), Valid: true}
		}
		provenance, signals, err := encodePair(nonNil(p.ProvenanceDiversity), nonNil(p.Signals))
		if err != nil {
			return fmt.Errorf("encode principle %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO corpus_principles (corpus_id, id, position, representative_text, evidence_weight, dimension, provenance_diversity, signals, embedding, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID.String(), p.ID.String(), i, p.RepresentativeText, p.EvidenceWeight, p.Dimension,
			provenance, signals, embedding, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert principle %s: %w", p.ID, err)
		}
	}

	for i, a := range c.Axioms {
		supporting, links, err := encodePair(nonNil(a.SupportingPrincipleIDs), nonNil(a.Tensions))
		if err != nil {
			return fmt.Errorf("encode axiom %s: %w", a.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO corpus_axioms (corpus_id, id, position, lineage_key, cycle, text, tier, dimension, supporting_principle_ids, signal_count, evidence_weight, promotable, promotion_blocker, tensions)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID.String(), a.ID.String(), i, a.LineageKey, a.Cycle, a.Text, string(a.Tier), a.Dimension,
			supporting, a.SignalCount, a.EvidenceWeight, a.Promotable, a.PromotionBlocker, links,
		); err != nil {
			return fmt.Errorf("insert axiom %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit corpus save: %w", err)
	}
	return nil
}

// Latest returns the most recently saved corpus, or ErrNotFound.
func (s *SQLiteCorpusStore) Latest(ctx context.Context) (*domain.Corpus, error) {
	var id, decision, tensions, createdAt string
	c := &domain.Corpus{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, cycle, decision, tensions, created_at FROM corpora ORDER BY seq DESC LIMIT 1`,
	).Scan(&id, &c.Cycle, &decision, &tensions, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if c.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("corpus id: %w", err)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(decision), &c.Decision); err != nil {
		return nil, fmt.Errorf("decode decision: %w", err)
	}
	if err := checkDecision(c.Decision); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tensions), &c.Tensions); err != nil {
		return nil, fmt.Errorf("decode tensions: %w", err)
	}
	if c.Decision.Triggers == nil {
		c.Decision.Triggers = []string{}
	}

	if c.Principles, err = s.principles(ctx, id); err != nil {
		return nil, err
	}
	if c.Axioms, err = s.axioms(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *SQLiteCorpusStore) principles(ctx context.Context, corpusID string) ([]domain.Principle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, representative_text, evidence_weight, dimension, provenance_diversity, signals, embedding, created_at, updated_at
		 FROM corpus_principles WHERE corpus_id = ? ORDER BY position`,
		corpusID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	principles := []domain.Principle{}
	for rows.Next() {
		var p domain.Principle
		var id, provenance, signals, createdAt, updatedAt string
		var embedding sql.NullString
		if err := rows.Scan(&id, &p.RepresentativeText, &p.EvidenceWeight, &p.Dimension,
			&provenance, &signals, &embedding, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if p.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("principle id: %w", err)
		}
		if err := json.Unmarshal([]byte(provenance), &p.ProvenanceDiversity); err != nil {
			return nil, fmt.Errorf("decode provenance of %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(signals), &p.Signals); err != nil {
			return nil, fmt.Errorf("decode signals of %s: %w", id, err)
		}
		if embedding.Valid {
			if err := json.Unmarshal([]byte(embedding.String), &p.Embedding); err != nil {
				return nil, fmt.Errorf("decode embedding of %s: %w", id, err)
			}
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		principles = append(principles, p)
	}
	return principles, rows.Err()
}

func (s *SQLiteCorpusStore) axioms(ctx context.Context, corpusID string) ([]domain.Axiom, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lineage_key, cycle, text, tier, dimension, supporting_principle_ids, signal_count, evidence_weight, promotable, promotion_blocker, tensions
		 FROM corpus_axioms WHERE corpus_id = ? ORDER BY position`,
		corpusID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	axioms := []domain.Axiom{}
	for rows.Next() {
		var a domain.Axiom
		var id, tier, supporting, links string
		if err := rows.Scan(&id, &a.LineageKey, &a.Cycle, &a.Text, &tier, &a.Dimension,
			&supporting, &a.SignalCount, &a.EvidenceWeight, &a.Promotable, &a.PromotionBlocker, &links); err != nil {
			return nil, err
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("axiom id: %w", err)
		}
		a.Tier = domain.AxiomTier(tier)
		if err := json.Unmarshal([]byte(supporting), &a.SupportingPrincipleIDs); err != nil {
			return nil, fmt.Errorf("decode supporting principles of %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(links), &a.Tensions); err != nil {
			return nil, fmt.Errorf("decode tensions of %s: %w", id, err)
		}
		axioms = append(axioms, a)
	}
	return axioms, rows.Err()
}

func encodePair(a, b any) (string, string, error) {
	ra, err := json.Marshal(a)
	if err != nil {
		return "", "", err
	}
	rb, err := json.Marshal(b)
	if err != nil {
		return "", "", err
	}
	return string(ra), string(rb), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
