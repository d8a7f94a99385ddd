// Package app assembles the synthesis engine from environment configuration. Both the
// HTTP server and the command-line tool build their engine here.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/config"
	"github.com/live-neon/neon-soul-sub003/internal/domain"
	"github.com/live-neon/neon-soul-sub003/internal/embedding"
	"github.com/live-neon/neon-soul-sub003/internal/events"
	"github.com/live-neon/neon-soul-sub003/internal/llm"
	"github.com/live-neon/neon-soul-sub003/internal/metrics"
	"github.com/live-neon/neon-soul-sub003/internal/service"
	"github.com/live-neon/neon-soul-sub003/internal/similarity"
	"github.com/live-neon/neon-soul-sub003/internal/store"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"

	SimilarityEmbedding = "embedding"
	SimilarityLLM       = "llm"
)

// Options override the environment for a single build. Zero values fall back to config.
type Options struct {
	CorpusBackend string
	SQLitePath    string
	DatabaseURL   string

	// Registerer receives the engine's collectors. Nil disables metrics.
	Registerer prometheus.Registerer

	// Publish connects to NATS when NATS_URL is set.
	Publish bool
}

// App is a fully wired engine and the resources it owns.
type App struct {
	Synthesis *service.SynthesisService
	Store     domain.CorpusStore
	Metrics   *metrics.Metrics

	closers []func()
}

func New(ctx context.Context, opts Options, logger *zap.Logger) (*App, error) {
	a := &App{}
	if opts.Registerer != nil {
		a.Metrics = metrics.New(opts.Registerer)
	}

	corpus, err := a.openStore(ctx, opts, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = corpus

	judge, err := llm.NewClient(config.LLMProvider(), config.LLMAPIKey())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	throttled := llm.NewThrottled(judge, config.BackendRPS(), config.BackendBurst())
	retrier := llm.NewRetrier(llm.DefaultRetryConfig(), a.Metrics, logger)
	concurrency := config.Concurrency()

	conflicts := llm.NewRetryingConflicts(throttled, retrier)

	oracle, err := newOracle(throttled, concurrency, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	logger.Info("similarity oracle ready",
		zap.String("backend", config.SimilarityBackend()),
		zap.Float64("threshold", config.SimilarityThreshold()))

	var publisher domain.RunPublisher
	if opts.Publish && config.NATSURL() != "" {
		conn, err := events.Connect(config.NATSURL(), logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = conn.Drain() })
		publisher = events.NewNATSPublisher(conn, config.NATSSubject(), logger)
		logger.Info("publishing run summaries", zap.String("subject", config.NATSSubject()))
	}

	cfg := service.SynthesisConfig{
		Criteria:            config.PromotionCriteria(service.DefaultPromotionCriteria()),
		Thresholds:          config.CycleThresholds(service.DefaultCycleThresholds()),
		OrphanEvidenceFloor: config.OrphanEvidenceFloor(),
		OrphanWarnRate:      config.OrphanWarnRate(),
	}

	a.Synthesis = service.NewSynthesisService(
		corpus,
		similarity.NewRetrying(oracle, retrier),
		service.NewMetadataClassifier(throttled, retrier, concurrency, logger),
		service.NewAxiomPromoter(logger),
		service.NewTensionDetector(conflicts, concurrency, logger),
		service.NewCycleManager(similarity.NewRetrying(oracle, retrier), conflicts, concurrency, logger),
		publisher,
		a.Metrics,
		cfg,
		logger,
	)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context, opts Options, logger *zap.Logger) (domain.CorpusStore, error) {
	backend := opts.CorpusBackend
	if backend == "" {
		backend = config.CorpusBackend()
	}

	switch backend {
	case BackendPostgres:
		dbURL := opts.DatabaseURL
		if dbURL == "" {
			dbURL = config.DatabaseURL()
		}
		if dbURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the postgres corpus backend")
		}
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping database: %w", err)
		}
		s := store.NewPostgresCorpusStore(pool)
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		logger.Info("connected to database")
		return s, nil

	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = config.SQLitePath()
		}
		s, err := store.OpenSQLiteCorpusStore(path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		logger.Info("opened sqlite corpus", zap.String("path", path))
		return s, nil

	default:
		return nil, fmt.Errorf("unknown corpus backend: %s (valid options: postgres, sqlite)", backend)
	}
}

func newOracle(judge domain.EquivalenceJudge, concurrency int, logger *zap.Logger) (similarity.Oracle, error) {
	threshold := config.SimilarityThreshold()
	switch config.SimilarityBackend() {
	case SimilarityEmbedding:
		client, err := embedding.NewClient(config.EmbeddingProvider(), config.EmbeddingAPIKey())
		if err != nil {
			return nil, fmt.Errorf("create embedding client: %w", err)
		}
		throttled := embedding.NewThrottled(client, config.BackendRPS(), config.BackendBurst())
		return similarity.NewEmbeddingOracle(throttled, threshold, concurrency, logger), nil

	case SimilarityLLM:
		return similarity.NewLLMOracle(judge, threshold, concurrency, logger), nil

	default:
		return nil, fmt.Errorf("unknown similarity backend: %s (valid options: embedding, llm)", config.SimilarityBackend())
	}
}
