package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/live-neon/neon-soul-sub003/internal/api/handlers"
	mw "github.com/live-neon/neon-soul-sub003/internal/api/middleware"
	"github.com/live-neon/neon-soul-sub003/internal/domain"
	"github.com/live-neon/neon-soul-sub003/internal/metrics"
)

// Deps are the collaborators the HTTP surface needs.
type Deps struct {
	Runner   handlers.Runner
	Corpus   domain.CorpusStore
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger

	// APIKey guards /v1 when set.
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(d Deps) *chi.Mux {
	runHandler := handlers.NewRunHandler(d.Runner, d.Logger)
	corpusHandler := handlers.NewCorpusHandler(d.Corpus, d.Logger)
	healthHandler := handlers.NewHealthHandler(d.Corpus)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(mw.RequestID)          // Generate/extract request ID first
	r.Use(middleware.RealIP)     // Extract real IP
	r.Use(mw.Metrics(d.Metrics)) // Collect metrics
	r.Use(mw.Logging(d.Logger))  // Log all requests
	r.Use(middleware.Recoverer)  // Recover from panics
	if d.RateLimitRPS > 0 {
		r.Use(mw.RateLimit(d.RateLimitRPS, d.RateLimitBurst))
	}

	// Health and metrics (no auth)
	r.Get("/health", healthHandler.Get)
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		if d.APIKey != "" {
			r.Use(mw.APIKeyAuth(d.APIKey))
		}

		r.Post("/runs", runHandler.Create)

		r.Get("/corpus", corpusHandler.Get)
		r.Get("/corpus/axioms", corpusHandler.Axioms)
		r.Get("/corpus/tensions", corpusHandler.Tensions)
	})

	return r
}
