// Package http exposes the service API: analysis job submission and
// tracking, interactive sessions, and operational endpoints.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/config"
	"feedback-analysis-service/internal/infra/logging"
	"feedback-analysis-service/internal/infra/queue"
	red "feedback-analysis-service/internal/infra/redis"
	"feedback-analysis-service/internal/usecase"
)

type Server struct {
	cfg       *config.Config
	queue     *queue.Queue
	sessionUC *usecase.SessionUseCase
	limiter   *red.RateLimiter // optional, nil when Redis is absent
	log       *zerolog.Logger
	server    *http.Server
}

func NewServer(cfg *config.Config, q *queue.Queue, sessionUC *usecase.SessionUseCase, limiter *red.RateLimiter, log *zerolog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		queue:     q,
		sessionUC: sessionUC,
		limiter:   limiter,
		log:       log,
	}
}

// traceContext copies chi's request ID into the logging context so every
// log line emitted while serving the request carries it.
func traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(logging.WithTraceID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}

// Routes builds the chi router. Split from Start so tests can drive the
// handler tree directly.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(traceContext)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/analyze/{id}", s.handleAnalyzeStatus)
		r.Get("/queue", s.handleQueueInfo)

		r.Post("/sessions", s.handleSessionStart)
		r.Post("/sessions/{id}/query", s.handleSessionQuery)
		r.Delete("/sessions/{id}", s.handleSessionDelete)

		r.Get("/cache/stats", s.handleCacheStats)
	})
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.Routes(),
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
