// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"feedback-analysis-service/internal/config"
	"feedback-analysis-service/internal/domain/ports/adapter"
	"feedback-analysis-service/internal/domain/ports/repository"
	aiAdapters "feedback-analysis-service/internal/infra/adapters/ai"
	"feedback-analysis-service/internal/infra/adapters/mail"
	"feedback-analysis-service/internal/infra/adapters/retrieval"
	"feedback-analysis-service/internal/infra/adapters/sheets"
	"feedback-analysis-service/internal/infra/cache"
	pg "feedback-analysis-service/internal/infra/db/postgres"
	httpapi "feedback-analysis-service/internal/infra/http"
	"feedback-analysis-service/internal/infra/logging"
	"feedback-analysis-service/internal/infra/metrics"
	"feedback-analysis-service/internal/infra/queue"
	red "feedback-analysis-service/internal/infra/redis"
	"feedback-analysis-service/internal/infra/worker"
	"feedback-analysis-service/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop fallbacks for AI and mail)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		stdlog.Fatalf("config: %v", err)
	}

	log := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		log.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Session store (local tier + best-effort Redis) ----
	store := cache.NewStore(func(ctx context.Context) (red.Client, error) {
		return red.NewClient(ctx, &cfg.Redis)
	}, cfg.Cache.TTL, cfg.Cache.MaxSize, cfg.Redis.TTL, log)
	store.Init(ctx)
	defer store.Close()

	// ---- Rate limiter (shares the store's remote tier) ----
	var limiter *red.RateLimiter
	if client, err := red.NewClient(ctx, &cfg.Redis); err == nil {
		limiter = red.NewRateLimiter(client)
		defer client.Close()
	} else {
		log.Warn().Err(err).Msg("redis unavailable, submission rate limiting disabled")
	}

	// ---- AI synthesizer (Groq -> Gemini -> noop in dev) ----
	var synth adapter.AnswerSynthesizer
	switch {
	case cfg.AI.GroqKey != "":
		synth, err = aiAdapters.NewGroqAdapter(cfg.AI.GroqKey, cfg.AI.DefaultModel, cfg.AI.GroqBaseURL, cfg.AI.Temperature, cfg.AI.MaxTokens)
		if err != nil {
			log.Fatal().Err(err).Msg("groq adapter")
		}
		log.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Groq")
	case cfg.AI.GeminiKey != "":
		synth, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.DefaultModel, cfg.AI.MaxTokens)
		if err != nil {
			log.Fatal().Err(err).Msg("gemini adapter")
		}
		log.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	default:
		// LoadConfig rejects this outside dev mode.
		synth = aiAdapters.NewNoopSynthesizer()
		log.Warn().Msg("AI adapter: noop")
	}
	synth = aiAdapters.NewLimitedSynthesizer(synth, cfg.AI.ConcurrentLimit)

	// ---- Worksheet access and tools ----
	fetcher := sheets.NewClient(log)
	tools := sheets.NewToolProvider(fetcher, log)
	lexical := retrieval.NewLexical(log)

	// ---- Notifier ----
	var notifier adapter.Notifier
	if cfg.Mail.Username != "" || !cfg.Runtime.Dev {
		notifier = mail.NewSMTPNotifier(cfg.Mail, log)
	} else {
		notifier = mail.NewNoopNotifier(log)
	}

	// ---- Optional job archive ----
	var archive repository.JobArchive
	if cfg.Database.URL != "" {
		pool, err := pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres")
		}
		defer pool.Close()
		repo := pg.NewJobArchiveRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("job archive schema")
		}
		archive = repo
		log.Info().Msg("job archive enabled")
	}

	// ---- Use cases ----
	analyzer := usecase.NewAnalyzer(synth, log)
	router := usecase.NewRouter(synth, tools, log)
	sessionUC := usecase.NewSessionUseCase(store, fetcher, lexical, router, analyzer, cfg.Retrieval, log)

	// ---- Analysis pipeline and task queue ----
	pool := worker.NewPool(cfg.Analysis.Workers, log)
	pool.Start(ctx)
	defer pool.Stop()

	pipeline := queue.NewAnalysisPipeline(fetcher, analyzer, notifier, pool, cfg.Analysis.MaxRows, log)
	taskQueue := queue.New(cfg.Queue.MaxConcurrent, cfg.Queue.IdleShutdown, cfg.Queue.JobTimeout, pipeline, notifier, archive, log)

	// ---- HTTP server ----
	srv := httpapi.NewServer(cfg, taskQueue, sessionUC, limiter, log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Drain in-flight jobs while the worker pool is still alive; the pool and
	// the root context are torn down by the deferred calls afterwards.
	taskQueue.Drain()
}
