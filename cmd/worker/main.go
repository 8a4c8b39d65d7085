package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"abode/internal/authz"
	"abode/internal/config"
	"abode/internal/jobs"
	"abode/internal/ledger"
	"abode/internal/orchestrator"
	"abode/internal/pkg/logger"
	"abode/internal/storage"
	"abode/internal/worker"
	"abode/internal/worker/queue"
	"abode/internal/worker/renderer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("failed to load configuration", err)
	}
	if cfg.RendererBaseURL == "" {
		logger.NewDefault().LogFatal("RENDERER_HTTP_BASEURL is required", nil)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "abode-render-worker",
		AddSource:   cfg.Log.Source,
	})

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}

	q := queue.NewRedisQueue(rdb, cfg.QueueName)
	orc := orchestrator.New(orchestrator.Deps{
		Store:         jobs.NewPG(pool),
		Ledger:        ledger.NewPG(pool),
		Queue:         q,
		Authz:         authz.NewPG(pool),
		Renderer:      renderer.NewHTTPClient(cfg.RendererBaseURL),
		Publisher:     orchestrator.NewStoragePublisher(sp, cfg.PublicBaseURL),
		WorkDir:       cfg.WorkDir,
		Log:           log,
		RefundRetries: cfg.RefundRetries,
		RefundBackoff: time.Duration(cfg.RefundBackoffMS) * time.Millisecond,
	})

	log.Info("render worker started", "queue", cfg.QueueName)
	if err := worker.Run(ctx, worker.Deps{
		Queue:        q,
		Orchestrator: orc,
		Concurrency:  cfg.WorkerConcurrency,
		Log:          log,
	}); err != nil {
		log.LogFatal("worker stopped", err)
	}
}
