package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"abode/internal/authz"
	"abode/internal/config"
	"abode/internal/httpapi"
	"abode/internal/jobs"
	"abode/internal/ledger"
	"abode/internal/orchestrator"
	"abode/internal/pkg/logger"
	"abode/internal/pkg/shutdown"
	"abode/internal/storage"
	"abode/internal/worker/queue"
)

func main() {
	// Local development convenience; missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault().LogFatal("failed to load configuration", err)
	}

	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "abode-render-api",
		AddSource:   cfg.Log.Source,
	})

	log.Info("starting render API",
		"version", "0.1.0",
	)

	ctx := context.Background()

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})
	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	log.Info("initializing storage provider")
	sp, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	led := ledger.NewPG(pool)
	orc := orchestrator.New(orchestrator.Deps{
		Store:         jobs.NewPG(pool),
		Ledger:        led,
		Queue:         queue.NewRedisQueue(rdb, cfg.QueueName),
		Authz:         authz.NewPG(pool),
		Publisher:     orchestrator.NewStoragePublisher(sp, cfg.PublicBaseURL),
		WorkDir:       cfg.WorkDir,
		Log:           log,
		RefundRetries: cfg.RefundRetries,
		RefundBackoff: time.Duration(cfg.RefundBackoffMS) * time.Millisecond,
	})

	router := httpapi.NewRouter(httpapi.Deps{
		Orchestrator: orc,
		Ledger:       led,
		Log:          log,
		Pool:         pool,
		RDB:          rdb,
		SP:           sp,
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening",
			"addr", server.Addr,
			"port", cfg.HTTPPort,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
