// Package worker consumes the render queue and executes jobs. Submission
// never waits on it: the API pushes a job ID and returns, and everything
// the worker does is observable only through the job record store.
package worker

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"abode/internal/pkg/logger"
)

func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	log.Info("worker starting", "concurrency", concurrency)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < concurrency; i++ {
		consumer := i
		g.Go(func() error {
			return consume(gctx, d, log.WithFields(map[string]any{"consumer": consumer}))
		})
	}
	return g.Wait()
}

func consume(ctx context.Context, d Deps, log *logger.Logger) error {
	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		// Use a separate context with timeout for queue operations
		popCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		jobID, err := d.Queue.Pop(popCtx)
		cancel()

		if err != nil {
			// Check if it's a context cancellation
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}

			log.Warn("queue pop error, retrying",
				"error", err.Error(),
			)
			time.Sleep(1 * time.Second)
			continue
		}

		if jobID == "" {
			continue
		}

		jobCtx := logger.ContextWithJobID(ctx, jobID)
		jobLog := log.WithJobID(jobID)

		jobLog.Info("processing job")
		startTime := time.Now()

		if err := d.Orchestrator.Execute(jobCtx, jobID); err != nil {
			jobLog.Error("job execution failed",
				"error", err.Error(),
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		} else {
			jobLog.Info("job done",
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		}
	}
}
