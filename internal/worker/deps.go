package worker

import (
	"abode/internal/orchestrator"
	"abode/internal/pkg/logger"
	"abode/internal/worker/queue"
)

type Deps struct {
	Queue        queue.Queue
	Orchestrator *orchestrator.Orchestrator
	// Concurrency is the number of jobs executed in parallel.
	Concurrency int
	Log         *logger.Logger
}
