// Package queue hands job IDs from the API to the render worker.
package queue

import "context"

// Queue is a FIFO of job IDs. Push is called on the submission path,
// Pop by worker consumers.
type Queue interface {
	Push(ctx context.Context, jobID string) error
	Pop(ctx context.Context) (string, error)
}
