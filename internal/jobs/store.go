// Package jobs persists render job records and enforces the lifecycle
// state machine: queued -> processing -> completed|failed. Every
// transition is a conditional write keyed on the prior status, so two
// racing transitions on one job resolve to exactly one winner and the
// loser observes ErrConflict instead of overwriting a terminal record.
package jobs

import (
	"context"

	"abode/internal/models"
	"abode/internal/pkg/errors"
)

// ErrConflict is returned when a transition's required prior status does
// not match the stored record. This is how the loser of a terminal race
// is detected; it is not a retryable condition.
var ErrConflict = errors.Conflict("job is not in the required state for this transition")

// Store is the durable home of render job records.
type Store interface {
	// Create persists a new queued job record.
	Create(ctx context.Context, job *models.RenderJob) error

	// Get returns a job by ID, or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*models.RenderJob, error)

	// ListByProject returns the jobs of a project, newest first.
	ListByProject(ctx context.Context, projectID string) ([]models.RenderJob, error)

	// MarkProcessing moves queued -> processing and stamps started_at.
	MarkProcessing(ctx context.Context, id string) error

	// SetProgress updates progress (0-100) while the job is processing.
	// Once the job is terminal the update is dropped silently.
	SetProgress(ctx context.Context, id string, progress int) error

	// MarkCompleted moves processing -> completed, setting the output URL,
	// progress 100 and completed_at.
	MarkCompleted(ctx context.Context, id string, outputURL string) error

	// MarkFailed moves queued|processing -> failed, setting the error
	// message and completed_at. The queued origin covers submissions whose
	// hand-off to the worker queue failed after the record was created.
	MarkFailed(ctx context.Context, id string, errorMessage string) error

	// SetRefundPending flags a failed job whose compensating refund could
	// not be completed and was escalated.
	SetRefundPending(ctx context.Context, id string, pending bool) error

	// ClearReservation zeroes credits_reserved after the refund settled,
	// so the reservation no longer counts against the organization.
	ClearReservation(ctx context.Context, id string) error
}
