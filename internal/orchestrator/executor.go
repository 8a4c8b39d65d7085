package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"abode/internal/models"
	"abode/internal/pkg/errors"
	"abode/internal/worker/renderer"
)

// progressInterval is how often the elapsed-time progress heuristic
// writes to the job record while the engine runs.
const progressInterval = 5 * time.Second

// Execute drives one job from queued to a terminal state. It is called by
// worker consumers, never by the submission path. Terminal side effects
// are ordered so the record never reports completed before the artifact
// URL is durable, and never reports failed without the refund issued or
// escalated.
func (o *Orchestrator) Execute(ctx context.Context, jobID string) error {
	log := o.log.FromContext(ctx).WithJobID(jobID)

	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		return errors.Wrap(err, "orchestrator.execute", "job lookup failed")
	}
	if job.Status.Terminal() {
		log.Warn("job already terminal, skipping", "status", string(job.Status))
		return nil
	}

	if err := o.store.MarkProcessing(ctx, jobID); err != nil {
		if errors.IsConflict(err) {
			log.Warn("job claimed by another worker, skipping")
			return nil
		}
		return errors.Wrap(err, "orchestrator.execute", "failed to mark job processing")
	}
	started := time.Now()
	log.Info("job processing",
		"render_type", string(job.RenderType),
		"quality", string(job.Quality),
		"estimated_seconds", job.EstimatedSeconds,
	)

	workDir := filepath.Join(o.workDir, "jobs", jobID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return o.fail(ctx, job, errors.Wrap(err, "orchestrator.execute", "work directory create failed"))
	}
	defer os.RemoveAll(workDir)

	spec := renderer.Spec{
		JobID:      jobID,
		RenderType: string(job.RenderType),
		Quality:    string(job.Quality),
		Params:     job.EngineParams,
		OutputPath: workDir,
	}

	var artifactPath string
	g, gctx := errgroup.WithContext(ctx)
	renderDone := make(chan struct{})

	g.Go(func() error {
		defer close(renderDone)
		path, err := o.renderer.Render(gctx, spec)
		if err != nil {
			return err
		}
		artifactPath = path
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-renderDone:
				return nil
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				p := estimatedProgress(started, job.EstimatedSeconds)
				if err := o.store.SetProgress(gctx, jobID, p); err != nil {
					log.Warn("progress update failed", "error", err.Error())
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return o.fail(ctx, job, errors.Wrap(err, "orchestrator.render", "render failed"))
	}
	log.Debug("render completed", "artifact", artifactPath)

	outputURL, err := o.publisher.Publish(ctx, job, artifactPath)
	if err != nil {
		// The customer did not receive a usable result; for the ledger
		// this is the same as a worker failure.
		return o.fail(ctx, job, errors.Wrap(err, "orchestrator.publish", "artifact publish failed"))
	}
	log.Debug("artifact published", "url", outputURL)

	if err := o.store.MarkCompleted(ctx, jobID, outputURL); err != nil {
		if errors.IsConflict(err) {
			// The record already shows failed, so this URL will never be
			// handed out. Remove the orphaned object.
			log.Warn("job reached a terminal state concurrently, completion dropped")
			if derr := o.publisher.Discard(ctx, outputURL); derr != nil {
				log.Warn("orphaned artifact not removed", "error", derr.Error())
			}
			return nil
		}
		return errors.Wrap(err, "orchestrator.execute", "failed to mark job completed")
	}

	log.Info("job completed",
		"duration_ms", time.Since(started).Milliseconds(),
		"output_url", outputURL,
	)
	return nil
}

// fail drives the terminal failed transition and the compensating refund.
// The refund is what keeps the ledger invariant: a failed job always
// implies the organization was made whole.
func (o *Orchestrator) fail(ctx context.Context, job *models.RenderJob, cause error) error {
	log := o.log.FromContext(ctx).WithJobID(job.ID)

	msg := "render failed"
	if cause != nil {
		msg = cause.Error()
	}

	if err := o.store.MarkFailed(ctx, job.ID, msg); err != nil {
		if errors.IsConflict(err) {
			// Someone else already terminated the job; its refund (if
			// owed) is their responsibility.
			log.Warn("job already terminal, failure report dropped", "cause", msg)
			return nil
		}
		log.Error("failed to mark job failed", "error", err.Error(), "cause", msg)
		return err
	}
	log.Error("job failed", "error", msg)

	o.refundWithRetry(ctx, job)
	return cause
}

// refundWithRetry retries the compensating refund with bounded backoff.
// The refund is idempotent per job, so retrying after an ambiguous error
// is safe. Exhausting the retries flags the job refund_pending and logs
// at error level for operator escalation; it is never dropped silently.
func (o *Orchestrator) refundWithRetry(ctx context.Context, job *models.RenderJob) {
	log := o.log.FromContext(ctx).WithJobID(job.ID)

	backoff := o.refundBackoff
	var lastErr error
	for attempt := 1; attempt <= o.refundRetries; attempt++ {
		lastErr = o.ledger.Refund(ctx, job.OrgID, job.CreditsReserved, job.ID)
		if lastErr == nil {
			if err := o.store.ClearReservation(ctx, job.ID); err != nil {
				log.Warn("failed to clear settled reservation", "error", err.Error())
			}
			log.Info("credits refunded", "amount", job.CreditsReserved)
			return
		}
		log.Warn("refund attempt failed",
			"attempt", attempt,
			"error", lastErr.Error(),
		)
		if attempt < o.refundRetries {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				attempt = o.refundRetries
			}
			backoff *= 2
		}
	}

	if err := o.store.SetRefundPending(ctx, job.ID, true); err != nil {
		log.Error("failed to flag refund pending", "error", err.Error())
	}
	log.Error("refund exhausted retries, escalating",
		"org_id", job.OrgID,
		"amount", job.CreditsReserved,
		"error", lastErr.Error(),
	)
}

// estimatedProgress interpolates progress from elapsed wall-clock time
// against the estimate. It is a display heuristic; the terminal
// transition owns the final value, so this caps at 95.
func estimatedProgress(started time.Time, estimatedSeconds int) int {
	if estimatedSeconds <= 0 {
		return 0
	}
	p := int(time.Since(started).Seconds() / float64(estimatedSeconds) * 100)
	if p > 95 {
		return 95
	}
	if p < 0 {
		return 0
	}
	return p
}
