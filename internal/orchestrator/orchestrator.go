// Package orchestrator coordinates the render job lifecycle: it validates
// submissions, prices them, reserves credits, persists the job record and
// hands execution to the worker queue. The submitting request only ever
// waits on those fast local steps; rendering itself runs detached and
// reports back exclusively through the job record store.
package orchestrator

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"abode/internal/authz"
	"abode/internal/estimate"
	"abode/internal/jobs"
	"abode/internal/ledger"
	"abode/internal/models"
	"abode/internal/pkg/errors"
	"abode/internal/pkg/logger"
	"abode/internal/worker/queue"
	"abode/internal/worker/renderer"
)

type Deps struct {
	Store     jobs.Store
	Ledger    ledger.Ledger
	Queue     queue.Queue
	Authz     authz.Authorizer
	Renderer  renderer.Client
	Publisher Publisher
	// WorkDir is the local scratch root the render engine writes into.
	WorkDir string
	Log     *logger.Logger

	// RefundRetries and RefundBackoff bound the retry loop of the
	// compensating refund. Zero values select the defaults.
	RefundRetries int
	RefundBackoff time.Duration
}

type Orchestrator struct {
	store     jobs.Store
	ledger    ledger.Ledger
	queue     queue.Queue
	authz     authz.Authorizer
	renderer  renderer.Client
	publisher Publisher
	workDir   string
	log       *logger.Logger
	validate  *validator.Validate

	refundRetries int
	refundBackoff time.Duration
}

func New(d Deps) *Orchestrator {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	if d.RefundRetries <= 0 {
		d.RefundRetries = 5
	}
	if d.RefundBackoff <= 0 {
		d.RefundBackoff = time.Second
	}

	return &Orchestrator{
		store:         d.Store,
		ledger:        d.Ledger,
		queue:         d.Queue,
		authz:         d.Authz,
		renderer:      d.Renderer,
		publisher:     d.Publisher,
		workDir:       d.WorkDir,
		log:           log.WithComponent("orchestrator"),
		validate:      validator.New(),
		refundRetries: d.RefundRetries,
		refundBackoff: d.RefundBackoff,
	}
}

// SubmitRequest is one render job submission. EngineParams is an opaque
// engine payload; the orchestrator reads only the engine, samples and
// duration_seconds keys out of it for pricing.
type SubmitRequest struct {
	ProjectID    string         `json:"project_id" validate:"required"`
	RenderType   string         `json:"render_type" validate:"required,oneof=still walkthrough panorama"`
	Quality      string         `json:"quality" validate:"required,oneof=1080p 4k 8k"`
	EngineParams map[string]any `json:"engine_params" validate:"required"`
}

// Accepted is the immediate response to a successful submission. The job
// has not run yet; clients poll status for the outcome.
type Accepted struct {
	JobID                string           `json:"job_id"`
	CreditsCharged       int              `json:"credits_charged"`
	EstimatedTimeSeconds int              `json:"estimated_time_seconds"`
	Status               models.JobStatus `json:"status"`
}

// Submit validates and prices a job, reserves credits and persists a
// queued record. Validation and credit failures happen before any state is
// created: no record without a reservation, no reservation without a
// record that will eventually resolve it.
func (o *Orchestrator) Submit(ctx context.Context, id authz.Identity, req SubmitRequest) (*Accepted, error) {
	if err := o.validateSubmit(req); err != nil {
		return nil, err
	}

	ok, err := o.authz.CanAccessProject(ctx, id, req.ProjectID)
	if err != nil {
		return nil, errors.Wrap(err, "orchestrator.submit", "project access check failed")
	}
	if !ok {
		return nil, errors.NotFound("project", req.ProjectID)
	}

	est, err := o.estimateRequest(req)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	log := o.log.FromContext(ctx).WithJobID(jobID)

	if err := o.ledger.Reserve(ctx, id.OrgID, est.Credits, jobID); err != nil {
		return nil, err
	}
	log.Debug("credits reserved", "amount", est.Credits)

	paramsJSON, err := json.Marshal(req.EngineParams)
	if err != nil {
		o.compensate(ctx, id.OrgID, est.Credits, jobID)
		return nil, errors.Wrap(err, "orchestrator.submit", "engine params marshal failed")
	}

	job := &models.RenderJob{
		ID:               jobID,
		OrgID:            id.OrgID,
		UserID:           id.UserID,
		ProjectID:        req.ProjectID,
		RenderType:       models.RenderType(req.RenderType),
		Quality:          models.Quality(req.Quality),
		EngineParams:     paramsJSON,
		Status:           models.StatusQueued,
		CreditsReserved:  est.Credits,
		EstimatedSeconds: est.Seconds,
		CreatedAt:        time.Now().UTC(),
	}

	if err := o.store.Create(ctx, job); err != nil {
		o.compensate(ctx, id.OrgID, est.Credits, jobID)
		return nil, errors.Wrap(err, "orchestrator.submit", "job record create failed")
	}

	if err := o.queue.Push(ctx, jobID); err != nil {
		// The record exists but nothing will ever execute it. Fail it and
		// give the credits back rather than stranding a queued job.
		log.Error("queue push failed, failing job", "error", err.Error())
		if ferr := o.store.MarkFailed(ctx, jobID, "could not hand job to the render queue"); ferr != nil {
			log.Error("failed to mark job failed after queue error", "error", ferr.Error())
		}
		o.compensate(ctx, id.OrgID, est.Credits, jobID)
		return nil, errors.WrapWithCode(err, errors.CodeUnavailable, "orchestrator.submit", "render queue unavailable")
	}

	log.Info("job accepted",
		"project_id", req.ProjectID,
		"render_type", req.RenderType,
		"quality", req.Quality,
		"credits", est.Credits,
		"estimated_seconds", est.Seconds,
	)

	return &Accepted{
		JobID:                jobID,
		CreditsCharged:       est.Credits,
		EstimatedTimeSeconds: est.Seconds,
		Status:               models.StatusQueued,
	}, nil
}

// StatusResponse is the read-only projection served to polling clients.
type StatusResponse struct {
	JobID                     string           `json:"job_id"`
	Status                    models.JobStatus `json:"status"`
	Progress                  int              `json:"progress"`
	OutputURL                 string           `json:"output_url,omitempty"`
	ErrorMessage              string           `json:"error_message,omitempty"`
	EstimatedSecondsRemaining int              `json:"estimated_seconds_remaining"`
}

// Status returns a job's progress for its owner. An unknown job and a job
// outside the caller's scope are indistinguishable: both are NOT_FOUND.
func (o *Orchestrator) Status(ctx context.Context, id authz.Identity, jobID string) (*StatusResponse, error) {
	job, err := o.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	ok, err := o.authz.CanAccessJob(ctx, id, job)
	if err != nil {
		return nil, errors.Wrap(err, "orchestrator.status", "job access check failed")
	}
	if !ok {
		return nil, errors.NotFound("job", jobID)
	}

	return &StatusResponse{
		JobID:                     job.ID,
		Status:                    job.Status,
		Progress:                  job.Progress,
		OutputURL:                 job.OutputURL,
		ErrorMessage:              job.ErrorMessage,
		EstimatedSecondsRemaining: secondsRemaining(job),
	}, nil
}

// ListProject returns the jobs of a project the caller can access.
func (o *Orchestrator) ListProject(ctx context.Context, id authz.Identity, projectID string) ([]models.RenderJob, error) {
	ok, err := o.authz.CanAccessProject(ctx, id, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "orchestrator.list", "project access check failed")
	}
	if !ok {
		return nil, errors.NotFound("project", projectID)
	}
	return o.store.ListByProject(ctx, projectID)
}

func secondsRemaining(job *models.RenderJob) int {
	if job.Status.Terminal() {
		return 0
	}
	remaining := math.Ceil(float64(job.EstimatedSeconds) * float64(100-job.Progress) / 100)
	if remaining < 0 {
		return 0
	}
	return int(remaining)
}

func (o *Orchestrator) validateSubmit(req SubmitRequest) error {
	err := o.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		switch f.Tag() {
		case "required":
			return errors.ValidationField(jsonField(f.Field()), "field is required")
		case "oneof":
			return errors.ValidationField(jsonField(f.Field()), "must be one of: "+f.Param())
		}
		return errors.ValidationField(jsonField(f.Field()), "invalid value")
	}
	return errors.Validation(err.Error())
}

func jsonField(structField string) string {
	switch structField {
	case "ProjectID":
		return "project_id"
	case "RenderType":
		return "render_type"
	case "Quality":
		return "quality"
	case "EngineParams":
		return "engine_params"
	}
	return structField
}

func (o *Orchestrator) estimateRequest(req SubmitRequest) (estimate.Result, error) {
	engineName, _ := req.EngineParams["engine"].(string)
	engine, err := estimate.ParseEngine(engineName)
	if err != nil {
		return estimate.Result{}, err
	}

	samples, ok := intParam(req.EngineParams, "samples")
	if !ok {
		return estimate.Result{}, errors.ValidationField("engine_params.samples", "samples is required")
	}

	duration := 0
	if raw, present := req.EngineParams["duration_seconds"]; present {
		d, ok := asInt(raw)
		if !ok || d <= 0 {
			return estimate.Result{}, errors.ValidationField("engine_params.duration_seconds", "duration_seconds must be a positive integer")
		}
		duration = d
	}

	return estimate.Estimate(estimate.Input{
		RenderType:      models.RenderType(req.RenderType),
		Quality:         models.Quality(req.Quality),
		Engine:          engine,
		Samples:         samples,
		DurationSeconds: duration,
	})
}

func intParam(params map[string]any, key string) (int, bool) {
	raw, ok := params[key]
	if !ok {
		return 0, false
	}
	return asInt(raw)
}

// asInt accepts the numeric shapes a decoded JSON payload can carry.
func asInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

// compensate undoes a reservation after a post-reserve submission step
// failed. Refunds are idempotent per job, so a duplicate here is safe.
func (o *Orchestrator) compensate(ctx context.Context, orgID string, amount int, jobID string) {
	if err := o.ledger.Refund(ctx, orgID, amount, jobID); err != nil {
		o.log.Error("submission compensation refund failed",
			"job_id", jobID,
			"org_id", orgID,
			"amount", amount,
			"error", err.Error(),
		)
		return
	}
	// No-op when the failure happened before the record existed.
	if err := o.store.ClearReservation(ctx, jobID); err != nil {
		o.log.Warn("failed to clear settled reservation", "job_id", jobID, "error", err.Error())
	}
}
