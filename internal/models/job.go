package models

import (
	"encoding/json"
	"time"
)

// RenderType is the kind of output a job produces.
type RenderType string

const (
	RenderStill       RenderType = "still"
	RenderWalkthrough RenderType = "walkthrough"
	RenderPanorama    RenderType = "panorama"
)

// Quality is the output resolution tier.
type Quality string

const (
	Quality1080p Quality = "1080p"
	Quality4K    Quality = "4k"
	Quality8K    Quality = "8k"
)

// JobStatus is the lifecycle state of a render job.
// Transitions move forward only: queued -> processing -> completed|failed.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is permitted from s.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RenderJob is the durable record of one unit of render work.
// Identity fields are immutable after creation; lifecycle fields are
// mutated only through the job store's transition operations.
type RenderJob struct {
	ID        string `json:"id"`
	OrgID     string `json:"org_id"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`

	RenderType   RenderType      `json:"render_type"`
	Quality      Quality         `json:"quality"`
	EngineParams json.RawMessage `json:"engine_params"`

	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`

	CreditsReserved  int  `json:"credits_reserved"`
	EstimatedSeconds int  `json:"estimated_seconds"`
	RefundPending    bool `json:"refund_pending,omitempty"`

	OutputURL    string `json:"output_url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
