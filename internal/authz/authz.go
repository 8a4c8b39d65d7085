// Package authz resolves whether a caller may act on a project or job.
// The orchestrator treats it as an opaque yes/no collaborator; identity
// itself arrives from the gateway via X-User-Id / X-Org-Id headers.
package authz

import (
	"context"

	"abode/internal/models"
)

// Identity is the calling principal as asserted by the gateway.
type Identity struct {
	UserID string
	OrgID  string
}

// Authorizer answers access questions for the render subsystem.
type Authorizer interface {
	// CanAccessProject reports whether the identity may submit and list
	// jobs in a project.
	CanAccessProject(ctx context.Context, id Identity, projectID string) (bool, error)

	// CanAccessJob reports whether the identity may read a job's status.
	CanAccessJob(ctx context.Context, id Identity, job *models.RenderJob) (bool, error)
}
