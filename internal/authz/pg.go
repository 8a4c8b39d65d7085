package authz

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"abode/internal/models"
	"abode/internal/pkg/errors"
)

// PG implements Authorizer against the projects/project_members tables
// owned by the host application.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

func (a *PG) CanAccessProject(ctx context.Context, id Identity, projectID string) (bool, error) {
	var ok bool
	err := a.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM projects p
		   JOIN project_members m ON m.project_id = p.id
		   WHERE p.id = $1 AND p.org_id = $2 AND m.user_id = $3
		 )`,
		projectID, id.OrgID, id.UserID,
	).Scan(&ok)
	if err != nil {
		return false, errors.Wrap(err, "authz.project", "membership lookup failed")
	}
	return ok, nil
}

func (a *PG) CanAccessJob(ctx context.Context, id Identity, job *models.RenderJob) (bool, error) {
	if job.OrgID != id.OrgID {
		return false, nil
	}
	if job.UserID == id.UserID {
		return true, nil
	}
	return a.CanAccessProject(ctx, id, job.ProjectID)
}

// Static is a fixed-answer Authorizer for dev mode and tests.
type Static struct {
	// Projects maps userID -> set of accessible project IDs. A nil map
	// allows everything.
	Projects map[string]map[string]bool
}

// AllowAll permits every project access and same-org job access.
func AllowAll() *Static { return &Static{} }

func (a *Static) CanAccessProject(ctx context.Context, id Identity, projectID string) (bool, error) {
	if a.Projects == nil {
		return true, nil
	}
	return a.Projects[id.UserID][projectID], nil
}

func (a *Static) CanAccessJob(ctx context.Context, id Identity, job *models.RenderJob) (bool, error) {
	if a.Projects == nil {
		return job.OrgID == id.OrgID || id.OrgID == "", nil
	}
	return a.Projects[id.UserID][job.ProjectID], nil
}
