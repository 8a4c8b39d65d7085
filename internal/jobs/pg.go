package jobs

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"abode/internal/models"
	"abode/internal/pkg/errors"
)

// PG implements Store on PostgreSQL. Transitions are single conditional
// UPDATEs, so concurrent mutations of one record cannot interleave into
// an invalid combined state.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

const jobColumns = `id, org_id, user_id, project_id, render_type, quality,
	engine_params, status, progress, credits_reserved, estimated_seconds,
	refund_pending, COALESCE(output_url,''), COALESCE(error_message,''),
	created_at, started_at, completed_at`

func (s *PG) Create(ctx context.Context, job *models.RenderJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO render_jobs
		 (id, org_id, user_id, project_id, render_type, quality, engine_params,
		  status, progress, credits_reserved, estimated_seconds, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,0,$9,$10,$11)`,
		job.ID, job.OrgID, job.UserID, job.ProjectID,
		job.RenderType, job.Quality, job.EngineParams,
		job.Status, job.CreditsReserved, job.EstimatedSeconds, job.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "jobs.create", "job insert failed")
	}
	return nil
}

func (s *PG) Get(ctx context.Context, id string) (*models.RenderJob, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM render_jobs WHERE id=$1`, id)
	job, err := scanJob(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("job", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "jobs.get", "job query failed")
	}
	return job, nil
}

func (s *PG) ListByProject(ctx context.Context, projectID string) ([]models.RenderJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM render_jobs
		 WHERE project_id=$1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "jobs.list", "job query failed")
	}
	defer rows.Close()

	out := []models.RenderJob{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "jobs.list", "row scan failed")
		}
		out = append(out, *job)
	}
	return out, rows.Err()
}

func (s *PG) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, "jobs.processing",
		`UPDATE render_jobs SET status=$2, started_at=NOW()
		 WHERE id=$1 AND status=$3`,
		id, models.StatusProcessing, models.StatusQueued)
}

func (s *PG) SetProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 || progress > 100 {
		return errors.Validationf("progress out of range: %d", progress)
	}
	// Dropped once the record left processing; the terminal transition
	// already owns the final progress value.
	_, err := s.pool.Exec(ctx,
		`UPDATE render_jobs SET progress=$2 WHERE id=$1 AND status=$3`,
		id, progress, models.StatusProcessing)
	if err != nil {
		return errors.Wrap(err, "jobs.progress", "progress update failed")
	}
	return nil
}

func (s *PG) MarkCompleted(ctx context.Context, id string, outputURL string) error {
	return s.transition(ctx, "jobs.completed",
		`UPDATE render_jobs
		 SET status=$2, output_url=$3, progress=100, completed_at=NOW()
		 WHERE id=$1 AND status=$4`,
		id, models.StatusCompleted, outputURL, models.StatusProcessing)
}

func (s *PG) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	if len(errorMessage) > 2000 {
		errorMessage = errorMessage[:2000]
	}
	return s.transition(ctx, "jobs.failed",
		`UPDATE render_jobs
		 SET status=$2, error_message=$3, completed_at=NOW()
		 WHERE id=$1 AND status IN ($4, $5)`,
		id, models.StatusFailed, errorMessage,
		models.StatusQueued, models.StatusProcessing)
}

func (s *PG) SetRefundPending(ctx context.Context, id string, pending bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE render_jobs SET refund_pending=$2 WHERE id=$1`, id, pending)
	if err != nil {
		return errors.Wrap(err, "jobs.refund_pending", "update failed")
	}
	return nil
}

func (s *PG) ClearReservation(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE render_jobs SET credits_reserved=0, refund_pending=FALSE
		 WHERE id=$1`, id)
	if err != nil {
		return errors.Wrap(err, "jobs.clear_reservation", "update failed")
	}
	return nil
}

func (s *PG) transition(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, op, "transition update failed")
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*models.RenderJob, error) {
	var job models.RenderJob
	err := row.Scan(
		&job.ID, &job.OrgID, &job.UserID, &job.ProjectID,
		&job.RenderType, &job.Quality, &job.EngineParams,
		&job.Status, &job.Progress, &job.CreditsReserved,
		&job.EstimatedSeconds, &job.RefundPending,
		&job.OutputURL, &job.ErrorMessage,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
