package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"abode/internal/models"
	"abode/internal/pkg/errors"
)

// Memory implements Store in process memory with the same transition
// semantics as the PostgreSQL implementation. Used by dev mode and tests.
type Memory struct {
	mu   sync.Mutex
	jobs map[string]*models.RenderJob
}

func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]*models.RenderJob)}
}

func (s *Memory) Create(ctx context.Context, job *models.RenderJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return errors.AlreadyExists("job", job.ID)
	}
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *Memory) Get(ctx context.Context, id string) (*models.RenderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, errors.NotFound("job", id)
	}
	cp := *job
	return &cp, nil
}

func (s *Memory) ListByProject(ctx context.Context, projectID string) ([]models.RenderJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.RenderJob{}
	for _, job := range s.jobs {
		if job.ProjectID == projectID {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Memory) MarkProcessing(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != models.StatusQueued {
		return ErrConflict
	}
	now := time.Now().UTC()
	job.Status = models.StatusProcessing
	job.StartedAt = &now
	return nil
}

func (s *Memory) SetProgress(ctx context.Context, id string, progress int) error {
	if progress < 0 || progress > 100 {
		return errors.Validationf("progress out of range: %d", progress)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != models.StatusProcessing {
		return nil
	}
	job.Progress = progress
	return nil
}

func (s *Memory) MarkCompleted(ctx context.Context, id string, outputURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != models.StatusProcessing {
		return ErrConflict
	}
	now := time.Now().UTC()
	job.Status = models.StatusCompleted
	job.OutputURL = outputURL
	job.Progress = 100
	job.CompletedAt = &now
	return nil
}

func (s *Memory) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return ErrConflict
	}
	now := time.Now().UTC()
	job.Status = models.StatusFailed
	job.ErrorMessage = errorMessage
	job.CompletedAt = &now
	return nil
}

func (s *Memory) SetRefundPending(ctx context.Context, id string, pending bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[id]; ok {
		job.RefundPending = pending
	}
	return nil
}

func (s *Memory) ClearReservation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, ok := s.jobs[id]; ok {
		job.CreditsReserved = 0
		job.RefundPending = false
	}
	return nil
}
