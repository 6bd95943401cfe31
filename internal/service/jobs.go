package service

import (
	"context"
	"fmt"
	"time"

	"marketplace/internal/models"
)

//// Jobs

func (s *Service) CreateJob(ctx context.Context, clientId, title, description, category string, budget float64, deadline time.Time) (models.Job, error) {
	var err error
	job := models.Job{Budget: budget, Deadline: deadline}

	if job.ClientId, err = requireText("clientId", clientId, models.MaxIdLen); err != nil {
		return job, fmt.Errorf("service.Service.CreateJob: %w", err)
	}
	if job.Title, err = requireText("title", title, models.MaxTitleLen); err != nil {
		return job, fmt.Errorf("service.Service.CreateJob: %w", err)
	}
	if job.Description, err = requireText("description", description, models.MaxDescriptionLen); err != nil {
		return job, fmt.Errorf("service.Service.CreateJob: %w", err)
	}
	if job.Category, err = requireText("category", category, models.MaxCategoryLen); err != nil {
		return job, fmt.Errorf("service.Service.CreateJob: %w", err)
	}
	if job.Budget, err = requireAmount("budget", budget); err != nil {
		return job, fmt.Errorf("service.Service.CreateJob: %w", err)
	}
	if !deadline.After(s.now()) {
		return job, fmt.Errorf("service.Service.CreateJob: %w", models.Validationf("deadline must be in the future, got %s", deadline.Format(time.RFC3339)))
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	job, err = s.repo.AddJob(ctx, job)
	if err != nil {
		return job, s.storeErr("CreateJob", err)
	}

	s.logger.Debug("job created", "job", job.Id, "client", job.ClientId)
	return job, nil
}

func (s *Service) SetJobStatus(ctx context.Context, jobId string, status models.JobStatus, actingClientId string) (models.Job, error) {
	if !models.ValidJobStatus(status) {
		return models.Job{}, fmt.Errorf("service.Service.SetJobStatus: %w", models.Validationf("unknown job status: %s", status))
	}
	if len(actingClientId) == 0 {
		return models.Job{}, fmt.Errorf("service.Service.SetJobStatus: %w", models.Validationf("clientId must not be blank"))
	}
	if !validId(jobId) {
		return models.Job{}, fmt.Errorf("service.Service.SetJobStatus: %s: %w", jobId, models.ErrNoJob)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	// get job
	job, err := s.repo.GetJobByUUID(ctx, jobId)
	if err != nil {
		return job, s.storeErr("SetJobStatus", err)
	}

	// only the owning client may move the job
	if job.ClientId != actingClientId {
		return models.Job{}, fmt.Errorf("service.Service.SetJobStatus: %w: %s", models.ErrForbidden, actingClientId)
	}

	current, err := s.effectiveStatus(ctx, job)
	if err != nil {
		return job, s.storeErr("SetJobStatus", err)
	}
	if !models.JobTransitionAllowed(current, status) {
		return job, fmt.Errorf("service.Service.SetJobStatus: %s -> %s: %w", current, status, models.ErrInvalidTransition)
	}

	// write against the stored status, so a reconciled job gets repaired
	updated, err := s.repo.UpdateJobStatus(ctx, job.Id, job.Status, status)
	if err != nil {
		return job, s.storeErr("SetJobStatus", err)
	}

	s.logger.Debug("job status changed", "job", job.Id, "from", current, "to", updated.Status)
	return updated, nil
}

// Reconcile moves every open job that already has an accepted proposal to
// in_progress and returns how many were repaired.
func (s *Service) Reconcile(ctx context.Context) (int64, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	n, err := s.repo.ReconcileAcceptedJobs(ctx)
	if err != nil {
		return 0, s.storeErr("Reconcile", err)
	}

	if n > 0 {
		s.logger.Info("reconciled jobs", "count", n)
	}
	return n, nil
}
