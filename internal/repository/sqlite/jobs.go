package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"marketplace/internal/models"
)

const jobColumns = `id, client_id, title, description, category, budget, deadline, status, proposal_count, created_at, updated_at`

func scanJob(row scanner) (models.Job, error) {
	var job models.Job
	var status string
	err := row.Scan(&job.Id, &job.ClientId, &job.Title, &job.Description, &job.Category, &job.Budget, &job.Deadline, &status, &job.ProposalCount, &job.CreatedAt, &job.UpdatedAt)
	job.Status = models.JobStatus(status)
	return job, err
}

const acceptedExists = `EXISTS (SELECT 1 FROM proposals WHERE proposals.job_id = jobs.id AND proposals.status = 'accepted')`

// GetJobs lists jobs matching filter. Defaults are applied by the caller.
func (r *Repository) GetJobs(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	conditions := make([]string, 0, 3)
	params := make([]any, 0, 4)

	if len(filter.ClientId) > 0 {
		conditions = append(conditions, "client_id = ?")
		params = append(params, filter.ClientId)
	}
	if len(filter.Category) > 0 {
		conditions = append(conditions, "category = ?")
		params = append(params, filter.Category)
	}
	// open jobs with an accepted proposal count as in_progress
	switch filter.Status {
	case "":
	case models.JobOpen:
		conditions = append(conditions, "status = ? AND NOT "+acceptedExists)
		params = append(params, string(filter.Status))
	case models.JobInProgress:
		conditions = append(conditions, "(status = ? OR (status = 'open' AND "+acceptedExists+"))")
		params = append(params, string(filter.Status))
	default:
		conditions = append(conditions, "status = ?")
		params = append(params, string(filter.Status))
	}
	params = append(params, sqlLimit(filter.Limit))

	query := `SELECT ` + jobColumns + ` FROM jobs ` + where(conditions) + ` ORDER BY created_at DESC, id ASC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Repository.GetJobs: %w", err)
	}
	defer rows.Close()

	result := []models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite.Repository.GetJobs: row scan failed: %w", err)
		}
		result = append(result, job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.Repository.GetJobs: %w", err)
	}
	return result, nil
}

func (r *Repository) GetJobByUUID(ctx context.Context, id string) (models.Job, error) {
	return getJob(ctx, r.db, id)
}

func getJob(ctx context.Context, q queryer, id string) (models.Job, error) {
	job, err := scanJob(q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return job, fmt.Errorf("sqlite.Repository.GetJobByUUID: %s: %w", id, models.ErrNoJob)
	} else if err != nil {
		return job, fmt.Errorf("sqlite.Repository.GetJobByUUID: %w", err)
	}
	return job, nil
}

func (r *Repository) AddJob(ctx context.Context, job models.Job) (models.Job, error) {
	now := r.now()
	job.Id = uuid.NewString()
	job.Status = models.JobOpen
	job.ProposalCount = 0
	job.Deadline = job.Deadline.UTC()
	job.CreatedAt, job.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Id, job.ClientId, job.Title, job.Description, job.Category, job.Budget, job.Deadline, string(job.Status), job.ProposalCount, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return job, fmt.Errorf("sqlite.Repository.AddJob: %w", err)
	}
	return job, nil
}

// UpdateJobStatus fails with models.ErrStatusChanged when the stored status is no longer from.
func (r *Repository) UpdateJobStatus(ctx context.Context, id string, from, to models.JobStatus) (models.Job, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), r.now(), id, string(from),
	)
	if err != nil {
		return models.Job{}, fmt.Errorf("sqlite.Repository.UpdateJobStatus: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return models.Job{}, fmt.Errorf("sqlite.Repository.UpdateJobStatus: %w", err)
	}

	job, err := r.GetJobByUUID(ctx, id)
	if err != nil {
		return job, fmt.Errorf("sqlite.Repository.UpdateJobStatus: %w", err)
	}
	if n == 0 {
		return job, fmt.Errorf("sqlite.Repository.UpdateJobStatus: %s is no longer %s: %w", id, from, models.ErrStatusChanged)
	}
	return job, nil
}

func (r *Repository) ReconcileAcceptedJobs(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
	UPDATE jobs SET status = 'in_progress', updated_at = ?
	WHERE status = 'open' AND EXISTS (
		SELECT 1 FROM proposals WHERE proposals.job_id = jobs.id AND proposals.status = 'accepted'
	)`, r.now())
	if err != nil {
		return 0, fmt.Errorf("sqlite.Repository.ReconcileAcceptedJobs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite.Repository.ReconcileAcceptedJobs: %w", err)
	}
	return n, nil
}
