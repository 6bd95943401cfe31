package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/models"
)

const jobColumns = `
		id,
		client_id,
		title,
		description,
		category,
		budget,
		deadline,
		status,
		proposal_count,
		created_at,
		updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (models.Job, error) {
	var job models.Job
	err := row.Scan(&job.Id, &job.ClientId, &job.Title, &job.Description, &job.Category, &job.Budget, &job.Deadline, &job.Status, &job.ProposalCount, &job.CreatedAt, &job.UpdatedAt)
	return job, err
}

const acceptedExists = `EXISTS (
		SELECT 1 FROM proposals WHERE proposals.job_id = jobs.id AND proposals.status = 'accepted'
	)`

func (repo *Repository) prepJobsQuery(filter models.JobFilter) (query string, queryParams []interface{}) {
	query = `
	SELECT` + jobColumns + `
	FROM jobs
	$conditions$
	ORDER BY created_at DESC, id ASC
	LIMIT $1
	`

	queryParams = make([]interface{}, 0, 4)
	conditions := make([]string, 0, 3)

	queryParams = append(queryParams, sqlLimit(filter.Limit))

	if len(filter.ClientId) > 0 {
		conditions = append(conditions, "client_id = $$")
		queryParams = append(queryParams, filter.ClientId)
	}

	if len(filter.Category) > 0 {
		conditions = append(conditions, "category = $$")
		queryParams = append(queryParams, filter.Category)
	}

	// open jobs with an accepted proposal count as in_progress
	switch filter.Status {
	case "":
	case models.JobOpen:
		conditions = append(conditions, "status = $$ AND NOT "+acceptedExists)
		queryParams = append(queryParams, filter.Status)
	case models.JobInProgress:
		conditions = append(conditions, "(status = $$ OR (status = 'open' AND "+acceptedExists+"))")
		queryParams = append(queryParams, filter.Status)
	default:
		conditions = append(conditions, "status = $$")
		queryParams = append(queryParams, filter.Status)
	}

	return applyConditions(query, conditions, 1), queryParams
}

// GetJobs lists jobs matching filter exactly as given. Defaults are applied by the caller.
func (repo *Repository) GetJobs(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	query, queryParams := repo.prepJobsQuery(filter)

	rows, err := repo.db.QueryContext(ctx, query, queryParams...)
	if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetJobs: %w", err)
	}
	defer rows.Close()

	result := []models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.GetJobs: row scan failed: %w", err)
		}
		result = append(result, job)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.Repository.GetJobs: %w", err)
	}

	return result, nil
}

func (repo *Repository) GetJobByUUID(ctx context.Context, id string) (models.Job, error) {
	return repo.getJob(ctx, repo.db, id, false)
}

func (repo *Repository) getJob(ctx context.Context, q queryer, id string, forUpdate bool) (models.Job, error) {
	query := `
	SELECT` + jobColumns + `
	FROM jobs
	WHERE id = $1
	`
	if forUpdate {
		query += "FOR UPDATE"
	}

	job, err := scanJob(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) || isMalformedId(err) {
		return job, fmt.Errorf("repository.Repository.GetJobByUUID: %s: %w", id, models.ErrNoJob)
	} else if err != nil {
		return job, fmt.Errorf("repository.Repository.GetJobByUUID: %w", err)
	}
	return job, nil
}

// AddJob stores a new job. Status and proposal count always start at open / 0.
func (repo *Repository) AddJob(ctx context.Context, job models.Job) (models.Job, error) {
	query := `
	INSERT INTO jobs
		(client_id, title, description, category, budget, deadline, status, proposal_count)
	VALUES
		($1, $2, $3, $4, $5, $6, 'open', 0)
	RETURNING
		id, status, proposal_count, created_at, updated_at
	`

	row := repo.db.QueryRowContext(ctx, query, job.ClientId, job.Title, job.Description, job.Category, job.Budget, job.Deadline)
	err := row.Scan(&job.Id, &job.Status, &job.ProposalCount, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return job, fmt.Errorf("repository.Repository.AddJob: %w", err)
	}

	return job, nil
}

// UpdateJobStatus moves the job from one status to another. It fails with
// models.ErrStatusChanged when the stored status is no longer from.
func (repo *Repository) UpdateJobStatus(ctx context.Context, id string, from, to models.JobStatus) (models.Job, error) {
	query := `
	UPDATE jobs
	SET (status, updated_at) = ($3, CURRENT_TIMESTAMP)
	WHERE id = $1 AND status = $2
	RETURNING` + jobColumns

	job, err := scanJob(repo.db.QueryRowContext(ctx, query, id, from, to))
	if errors.Is(err, sql.ErrNoRows) || isMalformedId(err) {
		// distinguish a lost race from a missing job
		if _, gerr := repo.GetJobByUUID(ctx, id); gerr != nil {
			return job, fmt.Errorf("repository.Repository.UpdateJobStatus: %w", gerr)
		}
		return job, fmt.Errorf("repository.Repository.UpdateJobStatus: %s is no longer %s: %w", id, from, models.ErrStatusChanged)
	} else if err != nil {
		return job, fmt.Errorf("repository.Repository.UpdateJobStatus: %w", err)
	}

	return job, nil
}

// ReconcileAcceptedJobs moves open jobs that already have an accepted proposal to in_progress.
func (repo *Repository) ReconcileAcceptedJobs(ctx context.Context) (int64, error) {
	query := `
	UPDATE jobs
	SET (status, updated_at) = ('in_progress', CURRENT_TIMESTAMP)
	WHERE status = 'open' AND EXISTS (
		SELECT 1 FROM proposals WHERE proposals.job_id = jobs.id AND proposals.status = 'accepted'
	)
	`

	res, err := repo.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("repository.Repository.ReconcileAcceptedJobs: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("repository.Repository.ReconcileAcceptedJobs: %w", err)
	}
	return n, nil
}
