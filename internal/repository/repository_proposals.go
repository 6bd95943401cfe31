package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketplace/internal/models"
)

const proposalColumns = `
		id,
		job_id,
		freelancer_id,
		price,
		duration_days,
		cover_letter,
		status,
		created_at,
		updated_at`

func scanProposal(row rowScanner) (models.Proposal, error) {
	var p models.Proposal
	err := row.Scan(&p.Id, &p.JobId, &p.FreelancerId, &p.Price, &p.DurationDays, &p.CoverLetter, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// AddProposal stores a pending proposal and bumps the parent job's counter in
// one transaction. The counter update doubles as the submission gate: it only
// matches an open job without an accepted proposal.
func (repo *Repository) AddProposal(ctx context.Context, p models.Proposal) (models.Proposal, error) {
	bump := `
	UPDATE jobs
	SET (proposal_count, updated_at) = (proposal_count + 1, CURRENT_TIMESTAMP)
	WHERE id = $1 AND status = 'open' AND NOT EXISTS (
		SELECT 1 FROM proposals WHERE proposals.job_id = jobs.id AND proposals.status = 'accepted'
	)
	`

	insert := `
	INSERT INTO proposals (job_id, freelancer_id, price, duration_days, cover_letter, status)
	VALUES
		($1, $2, $3, $4, $5, 'pending')
	RETURNING` + proposalColumns

	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return p, fmt.Errorf("repository.Repository.AddProposal: failed to start transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx, bump, p.JobId)
	if isMalformedId(err) {
		return p, fmt.Errorf("repository.Repository.AddProposal: %w", wrapRollbackErr(tx, models.ErrNoJob))
	} else if err != nil {
		return p, fmt.Errorf("repository.Repository.AddProposal: %w", wrapRollbackErr(tx, err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return p, fmt.Errorf("repository.Repository.AddProposal: %w", wrapRollbackErr(tx, err))
	}
	if n == 0 {
		_, err = repo.getJob(ctx, tx, p.JobId, false)
		if err == nil {
			err = models.ErrJobNotOpen
		}
		return p, fmt.Errorf("repository.Repository.AddProposal: %w", wrapRollbackErr(tx, err))
	}

	p, err = scanProposal(tx.QueryRowContext(ctx, insert, p.JobId, p.FreelancerId, p.Price, p.DurationDays, p.CoverLetter))
	if err != nil {
		return p, fmt.Errorf("repository.Repository.AddProposal: scan failed: %w", wrapRollbackErr(tx, err))
	}

	err = tx.Commit()
	if err != nil {
		return p, fmt.Errorf("repository.Repository.AddProposal: failed to commit transaction: %w", err)
	}

	return p, nil
}

func (repo *Repository) prepProposalsQuery(filter models.ProposalFilter) (query string, queryParams []interface{}) {
	query = `
	SELECT` + proposalColumns + `
	FROM proposals
	$conditions$
	ORDER BY created_at DESC, id ASC
	LIMIT $1
	`

	queryParams = make([]interface{}, 0, 4)
	conditions := make([]string, 0, 3)

	queryParams = append(queryParams, sqlLimit(filter.Limit))

	if len(filter.JobId) > 0 {
		queryParams = append(queryParams, filter.JobId)
		conditions = append(conditions, "job_id = $$")
	}
	if len(filter.FreelancerId) > 0 {
		queryParams = append(queryParams, filter.FreelancerId)
		conditions = append(conditions, "freelancer_id = $$")
	}
	if len(filter.Status) > 0 {
		queryParams = append(queryParams, filter.Status)
		conditions = append(conditions, "status = $$")
	}

	return applyConditions(query, conditions, 1), queryParams
}

func (repo *Repository) GetProposals(ctx context.Context, filter models.ProposalFilter) ([]models.Proposal, error) {
	query, params := repo.prepProposalsQuery(filter)

	rows, err := repo.db.QueryContext(ctx, query, params...)
	if isMalformedId(err) {
		return []models.Proposal{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("repository.Repository.GetProposals: %w", err)
	}
	defer rows.Close()

	result := []models.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.Repository.GetProposals: rows scan error: %w", err)
		}
		result = append(result, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.Repository.GetProposals: %w", err)
	}

	return result, nil
}

func (repo *Repository) GetProposalByUUID(ctx context.Context, id string) (models.Proposal, error) {
	query := `
	SELECT` + proposalColumns + `
	FROM proposals
	WHERE id = $1
	`

	p, err := scanProposal(repo.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) || isMalformedId(err) {
		return p, fmt.Errorf("repository.Repository.GetProposalByUUID: %s: %w", id, models.ErrNoProposal)
	} else if err != nil {
		return p, fmt.Errorf("repository.Repository.GetProposalByUUID: %w", err)
	}
	return p, nil
}

// AcceptedProposal returns the accepted proposal of a job, if any.
func (repo *Repository) AcceptedProposal(ctx context.Context, jobId string) (models.Proposal, bool, error) {
	proposals, err := repo.GetProposals(ctx, models.ProposalFilter{JobId: jobId, Status: models.ProposalAccepted, Limit: 1})
	if err != nil {
		return models.Proposal{}, false, fmt.Errorf("repository.Repository.AcceptedProposal: %w", err)
	}
	if len(proposals) == 0 {
		return models.Proposal{}, false, nil
	}
	return proposals[0], true, nil
}

// UpdateProposalStatus moves a proposal out of from. It fails with
// models.ErrNotPending when the stored status is no longer from.
func (repo *Repository) UpdateProposalStatus(ctx context.Context, id string, from, to models.ProposalStatus) (models.Proposal, error) {
	p, err := repo.updateProposalStatus(ctx, repo.db, id, from, to)
	if err != nil {
		return p, fmt.Errorf("repository.Repository.UpdateProposalStatus: %w", err)
	}
	return p, nil
}

func (repo *Repository) updateProposalStatus(ctx context.Context, q queryer, id string, from, to models.ProposalStatus) (models.Proposal, error) {
	query := `
	UPDATE proposals
	SET (status, updated_at) = ($3, CURRENT_TIMESTAMP)
	WHERE id = $1 AND status = $2
	RETURNING` + proposalColumns

	p, err := scanProposal(q.QueryRowContext(ctx, query, id, from, to))
	switch {
	case err == nil:
		return p, nil
	case isUniqueViolation(err, constraintOneAcceptance):
		return p, models.ErrAlreadyHired
	case errors.Is(err, sql.ErrNoRows):
		var exists bool
		row := q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM proposals WHERE id = $1)", id)
		if serr := row.Scan(&exists); serr != nil {
			return p, serr
		}
		if !exists {
			return p, models.ErrNoProposal
		}
		return p, models.ErrNotPending
	case isMalformedId(err):
		return p, models.ErrNoProposal
	}
	return p, err
}

// AcceptProposal accepts a pending proposal and moves its open job to
// in_progress in one transaction. The job row is locked first so concurrent
// accepts on the same job are serialized; the loser gets models.ErrAlreadyHired.
func (repo *Repository) AcceptProposal(ctx context.Context, proposalId, jobId string) (models.Proposal, models.Job, error) {
	tx, err := repo.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Proposal{}, models.Job{}, fmt.Errorf("repository.Repository.AcceptProposal: failed to start transaction: %w", err)
	}

	job, err := repo.getJob(ctx, tx, jobId, true)
	if err != nil {
		return models.Proposal{}, job, fmt.Errorf("repository.Repository.AcceptProposal: %w", wrapRollbackErr(tx, err))
	}
	if job.Status.Terminal() {
		return models.Proposal{}, job, fmt.Errorf("repository.Repository.AcceptProposal: %w", wrapRollbackErr(tx, models.ErrJobFinalized))
	}

	var hired bool
	row := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM proposals WHERE job_id = $1 AND status = 'accepted')", jobId)
	if err = row.Scan(&hired); err != nil {
		return models.Proposal{}, job, fmt.Errorf("repository.Repository.AcceptProposal: %w", wrapRollbackErr(tx, err))
	}
	if hired {
		return models.Proposal{}, job, fmt.Errorf("repository.Repository.AcceptProposal: %w", wrapRollbackErr(tx, models.ErrAlreadyHired))
	}

	p, err := repo.updateProposalStatus(ctx, tx, proposalId, models.ProposalPending, models.ProposalAccepted)
	if err != nil {
		return p, job, fmt.Errorf("repository.Repository.AcceptProposal: %w", wrapRollbackErr(tx, err))
	}
	if p.JobId != jobId {
		return p, job, fmt.Errorf("repository.Repository.AcceptProposal: proposal %s belongs to job %s: %w", p.Id, p.JobId, wrapRollbackErr(tx, models.ErrNoProposal))
	}

	if job.Status == models.JobOpen {
		query := `
		UPDATE jobs
		SET (status, updated_at) = ('in_progress', CURRENT_TIMESTAMP)
		WHERE id = $1 AND status = 'open'
		RETURNING` + jobColumns

		job, err = scanJob(tx.QueryRowContext(ctx, query, jobId))
		if err != nil {
			return p, job, fmt.Errorf("repository.Repository.AcceptProposal: %w", wrapRollbackErr(tx, err))
		}
	}

	err = tx.Commit()
	if isUniqueViolation(err, constraintOneAcceptance) {
		return p, job, fmt.Errorf("repository.Repository.AcceptProposal: %w", models.ErrAlreadyHired)
	} else if err != nil {
		return p, job, fmt.Errorf("repository.Repository.AcceptProposal: failed to commit transaction: %w", err)
	}

	return p, job, nil
}
