package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"marketplace/internal/models"
)

const proposalColumns = `id, job_id, freelancer_id, price, duration_days, cover_letter, status, created_at, updated_at`

func scanProposal(row scanner) (models.Proposal, error) {
	var p models.Proposal
	var status string
	err := row.Scan(&p.Id, &p.JobId, &p.FreelancerId, &p.Price, &p.DurationDays, &p.CoverLetter, &status, &p.CreatedAt, &p.UpdatedAt)
	p.Status = models.ProposalStatus(status)
	return p, err
}

// AddProposal stores a pending proposal and bumps the job's counter in one
// transaction, provided the job is open and nothing was accepted yet.
func (r *Repository) AddProposal(ctx context.Context, p models.Proposal) (models.Proposal, error) {
	now := r.now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return p, fmt.Errorf("sqlite.Repository.AddProposal: failed to start transaction: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
	UPDATE jobs SET proposal_count = proposal_count + 1, updated_at = ?
	WHERE id = ? AND status = 'open' AND NOT EXISTS (
		SELECT 1 FROM proposals WHERE proposals.job_id = jobs.id AND proposals.status = 'accepted'
	)`, now, p.JobId)
	if err != nil {
		return p, fmt.Errorf("sqlite.Repository.AddProposal: %w", wrapRollbackErr(tx, err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return p, fmt.Errorf("sqlite.Repository.AddProposal: %w", wrapRollbackErr(tx, err))
	}
	if n == 0 {
		_, err = getJob(ctx, tx, p.JobId)
		if err == nil {
			err = models.ErrJobNotOpen
		}
		return p, fmt.Errorf("sqlite.Repository.AddProposal: %w", wrapRollbackErr(tx, err))
	}

	p.Id = uuid.NewString()
	p.Status = models.ProposalPending
	p.CreatedAt, p.UpdatedAt = now, now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO proposals (`+proposalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Id, p.JobId, p.FreelancerId, p.Price, p.DurationDays, p.CoverLetter, string(p.Status), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return p, fmt.Errorf("sqlite.Repository.AddProposal: %w", wrapRollbackErr(tx, err))
	}

	err = tx.Commit()
	if err != nil {
		return p, fmt.Errorf("sqlite.Repository.AddProposal: failed to commit transaction: %w", err)
	}
	return p, nil
}

func (r *Repository) GetProposals(ctx context.Context, filter models.ProposalFilter) ([]models.Proposal, error) {
	conditions := make([]string, 0, 3)
	params := make([]any, 0, 4)

	if len(filter.JobId) > 0 {
		conditions = append(conditions, "job_id = ?")
		params = append(params, filter.JobId)
	}
	if len(filter.FreelancerId) > 0 {
		conditions = append(conditions, "freelancer_id = ?")
		params = append(params, filter.FreelancerId)
	}
	if len(filter.Status) > 0 {
		conditions = append(conditions, "status = ?")
		params = append(params, string(filter.Status))
	}
	params = append(params, sqlLimit(filter.Limit))

	query := `SELECT ` + proposalColumns + ` FROM proposals ` + where(conditions) + ` ORDER BY created_at DESC, id ASC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Repository.GetProposals: %w", err)
	}
	defer rows.Close()

	result := []models.Proposal{}
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite.Repository.GetProposals: row scan failed: %w", err)
		}
		result = append(result, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.Repository.GetProposals: %w", err)
	}
	return result, nil
}

func (r *Repository) GetProposalByUUID(ctx context.Context, id string) (models.Proposal, error) {
	return getProposal(ctx, r.db, id)
}

func getProposal(ctx context.Context, q queryer, id string) (models.Proposal, error) {
	p, err := scanProposal(q.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return p, fmt.Errorf("sqlite.Repository.GetProposalByUUID: %s: %w", id, models.ErrNoProposal)
	} else if err != nil {
		return p, fmt.Errorf("sqlite.Repository.GetProposalByUUID: %w", err)
	}
	return p, nil
}

func (r *Repository) AcceptedProposal(ctx context.Context, jobId string) (models.Proposal, bool, error) {
	proposals, err := r.GetProposals(ctx, models.ProposalFilter{JobId: jobId, Status: models.ProposalAccepted, Limit: 1})
	if err != nil {
		return models.Proposal{}, false, fmt.Errorf("sqlite.Repository.AcceptedProposal: %w", err)
	}
	if len(proposals) == 0 {
		return models.Proposal{}, false, nil
	}
	return proposals[0], true, nil
}

// UpdateProposalStatus fails with models.ErrNotPending when the stored status is no longer from.
func (r *Repository) UpdateProposalStatus(ctx context.Context, id string, from, to models.ProposalStatus) (models.Proposal, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Proposal{}, fmt.Errorf("sqlite.Repository.UpdateProposalStatus: failed to start transaction: %w", err)
	}

	p, err := r.updateProposalStatus(ctx, tx, id, from, to)
	if err != nil {
		return p, fmt.Errorf("sqlite.Repository.UpdateProposalStatus: %w", wrapRollbackErr(tx, err))
	}

	if err = tx.Commit(); err != nil {
		return p, fmt.Errorf("sqlite.Repository.UpdateProposalStatus: failed to commit transaction: %w", err)
	}
	return p, nil
}

func (r *Repository) updateProposalStatus(ctx context.Context, tx *sql.Tx, id string, from, to models.ProposalStatus) (models.Proposal, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE proposals SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), r.now(), id, string(from),
	)
	if isUniqueViolation(err) {
		return models.Proposal{}, models.ErrAlreadyHired
	} else if err != nil {
		return models.Proposal{}, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return models.Proposal{}, err
	}

	p, err := getProposal(ctx, tx, id)
	if err != nil {
		return p, err
	}
	if n == 0 {
		return p, models.ErrNotPending
	}
	return p, nil
}

// AcceptProposal accepts a pending proposal and moves an open job to
// in_progress in one transaction.
func (r *Repository) AcceptProposal(ctx context.Context, proposalId, jobId string) (models.Proposal, models.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Proposal{}, models.Job{}, fmt.Errorf("sqlite.Repository.AcceptProposal: failed to start transaction: %w", err)
	}

	job, err := getJob(ctx, tx, jobId)
	if err != nil {
		return models.Proposal{}, job, fmt.Errorf("sqlite.Repository.AcceptProposal: %w", wrapRollbackErr(tx, err))
	}
	if job.Status.Terminal() {
		return models.Proposal{}, job, fmt.Errorf("sqlite.Repository.AcceptProposal: %w", wrapRollbackErr(tx, models.ErrJobFinalized))
	}

	hired, err := exists(ctx, tx, `SELECT 1 FROM proposals WHERE job_id = ? AND status = 'accepted'`, jobId)
	if err != nil {
		return models.Proposal{}, job, fmt.Errorf("sqlite.Repository.AcceptProposal: %w", wrapRollbackErr(tx, err))
	}
	if hired {
		return models.Proposal{}, job, fmt.Errorf("sqlite.Repository.AcceptProposal: %w", wrapRollbackErr(tx, models.ErrAlreadyHired))
	}

	p, err := r.updateProposalStatus(ctx, tx, proposalId, models.ProposalPending, models.ProposalAccepted)
	if err != nil {
		return p, job, fmt.Errorf("sqlite.Repository.AcceptProposal: %w", wrapRollbackErr(tx, err))
	}
	if p.JobId != jobId {
		return p, job, fmt.Errorf("sqlite.Repository.AcceptProposal: proposal %s belongs to job %s: %w", p.Id, p.JobId, wrapRollbackErr(tx, models.ErrNoProposal))
	}

	if job.Status == models.JobOpen {
		_, err = tx.ExecContext(ctx, `UPDATE jobs SET status = 'in_progress', updated_at = ? WHERE id = ? AND status = 'open'`, r.now(), jobId)
		if err != nil {
			return p, job, fmt.Errorf("sqlite.Repository.AcceptProposal: %w", wrapRollbackErr(tx, err))
		}
		job, err = getJob(ctx, tx, jobId)
		if err != nil {
			return p, job, fmt.Errorf("sqlite.Repository.AcceptProposal: %w", wrapRollbackErr(tx, err))
		}
	}

	if err = tx.Commit(); err != nil {
		return p, job, fmt.Errorf("sqlite.Repository.AcceptProposal: failed to commit transaction: %w", err)
	}
	return p, job, nil
}
