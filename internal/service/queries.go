package service

import (
	"context"
	"fmt"

	"marketplace/internal/models"
)

//// Queries

// ListJobs returns jobs newest first. See models.JobFilter for defaults.
func (s *Service) ListJobs(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	if len(filter.Status) > 0 && !models.ValidJobStatus(filter.Status) {
		return nil, fmt.Errorf("service.Service.ListJobs: %w", models.Validationf("unknown job status: %s", filter.Status))
	}
	filter = filter.Normalized()

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	jobs, err := s.repo.GetJobs(ctx, filter)
	if err != nil {
		return nil, s.storeErr("ListJobs", err)
	}

	result := make([]models.Job, 0, len(jobs))
	for _, job := range jobs {
		job, err = s.reconciled(ctx, job)
		if err != nil {
			return nil, s.storeErr("ListJobs", err)
		}
		result = append(result, job)
	}
	return result, nil
}

func (s *Service) GetJob(ctx context.Context, jobId string) (models.Job, error) {
	if !validId(jobId) {
		return models.Job{}, fmt.Errorf("service.Service.GetJob: %s: %w", jobId, models.ErrNoJob)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	job, err := s.repo.GetJobByUUID(ctx, jobId)
	if err != nil {
		return job, s.storeErr("GetJob", err)
	}

	job, err = s.reconciled(ctx, job)
	if err != nil {
		return job, s.storeErr("GetJob", err)
	}
	return job, nil
}

func (s *Service) ListProposalsForJob(ctx context.Context, jobId string) ([]models.Proposal, error) {
	if !validId(jobId) {
		return nil, fmt.Errorf("service.Service.ListProposalsForJob: %s: %w", jobId, models.ErrNoJob)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	// check job exists
	_, err := s.repo.GetJobByUUID(ctx, jobId)
	if err != nil {
		return nil, s.storeErr("ListProposalsForJob", err)
	}

	proposals, err := s.repo.GetProposals(ctx, models.ProposalFilter{JobId: jobId})
	if err != nil {
		return nil, s.storeErr("ListProposalsForJob", err)
	}
	return proposals, nil
}

func (s *Service) ListProposalsByFreelancer(ctx context.Context, freelancerId string) ([]models.Proposal, error) {
	if len(freelancerId) == 0 {
		return nil, fmt.Errorf("service.Service.ListProposalsByFreelancer: %w", models.Validationf("freelancerId must not be blank"))
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	proposals, err := s.repo.GetProposals(ctx, models.ProposalFilter{FreelancerId: freelancerId})
	if err != nil {
		return nil, s.storeErr("ListProposalsByFreelancer", err)
	}
	return proposals, nil
}

func (s *Service) GetProposal(ctx context.Context, proposalId string) (models.Proposal, error) {
	if !validId(proposalId) {
		return models.Proposal{}, fmt.Errorf("service.Service.GetProposal: %s: %w", proposalId, models.ErrNoProposal)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	p, err := s.repo.GetProposalByUUID(ctx, proposalId)
	if err != nil {
		return p, s.storeErr("GetProposal", err)
	}
	return p, nil
}
