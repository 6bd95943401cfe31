package service

import (
	"context"
	"fmt"

	"marketplace/internal/models"
)

//// Proposals

func (s *Service) SubmitProposal(ctx context.Context, jobId, freelancerId string, price float64, durationDays int, coverLetter string) (models.Proposal, error) {
	var err error
	p := models.Proposal{JobId: jobId, Price: price, DurationDays: durationDays}

	if p.FreelancerId, err = requireText("freelancerId", freelancerId, models.MaxIdLen); err != nil {
		return p, fmt.Errorf("service.Service.SubmitProposal: %w", err)
	}
	if p.CoverLetter, err = requireText("coverLetter", coverLetter, models.MaxCoverLetterLen); err != nil {
		return p, fmt.Errorf("service.Service.SubmitProposal: %w", err)
	}
	if p.Price, err = requireAmount("price", price); err != nil {
		return p, fmt.Errorf("service.Service.SubmitProposal: %w", err)
	}
	if durationDays <= 0 {
		return p, fmt.Errorf("service.Service.SubmitProposal: %w", models.Validationf("durationDays must be greater than 0, got %d", durationDays))
	}
	if !validId(jobId) {
		return p, fmt.Errorf("service.Service.SubmitProposal: %s: %w", jobId, models.ErrNoJob)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	// get job
	job, err := s.repo.GetJobByUUID(ctx, jobId)
	if err != nil {
		return p, s.storeErr("SubmitProposal", err)
	}
	if job.ClientId == p.FreelancerId {
		return p, fmt.Errorf("service.Service.SubmitProposal: client can not bid on own job: %w", models.ErrForbidden)
	}

	// check job is still open
	status, err := s.effectiveStatus(ctx, job)
	if err != nil {
		return p, s.storeErr("SubmitProposal", err)
	}
	if status != models.JobOpen {
		return p, fmt.Errorf("service.Service.SubmitProposal: job is %s: %w", status, models.ErrJobNotOpen)
	}

	// store proposal, the store re-checks the job status while counting it
	p, err = s.repo.AddProposal(ctx, p)
	if err != nil {
		return p, s.storeErr("SubmitProposal", err)
	}

	s.logger.Debug("proposal submitted", "proposal", p.Id, "job", p.JobId, "freelancer", p.FreelancerId)
	return p, nil
}

func (s *Service) DecideProposal(ctx context.Context, proposalId, actingClientId string, decision models.Decision) (models.DecisionResult, error) {
	var result models.DecisionResult

	if !models.ValidDecision(decision) {
		return result, fmt.Errorf("service.Service.DecideProposal: %w", models.Validationf("unknown decision: %s, should be one of: %s, %s", decision, models.DecisionAccept, models.DecisionReject))
	}
	if len(actingClientId) == 0 {
		return result, fmt.Errorf("service.Service.DecideProposal: %w", models.Validationf("clientId must not be blank"))
	}
	if !validId(proposalId) {
		return result, fmt.Errorf("service.Service.DecideProposal: %s: %w", proposalId, models.ErrNoProposal)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	// find proposal and its job
	p, err := s.repo.GetProposalByUUID(storeCtx, proposalId)
	if err != nil {
		return result, s.storeErr("DecideProposal", err)
	}
	job, err := s.repo.GetJobByUUID(storeCtx, p.JobId)
	if err != nil {
		return result, s.storeErr("DecideProposal", err)
	}

	// check user's rights
	if job.ClientId != actingClientId {
		return result, fmt.Errorf("service.Service.DecideProposal: %w: %s", models.ErrForbidden, actingClientId)
	}

	// check proposal's status
	if p.Status != models.ProposalPending {
		return result, fmt.Errorf("service.Service.DecideProposal: proposal is %s: %w", p.Status, models.ErrNotPending)
	}

	if decision == models.DecisionReject {
		p, err = s.repo.UpdateProposalStatus(storeCtx, p.Id, models.ProposalPending, models.ProposalRejected)
		if err != nil {
			return result, s.storeErr("DecideProposal", err)
		}
		status, err := s.effectiveStatus(storeCtx, job)
		if err != nil {
			return result, s.storeErr("DecideProposal", err)
		}

		s.logger.Debug("proposal rejected", "proposal", p.Id, "job", job.Id)
		return models.DecisionResult{Proposal: p, JobStatus: status}, nil
	}

	// accept
	if job.Status.Terminal() {
		return result, fmt.Errorf("service.Service.DecideProposal: job is %s: %w", job.Status, models.ErrJobFinalized)
	}
	accepted, hired, err := s.repo.AcceptedProposal(storeCtx, job.Id)
	if err != nil {
		return result, s.storeErr("DecideProposal", err)
	}
	if hired {
		return result, fmt.Errorf("service.Service.DecideProposal: proposal %s was accepted before: %w", accepted.Id, models.ErrAlreadyHired)
	}

	p, job, err = s.repo.AcceptProposal(storeCtx, p.Id, job.Id)
	if err != nil {
		return result, s.storeErr("DecideProposal", err)
	}
	s.logger.Debug("proposal accepted", "proposal", p.Id, "job", job.Id, "jobStatus", job.Status)

	result = models.DecisionResult{Proposal: p, JobStatus: job.Status}
	result.ConversationId = s.openConversation(ctx, storeCtx, job.ClientId, p.FreelancerId)
	return result, nil
}

// openConversation calls the notifier once. Its failures never undo an
// acceptance, so they are only logged.
func (s *Service) openConversation(ctx, storeCtx context.Context, clientId, freelancerId string) string {
	if s.notifier == nil {
		return ""
	}

	clientName := s.displayName(storeCtx, clientId)
	freelancerName := s.displayName(storeCtx, freelancerId)

	id, err := s.notifier.EnsureConversation(ctx, clientId, freelancerId, clientName, freelancerName)
	if err != nil {
		s.logger.Warn("could not open conversation", "client", clientId, "freelancer", freelancerId, "conversation", id, "err", err)
	}
	return id
}

// displayName falls back to the raw id when no profile is stored.
func (s *Service) displayName(ctx context.Context, id string) string {
	user, ok, err := s.repo.UserByUUID(ctx, id)
	if err != nil {
		s.logger.Warn("could not load user profile", "user", id, "err", err)
		return id
	}
	if !ok || len(user.DisplayName) == 0 {
		return id
	}
	return user.DisplayName
}

func (s *Service) WithdrawProposal(ctx context.Context, proposalId, actingFreelancerId string) (models.Proposal, error) {
	if len(actingFreelancerId) == 0 {
		return models.Proposal{}, fmt.Errorf("service.Service.WithdrawProposal: %w", models.Validationf("freelancerId must not be blank"))
	}
	if !validId(proposalId) {
		return models.Proposal{}, fmt.Errorf("service.Service.WithdrawProposal: %s: %w", proposalId, models.ErrNoProposal)
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	p, err := s.repo.GetProposalByUUID(ctx, proposalId)
	if err != nil {
		return p, s.storeErr("WithdrawProposal", err)
	}
	if p.FreelancerId != actingFreelancerId {
		return models.Proposal{}, fmt.Errorf("service.Service.WithdrawProposal: %w: %s", models.ErrForbidden, actingFreelancerId)
	}
	if p.Status != models.ProposalPending {
		return p, fmt.Errorf("service.Service.WithdrawProposal: proposal is %s: %w", p.Status, models.ErrNotPending)
	}

	p, err = s.repo.UpdateProposalStatus(ctx, p.Id, models.ProposalPending, models.ProposalWithdrawn)
	if err != nil {
		return p, s.storeErr("WithdrawProposal", err)
	}

	s.logger.Debug("proposal withdrawn", "proposal", p.Id)
	return p, nil
}
