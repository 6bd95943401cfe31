package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/models"
)

// Repository is the Entity Store the service runs on. Conditional updates
// fail with a models.ErrConflict or models.ErrInvalidState kind when the
// stored status no longer matches, lookups fail with models.ErrNotFound.
type Repository interface {
	AddJob(ctx context.Context, job models.Job) (models.Job, error)
	GetJobs(ctx context.Context, filter models.JobFilter) ([]models.Job, error)
	GetJobByUUID(ctx context.Context, id string) (models.Job, error)
	UpdateJobStatus(ctx context.Context, id string, from, to models.JobStatus) (models.Job, error)
	ReconcileAcceptedJobs(ctx context.Context) (int64, error)

	AddProposal(ctx context.Context, p models.Proposal) (models.Proposal, error)
	GetProposals(ctx context.Context, filter models.ProposalFilter) ([]models.Proposal, error)
	GetProposalByUUID(ctx context.Context, id string) (models.Proposal, error)
	UpdateProposalStatus(ctx context.Context, id string, from, to models.ProposalStatus) (models.Proposal, error)
	AcceptProposal(ctx context.Context, proposalId, jobId string) (models.Proposal, models.Job, error)
	AcceptedProposal(ctx context.Context, jobId string) (models.Proposal, bool, error)

	UpsertUser(ctx context.Context, user models.User) (models.User, error)
	UserByUUID(ctx context.Context, id string) (models.User, bool, error)
}

// Notifier opens a communication channel between a client and the freelancer
// they hired. It returns the conversation id.
type Notifier interface {
	EnsureConversation(ctx context.Context, clientId, freelancerId, clientName, freelancerName string) (string, error)
}

const DefaultStoreTimeout = 5 * time.Second

type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	timeout  time.Duration
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		logger:  slog.Default(),
		now:     time.Now,
		timeout: DefaultStoreTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

//// Service

// storeContext bounds the store calls of one operation.
func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

var domainErrors = []error{
	models.ErrValidation,
	models.ErrNotFound,
	models.ErrForbidden,
	models.ErrInvalidState,
	models.ErrInvalidTransition,
	models.ErrConflict,
	models.ErrTransient,
}

// storeErr passes domain errors through and classifies everything else
// coming out of the store as transient.
func (s *Service) storeErr(op string, err error) error {
	for _, kind := range domainErrors {
		if errors.Is(err, kind) {
			return fmt.Errorf("service.Service.%s: %w", op, err)
		}
	}
	s.logger.Error("store failure", "op", op, "err", err)
	return fmt.Errorf("service.Service.%s: %w: %w", op, models.ErrTransient, err)
}

// effectiveStatus treats an open job that already has an accepted proposal
// as in progress.
func (s *Service) effectiveStatus(ctx context.Context, job models.Job) (models.JobStatus, error) {
	if job.Status != models.JobOpen {
		return job.Status, nil
	}

	_, accepted, err := s.repo.AcceptedProposal(ctx, job.Id)
	if err != nil {
		return job.Status, err
	}
	if accepted {
		s.logger.Warn("job is open behind an accepted proposal", "job", job.Id)
		return models.JobInProgress, nil
	}
	return job.Status, nil
}

func (s *Service) reconciled(ctx context.Context, job models.Job) (models.Job, error) {
	status, err := s.effectiveStatus(ctx, job)
	if err != nil {
		return job, err
	}
	job.Status = status
	return job, nil
}

// validId rejects ids that can not name a stored job or proposal.
func validId(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
