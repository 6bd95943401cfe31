package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"marketplace/internal/models"
	"marketplace/internal/repository/sqlite"
)

type call struct {
	clientId, freelancerId, clientName, freelancerName string
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (m *mockNotifier) EnsureConversation(ctx context.Context, clientId, freelancerId, clientName, freelancerName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call{clientId, freelancerId, clientName, freelancerName})
	if m.err != nil {
		return "", m.err
	}
	return "conv-" + clientId + "-" + freelancerId, nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func newTestService(t *testing.T, opts ...Option) (*Service, *sqlite.Repository, *mockNotifier) {
	t.Helper()
	repo, err := sqlite.New(filepath.Join(t.TempDir(), "service.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })

	notifier := &mockNotifier{}
	opts = append([]Option{
		WithNotifier(notifier),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return NewService(repo, opts...), repo, notifier
}

func createTestJob(t *testing.T, s *Service, clientId string) models.Job {
	t.Helper()
	job, err := s.CreateJob(context.Background(), clientId, gofakeit.JobTitle(), gofakeit.Sentence(10), "design", 5000, time.Now().Add(7*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	return job
}

func submitTestProposal(t *testing.T, s *Service, jobId string) models.Proposal {
	t.Helper()
	p, err := s.SubmitProposal(context.Background(), jobId, gofakeit.UUID(), 4500, 5, gofakeit.Sentence(15))
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestCreateJob(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s, _, _ := newTestService(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	future := now.Add(time.Hour)

	tests := []struct {
		name        string
		clientId    string
		title       string
		description string
		category    string
		budget      float64
		deadline    time.Time
		wantErr     error
	}{
		{name: "valid", clientId: "c1", title: "Logo", description: "A logo", category: "design", budget: 5000, deadline: future},
		{name: "blank client", clientId: " ", title: "Logo", description: "A logo", category: "design", budget: 5000, deadline: future, wantErr: models.ErrValidation},
		{name: "blank title", clientId: "c1", title: "", description: "A logo", category: "design", budget: 5000, deadline: future, wantErr: models.ErrValidation},
		{name: "blank description", clientId: "c1", title: "Logo", description: "\t", category: "design", budget: 5000, deadline: future, wantErr: models.ErrValidation},
		{name: "blank category", clientId: "c1", title: "Logo", description: "A logo", category: "", budget: 5000, deadline: future, wantErr: models.ErrValidation},
		{name: "zero budget", clientId: "c1", title: "Logo", description: "A logo", category: "design", budget: 0, deadline: future, wantErr: models.ErrValidation},
		{name: "negative budget", clientId: "c1", title: "Logo", description: "A logo", category: "design", budget: -1, deadline: future, wantErr: models.ErrValidation},
		{name: "budget below a cent", clientId: "c1", title: "Logo", description: "A logo", category: "design", budget: 0.001, deadline: future, wantErr: models.ErrValidation},
		{name: "budget too large", clientId: "c1", title: "Logo", description: "A logo", category: "design", budget: models.MaxAmount, deadline: future, wantErr: models.ErrValidation},
		{name: "deadline now", clientId: "c1", title: "Logo", description: "A logo", category: "design", budget: 5000, deadline: now, wantErr: models.ErrValidation},
		{name: "deadline past", clientId: "c1", title: "Logo", description: "A logo", category: "design", budget: 5000, deadline: now.Add(-time.Hour), wantErr: models.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := s.CreateJob(ctx, tt.clientId, tt.title, tt.description, tt.category, tt.budget, tt.deadline)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CreateJob() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if job.Id == "" || job.Status != models.JobOpen || job.ProposalCount != 0 {
				t.Errorf("CreateJob() = %+v, want stored open job with 0 proposals", job)
			}
		})
	}

	job, err := s.CreateJob(ctx, "c1", "Logo", "A logo", "design", 99.999, future)
	if err != nil {
		t.Fatal(err)
	}
	if job.Budget != 100 {
		t.Errorf("CreateJob() budget = %v, want rounded to 100", job.Budget)
	}
}

func TestSetJobStatusTransitions(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	// paths from open to each status
	paths := map[models.JobStatus][]models.JobStatus{
		models.JobOpen:       nil,
		models.JobInProgress: {models.JobInProgress},
		models.JobCompleted:  {models.JobInProgress, models.JobCompleted},
		models.JobCancelled:  {models.JobCancelled},
	}
	all := []models.JobStatus{models.JobOpen, models.JobInProgress, models.JobCompleted, models.JobCancelled}

	for _, from := range all {
		for _, to := range all {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				job := createTestJob(t, s, "client")
				for _, step := range paths[from] {
					if _, err := s.SetJobStatus(ctx, job.Id, step, "client"); err != nil {
						t.Fatal(err)
					}
				}

				got, err := s.SetJobStatus(ctx, job.Id, to, "client")
				if models.JobTransitionAllowed(from, to) {
					if err != nil {
						t.Fatalf("SetJobStatus() error = %v", err)
					}
					if got.Status != to {
						t.Errorf("SetJobStatus() status = %s, want %s", got.Status, to)
					}
					return
				}

				if !errors.Is(err, models.ErrInvalidTransition) {
					t.Errorf("SetJobStatus() error = %v, want %v", err, models.ErrInvalidTransition)
				}
				stored, err := s.GetJob(ctx, job.Id)
				if err != nil {
					t.Fatal(err)
				}
				if stored.Status != from {
					t.Errorf("status after rejected transition = %s, want %s", stored.Status, from)
				}
			})
		}
	}
}

func TestSetJobStatusErrors(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	job := createTestJob(t, s, "owner")

	_, err := s.SetJobStatus(ctx, job.Id, models.JobCancelled, "intruder")
	if !errors.Is(err, models.ErrForbidden) {
		t.Errorf("SetJobStatus() by non-owner error = %v, want %v", err, models.ErrForbidden)
	}
	stored, _ := s.GetJob(ctx, job.Id)
	if stored.Status != models.JobOpen {
		t.Errorf("status after forbidden call = %s, want open", stored.Status)
	}

	_, err = s.SetJobStatus(ctx, job.Id, "archived", "owner")
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("SetJobStatus() unknown status error = %v, want %v", err, models.ErrValidation)
	}

	for _, id := range []string{"not-a-uuid", gofakeit.UUID()} {
		_, err = s.SetJobStatus(ctx, id, models.JobCancelled, "owner")
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("SetJobStatus(%q) error = %v, want %v", id, err, models.ErrNotFound)
		}
	}
}

func TestScenario(t *testing.T) {
	s, _, notifier := newTestService(t)
	ctx := context.Background()

	job, err := s.CreateJob(ctx, "client", "Landing page", "Build a landing page", "web", 5000, time.Now().Add(7*24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobOpen || job.ProposalCount != 0 {
		t.Fatalf("new job = %s/%d, want open/0", job.Status, job.ProposalCount)
	}

	p, err := s.SubmitProposal(ctx, job.Id, "freelancer-1", 4500, 5, "I can do it")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.ProposalPending {
		t.Errorf("proposal status = %s, want pending", p.Status)
	}
	job, _ = s.GetJob(ctx, job.Id)
	if job.ProposalCount != 1 {
		t.Errorf("ProposalCount = %d, want 1", job.ProposalCount)
	}

	res, err := s.DecideProposal(ctx, p.Id, "client", models.DecisionAccept)
	if err != nil {
		t.Fatal(err)
	}
	if res.Proposal.Status != models.ProposalAccepted || res.JobStatus != models.JobInProgress {
		t.Errorf("DecideProposal() = %s/%s, want accepted/in_progress", res.Proposal.Status, res.JobStatus)
	}
	if res.ConversationId == "" {
		t.Error("DecideProposal() returned no conversation id")
	}
	if notifier.count() != 1 {
		t.Errorf("hook called %d times, want 1", notifier.count())
	}

	_, err = s.SubmitProposal(ctx, job.Id, "freelancer-2", 4000, 4, "Me too")
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("SubmitProposal() on in_progress job error = %v, want %v", err, models.ErrInvalidState)
	}
}

func TestSubmitProposalErrors(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	job := createTestJob(t, s, "client")

	tests := []struct {
		name         string
		jobId        string
		freelancerId string
		price        float64
		duration     int
		coverLetter  string
		wantErr      error
	}{
		{name: "empty cover letter", jobId: job.Id, freelancerId: "f", price: 10, duration: 1, coverLetter: "  ", wantErr: models.ErrValidation},
		{name: "zero price", jobId: job.Id, freelancerId: "f", price: 0, duration: 1, coverLetter: "hi", wantErr: models.ErrValidation},
		{name: "price below a cent", jobId: job.Id, freelancerId: "f", price: 0.004, duration: 1, coverLetter: "hi", wantErr: models.ErrValidation},
		{name: "zero duration", jobId: job.Id, freelancerId: "f", price: 10, duration: 0, coverLetter: "hi", wantErr: models.ErrValidation},
		{name: "blank freelancer", jobId: job.Id, freelancerId: "", price: 10, duration: 1, coverLetter: "hi", wantErr: models.ErrValidation},
		{name: "unknown job", jobId: gofakeit.UUID(), freelancerId: "f", price: 10, duration: 1, coverLetter: "hi", wantErr: models.ErrNotFound},
		{name: "own job", jobId: job.Id, freelancerId: "client", price: 10, duration: 1, coverLetter: "hi", wantErr: models.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SubmitProposal(ctx, tt.jobId, tt.freelancerId, tt.price, tt.duration, tt.coverLetter)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("SubmitProposal() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	job, _ = s.GetJob(ctx, job.Id)
	if job.ProposalCount != 0 {
		t.Errorf("ProposalCount after failed submissions = %d, want 0", job.ProposalCount)
	}
}

func TestSubmitProposalConcurrent(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	job := createTestJob(t, s, "client")

	const n = 30
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.SubmitProposal(ctx, job.Id, gofakeit.UUID(), 100, 2, "concurrent")
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			t.Errorf("SubmitProposal() error = %v", err)
		}
	}

	job, err := s.GetJob(ctx, job.Id)
	if err != nil {
		t.Fatal(err)
	}
	if job.ProposalCount != n {
		t.Errorf("ProposalCount = %d, want %d", job.ProposalCount, n)
	}
}

func TestDecideProposalConcurrentAccept(t *testing.T) {
	s, _, notifier := newTestService(t)
	ctx := context.Background()
	job := createTestJob(t, s, "client")
	first := submitTestProposal(t, s, job.Id)
	second := submitTestProposal(t, s, job.Id)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for _, id := range []string{first.Id, second.Id} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := s.DecideProposal(ctx, id, "client", models.DecisionAccept)
			errCh <- err
		}(id)
	}
	wg.Wait()
	close(errCh)

	var won, conflicts int
	for err := range errCh {
		switch {
		case err == nil:
			won++
		case errors.Is(err, models.ErrConflict):
			conflicts++
		default:
			t.Errorf("DecideProposal() unexpected error = %v", err)
		}
	}
	if won != 1 || conflicts != 1 {
		t.Errorf("got %d accepted / %d conflicts, want 1 / 1", won, conflicts)
	}

	accepted, err := s.repo.GetProposals(ctx, models.ProposalFilter{JobId: job.Id, Status: models.ProposalAccepted})
	if err != nil {
		t.Fatal(err)
	}
	if len(accepted) != 1 {
		t.Errorf("accepted proposals = %d, want 1", len(accepted))
	}
	if notifier.count() != 1 {
		t.Errorf("hook called %d times, want 1", notifier.count())
	}
}

func TestDecideProposal(t *testing.T) {
	s, _, notifier := newTestService(t)
	ctx := context.Background()
	job := createTestJob(t, s, "client")
	first := submitTestProposal(t, s, job.Id)
	second := submitTestProposal(t, s, job.Id)
	third := submitTestProposal(t, s, job.Id)

	t.Run("validation", func(t *testing.T) {
		_, err := s.DecideProposal(ctx, first.Id, "client", "maybe")
		if !errors.Is(err, models.ErrValidation) {
			t.Errorf("DecideProposal() error = %v, want %v", err, models.ErrValidation)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.DecideProposal(ctx, gofakeit.UUID(), "client", models.DecisionAccept)
		if !errors.Is(err, models.ErrNotFound) {
			t.Errorf("DecideProposal() error = %v, want %v", err, models.ErrNotFound)
		}
	})

	t.Run("non-owner", func(t *testing.T) {
		_, err := s.DecideProposal(ctx, first.Id, "other", models.DecisionAccept)
		if !errors.Is(err, models.ErrForbidden) {
			t.Errorf("DecideProposal() error = %v, want %v", err, models.ErrForbidden)
		}
	})

	t.Run("reject", func(t *testing.T) {
		res, err := s.DecideProposal(ctx, first.Id, "client", models.DecisionReject)
		if err != nil {
			t.Fatal(err)
		}
		if res.Proposal.Status != models.ProposalRejected || res.JobStatus != models.JobOpen {
			t.Errorf("DecideProposal() = %s/%s, want rejected/open", res.Proposal.Status, res.JobStatus)
		}
		sibling, _ := s.GetProposal(ctx, second.Id)
		if sibling.Status != models.ProposalPending {
			t.Errorf("sibling status = %s, want pending", sibling.Status)
		}
		stored, _ := s.GetJob(ctx, job.Id)
		if stored.ProposalCount != 3 {
			t.Errorf("ProposalCount = %d, want 3", stored.ProposalCount)
		}
	})

	t.Run("accept", func(t *testing.T) {
		_, err := s.DecideProposal(ctx, second.Id, "client", models.DecisionAccept)
		if err != nil {
			t.Fatal(err)
		}
	})

	t.Run("accept twice", func(t *testing.T) {
		_, err := s.DecideProposal(ctx, second.Id, "client", models.DecisionAccept)
		if !errors.Is(err, models.ErrInvalidState) {
			t.Errorf("DecideProposal() error = %v, want %v", err, models.ErrInvalidState)
		}
		if notifier.count() != 1 {
			t.Errorf("hook called %d times, want 1", notifier.count())
		}
	})

	t.Run("accept sibling", func(t *testing.T) {
		_, err := s.DecideProposal(ctx, third.Id, "client", models.DecisionAccept)
		if !errors.Is(err, models.ErrConflict) {
			t.Errorf("DecideProposal() error = %v, want %v", err, models.ErrConflict)
		}
	})

	t.Run("accept on finalized job", func(t *testing.T) {
		other := createTestJob(t, s, "client")
		p := submitTestProposal(t, s, other.Id)
		if _, err := s.SetJobStatus(ctx, other.Id, models.JobCancelled, "client"); err != nil {
			t.Fatal(err)
		}
		_, err := s.DecideProposal(ctx, p.Id, "client", models.DecisionAccept)
		if !errors.Is(err, models.ErrInvalidState) {
			t.Errorf("DecideProposal() error = %v, want %v", err, models.ErrInvalidState)
		}
	})
}

func TestDecideProposalHookFailure(t *testing.T) {
	s, _, notifier := newTestService(t)
	notifier.err = errors.New("chat unavailable")
	ctx := context.Background()
	job := createTestJob(t, s, "client")
	p := submitTestProposal(t, s, job.Id)

	res, err := s.DecideProposal(ctx, p.Id, "client", models.DecisionAccept)
	if err != nil {
		t.Fatalf("DecideProposal() error = %v, want hook failure suppressed", err)
	}
	if res.Proposal.Status != models.ProposalAccepted || res.ConversationId != "" {
		t.Errorf("DecideProposal() = %+v", res)
	}
	if notifier.count() != 1 {
		t.Errorf("hook called %d times, want 1", notifier.count())
	}
}

func TestDecideProposalDisplayNames(t *testing.T) {
	s, _, notifier := newTestService(t)
	ctx := context.Background()
	if _, err := s.UpsertUser(ctx, "client", "Carol Client"); err != nil {
		t.Fatal(err)
	}
	job := createTestJob(t, s, "client")
	p, err := s.SubmitProposal(ctx, job.Id, "anon", 10, 1, "hello")
	if err != nil {
		t.Fatal(err)
	}

	if _, err = s.DecideProposal(ctx, p.Id, "client", models.DecisionAccept); err != nil {
		t.Fatal(err)
	}

	got := notifier.calls[0]
	want := call{clientId: "client", freelancerId: "anon", clientName: "Carol Client", freelancerName: "anon"}
	if got != want {
		t.Errorf("hook called with %+v, want %+v", got, want)
	}
}

func TestWithdrawProposal(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	job := createTestJob(t, s, "client")
	p, err := s.SubmitProposal(ctx, job.Id, "freelancer", 10, 1, "hello")
	if err != nil {
		t.Fatal(err)
	}

	_, err = s.WithdrawProposal(ctx, p.Id, "someone-else")
	if !errors.Is(err, models.ErrForbidden) {
		t.Errorf("WithdrawProposal() error = %v, want %v", err, models.ErrForbidden)
	}

	p, err = s.WithdrawProposal(ctx, p.Id, "freelancer")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != models.ProposalWithdrawn {
		t.Errorf("status = %s, want withdrawn", p.Status)
	}

	_, err = s.WithdrawProposal(ctx, p.Id, "freelancer")
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("WithdrawProposal() twice error = %v, want %v", err, models.ErrInvalidState)
	}

	_, err = s.DecideProposal(ctx, p.Id, "client", models.DecisionAccept)
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("DecideProposal() on withdrawn error = %v, want %v", err, models.ErrInvalidState)
	}

	job, _ = s.GetJob(ctx, job.Id)
	if job.ProposalCount != 1 {
		t.Errorf("ProposalCount = %d, want 1", job.ProposalCount)
	}
}

func TestReconciliation(t *testing.T) {
	s, repo, _ := newTestService(t)
	ctx := context.Background()
	job := createTestJob(t, s, "client")
	p := submitTestProposal(t, s, job.Id)

	// accepted proposal without the job transition
	if _, err := repo.UpdateProposalStatus(ctx, p.Id, models.ProposalPending, models.ProposalAccepted); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetJob(ctx, job.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.JobInProgress {
		t.Errorf("GetJob() status = %s, want in_progress", got.Status)
	}

	open, err := s.ListJobs(ctx, models.JobFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 0 {
		t.Errorf("ListJobs() returned %d open jobs, want 0", len(open))
	}

	hired, err := s.ListJobs(ctx, models.JobFilter{Status: models.JobInProgress})
	if err != nil {
		t.Fatal(err)
	}
	if len(hired) != 1 || hired[0].Id != job.Id || hired[0].Status != models.JobInProgress {
		t.Errorf("ListJobs(in_progress) = %+v, want the hired job", hired)
	}

	// the hired job must not take a slot of a limited open listing
	fresh := createTestJob(t, s, "client")
	open, err = s.ListJobs(ctx, models.JobFilter{Status: models.JobOpen, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(open) != 1 || open[0].Id != fresh.Id {
		t.Errorf("ListJobs(open, limit 1) = %+v, want %s", open, fresh.Id)
	}

	_, err = s.SubmitProposal(ctx, job.Id, "late", 10, 1, "hello")
	if !errors.Is(err, models.ErrInvalidState) {
		t.Errorf("SubmitProposal() error = %v, want %v", err, models.ErrInvalidState)
	}

	_, err = s.SetJobStatus(ctx, job.Id, models.JobInProgress, "client")
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("SetJobStatus(in_progress) error = %v, want %v", err, models.ErrInvalidTransition)
	}

	n, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Reconcile() = %d, want 1", n)
	}

	completed, err := s.SetJobStatus(ctx, job.Id, models.JobCompleted, "client")
	if err != nil {
		t.Fatal(err)
	}
	if completed.Status != models.JobCompleted {
		t.Errorf("SetJobStatus() status = %s, want completed", completed.Status)
	}
}

func TestListJobs(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	var created []models.Job
	for i := 0; i < 3; i++ {
		created = append(created, createTestJob(t, s, "client-a"))
	}
	cancelled := createTestJob(t, s, "client-b")
	if _, err := s.SetJobStatus(ctx, cancelled.Id, models.JobCancelled, "client-b"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		filter  models.JobFilter
		want    int
		wantErr error
	}{
		{name: "default is open", filter: models.JobFilter{}, want: 3},
		{name: "by client sees all statuses", filter: models.JobFilter{ClientId: "client-b"}, want: 1},
		{name: "cancelled", filter: models.JobFilter{Status: models.JobCancelled}, want: 1},
		{name: "limit", filter: models.JobFilter{Limit: 2}, want: 2},
		{name: "category", filter: models.JobFilter{Category: "writing"}, want: 0},
		{name: "unknown status", filter: models.JobFilter{Status: "archived"}, wantErr: models.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := s.ListJobs(ctx, tt.filter)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ListJobs() error = %v, want %v", err, tt.wantErr)
			}
			if len(jobs) != tt.want {
				t.Errorf("ListJobs() len = %d, want %d", len(jobs), tt.want)
			}
		})
	}

	jobs, _ := s.ListJobs(ctx, models.JobFilter{ClientId: "client-a"})
	for i := 1; i < len(jobs); i++ {
		prev, cur := jobs[i-1], jobs[i]
		if prev.CreatedAt.Before(cur.CreatedAt) || (prev.CreatedAt.Equal(cur.CreatedAt) && prev.Id > cur.Id) {
			t.Errorf("ListJobs() not ordered by createdAt desc, id asc")
		}
	}
}

func TestListProposals(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()
	job := createTestJob(t, s, "client")
	other := createTestJob(t, s, "client")

	for _, jobId := range []string{job.Id, job.Id, other.Id} {
		if _, err := s.SubmitProposal(ctx, jobId, "freelancer", 10, 1, "hello"); err != nil {
			t.Fatal(err)
		}
	}

	forJob, err := s.ListProposalsForJob(ctx, job.Id)
	if err != nil {
		t.Fatal(err)
	}
	if len(forJob) != 2 {
		t.Errorf("ListProposalsForJob() len = %d, want 2", len(forJob))
	}
	checkProposalOrder(t, "ListProposalsForJob", forJob)

	mine, err := s.ListProposalsByFreelancer(ctx, "freelancer")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 3 {
		t.Errorf("ListProposalsByFreelancer() len = %d, want 3", len(mine))
	}
	checkProposalOrder(t, "ListProposalsByFreelancer", mine)
	if len(mine) == 3 && mine[0].JobId != other.Id {
		t.Errorf("ListProposalsByFreelancer() first = %s, want the newest proposal on %s", mine[0].Id, other.Id)
	}

	_, err = s.ListProposalsForJob(ctx, gofakeit.UUID())
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("ListProposalsForJob() error = %v, want %v", err, models.ErrNotFound)
	}

	_, err = s.GetProposal(ctx, "nope")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("GetProposal() error = %v, want %v", err, models.ErrNotFound)
	}
}

func checkProposalOrder(t *testing.T, name string, proposals []models.Proposal) {
	t.Helper()
	for i := 1; i < len(proposals); i++ {
		prev, cur := proposals[i-1], proposals[i]
		if prev.CreatedAt.Before(cur.CreatedAt) || (prev.CreatedAt.Equal(cur.CreatedAt) && prev.Id > cur.Id) {
			t.Errorf("%s() not ordered by createdAt desc, id asc", name)
		}
	}
}

func TestTransientErrors(t *testing.T) {
	s, repo, _ := newTestService(t)
	ctx := context.Background()
	job := createTestJob(t, s, "client")

	repo.Close()

	_, err := s.GetJob(ctx, job.Id)
	if !errors.Is(err, models.ErrTransient) || !models.Retryable(err) {
		t.Errorf("GetJob() on closed store error = %v, want %v", err, models.ErrTransient)
	}

	_, err = s.SubmitProposal(ctx, job.Id, "freelancer", 10, 1, "hello")
	if !errors.Is(err, models.ErrTransient) {
		t.Errorf("SubmitProposal() on closed store error = %v, want %v", err, models.ErrTransient)
	}
}
