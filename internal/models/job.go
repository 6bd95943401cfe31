package models

import "time"

type JobStatus string

const (
	JobOpen       JobStatus = "open"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

func ValidJobStatus(s JobStatus) bool {
	switch s {
	case JobOpen, JobInProgress, JobCompleted, JobCancelled:
		return true
	default:
		return false
	}
}

// jobTransitions lists every allowed (current -> target) pair. Anything absent is rejected.
var jobTransitions = map[JobStatus][]JobStatus{
	JobOpen:       {JobInProgress, JobCancelled},
	JobInProgress: {JobCompleted, JobCancelled},
}

func JobTransitionAllowed(from, to JobStatus) bool {
	for _, s := range jobTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s JobStatus) Terminal() bool {
	return len(jobTransitions[s]) == 0
}

type Job struct {
	Id            string    `json:"id"`
	ClientId      string    `json:"clientId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Budget        float64   `json:"budget"`
	Deadline      time.Time `json:"deadline"`
	Status        JobStatus `json:"status"`
	ProposalCount int       `json:"proposalCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// JobFilter selects jobs for listing. When neither Status nor ClientId is set
// the listing defaults to open jobs, which is what freelancers browse.
// Limit <= 0 means no limit.
type JobFilter struct {
	ClientId string
	Category string
	Status   JobStatus
	Limit    int
}

const MaxListLimit = 100

// Normalized applies the browse default and clamps the limit.
func (f JobFilter) Normalized() JobFilter {
	if len(f.Status) == 0 && len(f.ClientId) == 0 {
		f.Status = JobOpen
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}
