package models

import "time"

type ProposalStatus string

const (
	ProposalPending   ProposalStatus = "pending"
	ProposalAccepted  ProposalStatus = "accepted"
	ProposalRejected  ProposalStatus = "rejected"
	ProposalWithdrawn ProposalStatus = "withdrawn"
)

func ValidProposalStatus(s ProposalStatus) bool {
	switch s {
	case ProposalPending, ProposalAccepted, ProposalRejected, ProposalWithdrawn:
		return true
	default:
		return false
	}
}

// Every non-pending status is terminal.
func ProposalTransitionAllowed(from, to ProposalStatus) bool {
	if from != ProposalPending {
		return false
	}
	switch to {
	case ProposalAccepted, ProposalRejected, ProposalWithdrawn:
		return true
	default:
		return false
	}
}

type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

func ValidDecision(d Decision) bool {
	switch d {
	case DecisionAccept, DecisionReject:
		return true
	default:
		return false
	}
}

type Proposal struct {
	Id           string         `json:"id"`
	JobId        string         `json:"jobId"`
	FreelancerId string         `json:"freelancerId"`
	Price        float64        `json:"price"`
	DurationDays int            `json:"durationDays"`
	CoverLetter  string         `json:"coverLetter"`
	Status       ProposalStatus `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// ProposalFilter selects proposals by parent job and/or submitter.
type ProposalFilter struct {
	JobId        string
	FreelancerId string
	Status       ProposalStatus
	Limit        int
}

// DecisionResult is returned by a proposal decision. ConversationId is empty
// for rejections and when the conversation could not be opened.
type DecisionResult struct {
	Proposal       Proposal  `json:"proposal"`
	JobStatus      JobStatus `json:"jobStatus"`
	ConversationId string    `json:"conversationId,omitempty"`
}
