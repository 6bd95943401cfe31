package controller

import (
	"encoding/json"
	"fmt"
	"time"

	"marketplace/internal/models"
)

// New job request

type NewJobReq struct {
	ClientId    string    `json:"clientId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Budget      float64   `json:"budget"`
	Deadline    time.Time `json:"deadline"`
}

func ParseNewJobReq(data []byte) (*NewJobReq, error) {
	j := &NewJobReq{}

	err := json.Unmarshal(data, j)
	if err != nil {
		return nil, err
	}

	if err = checkLengthLimit(j.ClientId, "clientId", models.MaxIdLen); err != nil {
		return nil, err
	}
	if err = checkLengthLimit(j.Title, "title", models.MaxTitleLen); err != nil {
		return nil, err
	}
	if err = checkLengthLimit(j.Category, "category", models.MaxCategoryLen); err != nil {
		return nil, err
	}
	if err = checkLengthLimit(j.Description, "description", models.MaxDescriptionLen); err != nil {
		return nil, err
	}
	if j.Deadline.IsZero() {
		return nil, fmt.Errorf("field 'deadline' is required, RFC 3339 timestamp expected")
	}

	return j, nil
}

// New proposal request

type NewProposalReq struct {
	JobId        string  `json:"jobId"`
	FreelancerId string  `json:"freelancerId"`
	Price        float64 `json:"price"`
	DurationDays int     `json:"durationDays"`
	CoverLetter  string  `json:"coverLetter"`
}

func ParseNewProposalReq(data []byte) (*NewProposalReq, error) {
	p := &NewProposalReq{}

	err := json.Unmarshal(data, p)
	if err != nil {
		return nil, err
	}

	if err = checkLengthLimit(p.JobId, "jobId", models.MaxIdLen); err != nil {
		return nil, err
	}
	if err = checkLengthLimit(p.FreelancerId, "freelancerId", models.MaxIdLen); err != nil {
		return nil, err
	}
	if err = checkLengthLimit(p.CoverLetter, "coverLetter", models.MaxCoverLetterLen); err != nil {
		return nil, err
	}

	return p, nil
}

// User profile request

type UserReq struct {
	DisplayName string `json:"displayName"`
}

func ParseUserReq(data []byte) (*UserReq, error) {
	u := &UserReq{}

	err := json.Unmarshal(data, u)
	if err != nil {
		return nil, err
	}

	if err = checkLengthLimit(u.DisplayName, "displayName", models.MaxNameLen); err != nil {
		return nil, err
	}

	return u, nil
}

// Service

func checkLengthLimit(str, fieldName string, limit int) error {
	if len(str) > limit {
		return fmt.Errorf("field '%s' exceeds length limit: %d / %d", fieldName, len(str), limit)
	}
	return nil
}
