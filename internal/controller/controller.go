package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"marketplace/internal/models"
)

type Service interface {
	CreateJob(ctx context.Context, clientId, title, description, category string, budget float64, deadline time.Time) (models.Job, error)
	SetJobStatus(ctx context.Context, jobId string, status models.JobStatus, actingClientId string) (models.Job, error)
	ListJobs(ctx context.Context, filter models.JobFilter) ([]models.Job, error)
	GetJob(ctx context.Context, jobId string) (models.Job, error)

	SubmitProposal(ctx context.Context, jobId, freelancerId string, price float64, durationDays int, coverLetter string) (models.Proposal, error)
	DecideProposal(ctx context.Context, proposalId, actingClientId string, decision models.Decision) (models.DecisionResult, error)
	WithdrawProposal(ctx context.Context, proposalId, actingFreelancerId string) (models.Proposal, error)
	ListProposalsForJob(ctx context.Context, jobId string) ([]models.Proposal, error)
	ListProposalsByFreelancer(ctx context.Context, freelancerId string) ([]models.Proposal, error)
	GetProposal(ctx context.Context, proposalId string) (models.Proposal, error)

	UpsertUser(ctx context.Context, userId, displayName string) (models.User, error)
}

type Controller struct {
	service Service
	logger  *slog.Logger
}

func NewController(service Service, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{service: service, logger: logger}
}

// GET /api/ping
func (c *Controller) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

//// Jobs

// GET /api/jobs
func (c *Controller) GetJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit, err := c.getQueryInt(query, "limit")
	if err != nil || limit < 0 {
		c.errorResponse(w, http.StatusBadRequest, "invalid value of 'limit' query parameter: "+query.Get("limit"))
		return
	}

	status := models.JobStatus(query.Get("status"))
	if len(status) > 0 && !models.ValidJobStatus(status) {
		c.errorResponse(w, http.StatusBadRequest, "invalid job status supplied: "+string(status))
		return
	}

	jobs, err := c.service.ListJobs(r.Context(), models.JobFilter{
		ClientId: query.Get("clientId"),
		Category: query.Get("category"),
		Status:   status,
		Limit:    limit,
	})
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, jobs)
}

// POST /api/jobs/new
func (c *Controller) NewJob(w http.ResponseWriter, r *http.Request) {
	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseNewJobReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := c.service.CreateJob(r.Context(), req.ClientId, req.Title, req.Description, req.Category, req.Budget, req.Deadline)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, job)
}

// GET /api/jobs/{jobId}
func (c *Controller) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := c.service.GetJob(r.Context(), r.PathValue("jobId"))
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, job)
}

// PUT /api/jobs/{jobId}/status
func (c *Controller) SetJobStatus(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	clientId := query.Get("clientId")
	if len(clientId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty clientId supplied")
		return
	}

	status := models.JobStatus(query.Get("status"))
	if !models.ValidJobStatus(status) {
		c.errorResponse(w, http.StatusBadRequest, "empty or invalid status supplied")
		return
	}

	job, err := c.service.SetJobStatus(r.Context(), r.PathValue("jobId"), status, clientId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, job)
}

// GET /api/jobs/{jobId}/proposals
func (c *Controller) JobProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := c.service.ListProposalsForJob(r.Context(), r.PathValue("jobId"))
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, proposals)
}

//// Proposals

// POST /api/proposals/new
func (c *Controller) NewProposal(w http.ResponseWriter, r *http.Request) {
	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseNewProposalReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := c.service.SubmitProposal(r.Context(), req.JobId, req.FreelancerId, req.Price, req.DurationDays, req.CoverLetter)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, p)
}

// GET /api/proposals/my
func (c *Controller) MyProposals(w http.ResponseWriter, r *http.Request) {
	freelancerId := r.URL.Query().Get("freelancerId")
	if len(freelancerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty freelancerId supplied")
		return
	}

	proposals, err := c.service.ListProposalsByFreelancer(r.Context(), freelancerId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, proposals)
}

// GET /api/proposals/{proposalId}
func (c *Controller) GetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := c.service.GetProposal(r.Context(), r.PathValue("proposalId"))
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, p)
}

// PUT /api/proposals/{proposalId}/decision
func (c *Controller) ProposalDecision(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	clientId := query.Get("clientId")
	if len(clientId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty clientId supplied")
		return
	}

	decision := models.Decision(query.Get("decision"))
	if !models.ValidDecision(decision) {
		c.errorResponse(w, http.StatusBadRequest, "empty or invalid decision supplied, should be one of: accept, reject")
		return
	}

	result, err := c.service.DecideProposal(r.Context(), r.PathValue("proposalId"), clientId, decision)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, result)
}

// PUT /api/proposals/{proposalId}/withdraw
func (c *Controller) WithdrawProposal(w http.ResponseWriter, r *http.Request) {
	freelancerId := r.URL.Query().Get("freelancerId")
	if len(freelancerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty freelancerId supplied")
		return
	}

	p, err := c.service.WithdrawProposal(r.Context(), r.PathValue("proposalId"), freelancerId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, p)
}

//// Users

// PUT /api/users/{userId}
func (c *Controller) PutUser(w http.ResponseWriter, r *http.Request) {
	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseUserReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := c.service.UpsertUser(r.Context(), r.PathValue("userId"), req.DisplayName)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, user)
}

//// Service

type ErrorResponse struct {
	Reason string `json:"reason"`
}

func (c *Controller) getQueryInt(query url.Values, key string) (int, error) {
	strs, ok := query[key]
	if ok && len(strs) > 0 {
		return strconv.Atoi(strs[0])
	}
	return 0, nil
}

func (c *Controller) errorResponse(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	data, err := json.Marshal(ErrorResponse{Reason: text})
	if err != nil {
		c.logger.Error("controller.Controller.errorResponse", "err", err)
		return
	}

	_, err = w.Write(data)
	if err != nil {
		c.logger.Error("controller.Controller.errorResponse", "err", err)
		return
	}
}

func (c *Controller) serviceErrorResponse(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		c.errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNoJob):
		c.errorResponse(w, http.StatusNotFound, "requested job does not exist")
	case errors.Is(err, models.ErrNoProposal):
		c.errorResponse(w, http.StatusNotFound, "requested proposal does not exist")
	case errors.Is(err, models.ErrForbidden):
		c.errorResponse(w, http.StatusForbidden, "user have no permission for requested action")
	case errors.Is(err, models.ErrJobNotOpen):
		c.errorResponse(w, http.StatusUnprocessableEntity, "job is not open for proposals")
	case errors.Is(err, models.ErrJobFinalized):
		c.errorResponse(w, http.StatusUnprocessableEntity, "job is already completed or cancelled")
	case errors.Is(err, models.ErrNotPending):
		c.errorResponse(w, http.StatusUnprocessableEntity, "proposal is already decided or withdrawn, status cannot be changed")
	case errors.Is(err, models.ErrInvalidTransition):
		c.errorResponse(w, http.StatusUnprocessableEntity, "requested status transition is not allowed")
	case errors.Is(err, models.ErrAlreadyHired):
		c.errorResponse(w, http.StatusConflict, "another proposal of this job was already accepted, re-fetch the job")
	case errors.Is(err, models.ErrConflict):
		c.errorResponse(w, http.StatusConflict, "entity was changed concurrently, re-fetch and retry")
	case errors.Is(err, models.ErrTransient):
		w.Header().Set("Retry-After", "1")
		c.errorResponse(w, http.StatusServiceUnavailable, "storage is temporarily unavailable, retry later")
	default:
		c.logger.Error("controller: unexpected error", "err", err)
		c.errorResponse(w, http.StatusInternalServerError, "internal server error")
	}
}

func (c *Controller) marshalResponse(w http.ResponseWriter, data any) {
	d, err := json.Marshal(data)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not marshal response data")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(d)
	if err != nil {
		c.logger.Error("controller.Controller.marshalResponse", "err", err)
		return
	}
}

func (c *Controller) readBody(src io.ReadCloser) ([]byte, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	src.Close()
	return data, nil
}
