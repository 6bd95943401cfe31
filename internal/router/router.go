package router

import (
	"net/http"

	"marketplace/internal/controller"
)

func NewRouter(c *controller.Controller) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ping", c.Ping)
	mux.HandleFunc("GET /api/jobs", c.GetJobs)
	mux.HandleFunc("POST /api/jobs/new", c.NewJob)
	mux.HandleFunc("GET /api/jobs/{jobId}", c.GetJob)
	mux.HandleFunc("PUT /api/jobs/{jobId}/status", c.SetJobStatus)
	mux.HandleFunc("GET /api/jobs/{jobId}/proposals", c.JobProposals)
	mux.HandleFunc("POST /api/proposals/new", c.NewProposal)
	mux.HandleFunc("GET /api/proposals/my", c.MyProposals)
	mux.HandleFunc("GET /api/proposals/{proposalId}", c.GetProposal)
	mux.HandleFunc("PUT /api/proposals/{proposalId}/decision", c.ProposalDecision)
	mux.HandleFunc("PUT /api/proposals/{proposalId}/withdraw", c.WithdrawProposal)
	mux.HandleFunc("PUT /api/users/{userId}", c.PutUser)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("page not found"))
	})

	cors := http.NewServeMux()
	cors.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Accept", "*/*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
		} else {
			mux.ServeHTTP(w, r)
		}
	})

	return cors
}
