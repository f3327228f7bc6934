// Package handlers implements the HTTP endpoints of the analysis service.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/dvloznov/expense-insights/internal/api/middleware"
	"github.com/dvloznov/expense-insights/internal/classify"
	"github.com/dvloznov/expense-insights/internal/compliance"
	"github.com/dvloznov/expense-insights/internal/dispatch"
	"github.com/dvloznov/expense-insights/internal/domain"
	"github.com/dvloznov/expense-insights/internal/jobs"
	"github.com/dvloznov/expense-insights/internal/search"
	"github.com/dvloznov/expense-insights/internal/summary"
	"github.com/dvloznov/expense-insights/internal/tax"
)

// AnalysisHandler exposes the agents over HTTP.
type AnalysisHandler struct {
	dispatcher *dispatch.Dispatcher
	classifier *classify.Engine
	taxAgent   *tax.Agent
	compliance *compliance.Agent
	summarizer *summary.Agent
	log        zerolog.Logger
}

// NewAnalysisHandler creates the analysis handler.
func NewAnalysisHandler(
	dispatcher *dispatch.Dispatcher,
	classifier *classify.Engine,
	taxAgent *tax.Agent,
	complianceAgent *compliance.Agent,
	summarizer *summary.Agent,
	log zerolog.Logger,
) *AnalysisHandler {
	return &AnalysisHandler{
		dispatcher: dispatcher,
		classifier: classifier,
		taxAgent:   taxAgent,
		compliance: complianceAgent,
		summarizer: summarizer,
		log:        log,
	}
}

// Query handles POST /api/query: route a free-text question to the agents.
func (h *AnalysisHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query        string               `json:"query"`
		Transactions []domain.Transaction `json:"transactions"`
		Transaction  *domain.Transaction  `json:"transaction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Query == "" {
		middleware.WriteError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp := h.dispatcher.Route(r.Context(), dispatch.Request{
		Query:        req.Query,
		Transactions: req.Transactions,
		Transaction:  req.Transaction,
	})
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// Summarize handles POST /api/summarize. Rows are accepted loosely typed so
// upstream exports with string amounts still work.
func (h *AnalysisHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transactions []map[string]any `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	txs, err := summary.DecodeRows(req.Transactions)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report := h.summarizer.Summarize(r.Context(), txs)
	middleware.WriteJSON(w, http.StatusOK, report)
}

// Assess handles POST /api/assess: one transaction with optional peer
// context.
func (h *AnalysisHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transaction *domain.Transaction  `json:"transaction"`
		Peers       []domain.Transaction `json:"peers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Transaction == nil {
		middleware.WriteError(w, http.StatusBadRequest, "transaction is required")
		return
	}

	assessment := h.compliance.Assess(r.Context(), *req.Transaction, req.Peers)
	middleware.WriteJSON(w, http.StatusOK, assessment)
}

// Tax handles POST /api/tax.
func (h *AnalysisHandler) Tax(w http.ResponseWriter, r *http.Request) {
	tx, ok := decodeTransaction(w, r)
	if !ok {
		return
	}
	analysis := h.taxAgent.Analyze(r.Context(), tx)
	middleware.WriteJSON(w, http.StatusOK, analysis)
}

// Classify handles POST /api/classify.
func (h *AnalysisHandler) Classify(w http.ResponseWriter, r *http.Request) {
	tx, ok := decodeTransaction(w, r)
	if !ok {
		return
	}
	category := h.classifier.Classify(r.Context(), tx)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"category": string(category)})
}

func decodeTransaction(w http.ResponseWriter, r *http.Request) (domain.Transaction, bool) {
	var req struct {
		Transaction *domain.Transaction `json:"transaction"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return domain.Transaction{}, false
	}
	if req.Transaction == nil {
		middleware.WriteError(w, http.StatusBadRequest, "transaction is required")
		return domain.Transaction{}, false
	}
	return *req.Transaction, true
}

// AskHandler answers grounded questions over indexed receipts.
type AskHandler struct {
	answerer *search.Answerer
	log      zerolog.Logger
}

// NewAskHandler creates the ask handler.
func NewAskHandler(answerer *search.Answerer, log zerolog.Logger) *AskHandler {
	return &AskHandler{answerer: answerer, log: log}
}

// Ask handles POST /api/ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		K        int    `json:"k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Question == "" {
		middleware.WriteError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.answerer.Ask(r.Context(), req.Question, req.K)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to answer question")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to answer question")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, answer)
}

// JobsHandler exposes asynchronous batch analysis.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	log       zerolog.Logger
}

// NewJobsHandler creates the jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{publisher: publisher, store: store, log: log}
}

// Enqueue handles POST /api/jobs: start an asynchronous analysis run.
func (h *JobsHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var job jobs.AnalyzeBatchJob
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(job.Records) == 0 && len(job.Transactions) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "records or transactions are required")
		return
	}

	if err := h.publisher.PublishAnalyzeBatch(r.Context(), &job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analysis job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue analysis job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Msg("Analysis job enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
