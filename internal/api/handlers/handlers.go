package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jmcabrera/pesowise/internal/api/middleware"
	"github.com/jmcabrera/pesowise/internal/docvault"
	"github.com/jmcabrera/pesowise/internal/domain"
	"github.com/jmcabrera/pesowise/internal/flow"
	"github.com/jmcabrera/pesowise/internal/jobs"
	"github.com/jmcabrera/pesowise/internal/service"
	"github.com/jmcabrera/pesowise/internal/store"
)

// DashboardHandler serves the computed analysis: metrics, compliance and
// the advisory.
type DashboardHandler struct {
	runner    *flow.Runner
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(runner *flow.Runner, publisher jobs.Publisher, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		runner:    runner,
		publisher: publisher,
		log:       log,
	}
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	snap, err := h.runner.Snapshot(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to build dashboard")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build dashboard")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, snap)
}

// GetMetrics handles GET /api/metrics
func (h *DashboardHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	snap, err := h.runner.Snapshot(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute metrics")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute metrics")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, snap.Metrics)
}

// GetCompliance handles GET /api/compliance
func (h *DashboardHandler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	snap, err := h.runner.Snapshot(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute compliance")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute compliance")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, snap.Compliance)
}

// RefreshAdvisory handles POST /api/advisory/refresh
func (h *DashboardHandler) RefreshAdvisory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	job := &jobs.RefreshAnalysisJob{
		UserID: userID,
		Reason: "api",
	}
	if err := h.publisher.PublishRefreshAnalysis(r.Context(), job); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to enqueue refresh job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue refresh job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("user_id", userID).Msg("Refresh job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	svc *service.FinanceService
	log zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *service.FinanceService, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		svc: svc,
		log: log,
	}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	txs, err := h.svc.Transactions(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	// Return array directly for frontend compatibility
	if txs == nil {
		txs = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, txs)
}

// CreateTransaction handles POST /api/transactions. The body is decoded
// through the tolerant decoder so malformed numerics degrade to zero rather
// than rejecting the request.
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.svc.CreateTransaction(r.Context(), userID, domain.DecodeTransaction(raw))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to create transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	userID := middleware.UserID(r.Context())

	if err := h.svc.DeleteTransaction(r.Context(), userID, transactionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Str("transaction_id", transactionID).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"transaction_id": transactionID,
		"status":         "deleted",
	})
}

// AccountsHandler handles bank account endpoints.
type AccountsHandler struct {
	svc *service.FinanceService
	log zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(svc *service.FinanceService, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		svc: svc,
		log: log,
	}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	accts, err := h.svc.BankAccounts(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	if accts == nil {
		accts = []domain.BankAccount{}
	}
	middleware.WriteJSON(w, http.StatusOK, accts)
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	acct, err := h.svc.CreateBankAccount(r.Context(), userID, domain.DecodeBankAccount(raw))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to create account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, acct)
}

// ProfileHandler handles profile and KYC document endpoints.
type ProfileHandler struct {
	svc   *service.FinanceService
	vault docvault.Vault
	log   zerolog.Logger
}

// NewProfileHandler creates a new profile handler. vault may be nil when no
// bucket is configured; document uploads are then disabled.
func NewProfileHandler(svc *service.FinanceService, vault docvault.Vault, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{
		svc:   svc,
		vault: vault,
		log:   log,
	}
}

// GetProfile handles GET /api/profile
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	p, err := h.svc.Profile(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, p)
}

// SaveProfile handles PUT /api/profile
func (h *ProfileHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	p := domain.DecodeProfile(raw)
	if p == nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.svc.SaveProfile(r.Context(), userID, *p); err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to save profile")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// UploadDocument handles POST /api/profile/documents/{type}. The request
// body is the document content; the filename comes from a query parameter.
func (h *ProfileHandler) UploadDocument(w http.ResponseWriter, r *http.Request, docType string) {
	userID := middleware.UserID(r.Context())

	if h.vault == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Document uploads are not configured")
		return
	}

	dt := domain.DocumentType(strings.ToUpper(docType))
	known := false
	for _, required := range domain.RequiredDocuments {
		if dt == required {
			known = true
			break
		}
	}
	if !known {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown document type")
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "document.pdf"
	}

	uri, err := h.vault.Upload(r.Context(), userID, dt, filename, r.Body)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Str("document_type", string(dt)).Msg("Failed to upload document")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload document")
		return
	}

	if err := h.svc.AttachDocument(r.Context(), userID, dt, uri); err != nil {
		if errors.Is(err, service.ErrValidation) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Str("document_type", string(dt)).Msg("Failed to attach document")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to attach document")
		return
	}

	h.log.Info().
		Str("user_id", userID).
		Str("document_type", string(dt)).
		Str("uri", uri).
		Msg("Document uploaded")

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"document_type": string(dt),
		"uri":           uri,
		"status":        "pending",
	})
}

// JobsHandler handles job-status endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: middleware.UserID(r.Context()),
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
