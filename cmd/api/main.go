package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jmcabrera/pesowise/internal/advisor"
	"github.com/jmcabrera/pesowise/internal/api/handlers"
	"github.com/jmcabrera/pesowise/internal/api/middleware"
	"github.com/jmcabrera/pesowise/internal/cache"
	"github.com/jmcabrera/pesowise/internal/docvault"
	"github.com/jmcabrera/pesowise/internal/flow"
	"github.com/jmcabrera/pesowise/internal/jobs"
	"github.com/jmcabrera/pesowise/internal/jobs/inmemory"
	"github.com/jmcabrera/pesowise/internal/logger"
	"github.com/jmcabrera/pesowise/internal/service"
	"github.com/jmcabrera/pesowise/internal/store"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	var (
		port      = flag.String("port", envOr("PORT", "8080"), "HTTP server port")
		projectID = flag.String("project", os.Getenv("BQ_PROJECT"), "BigQuery project ID (or set BQ_PROJECT)")
		datasetID = flag.String("dataset", envOr("BQ_DATASET", "pesowise"), "BigQuery dataset (or set BQ_DATASET)")
		bucket    = flag.String("bucket", os.Getenv("GCS_BUCKET"), "GCS bucket for KYC documents (or set GCS_BUCKET)")
		redisAddr = flag.String("redis", os.Getenv("REDIS_ADDR"), "Redis address for the advisory cache (or set REDIS_ADDR)")
	)
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	// Storage backend.
	var st store.Store
	if *projectID != "" {
		bqStore, err := store.NewBigQueryStore(ctx, *projectID, *datasetID)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer bqStore.Close()
		st = bqStore
	} else {
		log.Warn().Msg("No BigQuery project configured - using in-memory store, data will not persist")
		st = store.NewMemory()
	}

	// Advisory cache.
	var advisoryCache cache.AdvisoryCache
	if *redisAddr != "" {
		redisCache, err := cache.NewRedis(*redisAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisCache.Close()
		advisoryCache = redisCache
	} else {
		log.Warn().Msg("No Redis configured - using in-memory advisory cache")
		advisoryCache = cache.NewMemory()
	}

	// Document vault.
	var vault docvault.Vault
	if *bucket != "" {
		vault = docvault.NewGCSVault(*bucket)
	} else {
		log.Warn().Msg("No GCS bucket configured - document uploads will be disabled")
	}

	svc := service.New(st, advisoryCache, log)
	runner := flow.NewRunner(st, advisor.New(advisor.NewGeminiModel(), log), advisoryCache, log)

	// Job infrastructure: refresh jobs recompute snapshots off the request
	// path, processed by an embedded worker.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job jobs.Job) error {
		refreshJob, ok := job.(*jobs.RefreshAnalysisJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", refreshJob.JobID).
			Str("user_id", refreshJob.UserID).
			Str("reason", refreshJob.Reason).
			Msg("Processing refresh job")

		snap, err := runner.Run(ctx, refreshJob.UserID)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", refreshJob.JobID).
				Str("user_id", refreshJob.UserID).
				Msg("Analysis run failed")
			return err
		}
		refreshJob.RunID = snap.RunID

		log.Info().
			Str("job_id", refreshJob.JobID).
			Str("run_id", snap.RunID).
			Msg("Analysis run completed")
		return nil
	}

	log.Info().Msg("Starting job workers")
	if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	// Handlers.
	dashboardHandler := handlers.NewDashboardHandler(runner, jobQueue, log)
	transactionsHandler := handlers.NewTransactionsHandler(svc, log)
	accountsHandler := handlers.NewAccountsHandler(svc, log)
	profileHandler := handlers.NewProfileHandler(svc, vault, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)

	// Router.
	mux := http.NewServeMux()

	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.GetDashboard(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.GetMetrics(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/compliance", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			dashboardHandler.GetCompliance(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/advisory/refresh", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			dashboardHandler.RefreshAdvisory(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			transactionsHandler.ListTransactions(w, r)
		case http.MethodPost:
			transactionsHandler.CreateTransaction(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			transactionID := strings.TrimPrefix(r.URL.Path, "/api/transactions/")
			if transactionID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Transaction ID is required")
				return
			}
			transactionsHandler.DeleteTransaction(w, r, transactionID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			accountsHandler.ListAccounts(w, r)
		case http.MethodPost:
			accountsHandler.CreateAccount(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			profileHandler.GetProfile(w, r)
		case http.MethodPut:
			profileHandler.SaveProfile(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/profile/documents/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut {
			docType := strings.TrimPrefix(r.URL.Path, "/api/profile/documents/")
			if docType == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Document type is required")
				return
			}
			profileHandler.UploadDocument(w, r, docType)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check stays outside Auth.
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Apply middleware. Auth wraps only the /api tree.
	apiHandler := middleware.Auth(mux)
	root := http.NewServeMux()
	root.Handle("/api/", apiHandler)
	root.Handle("/health", mux)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(root),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}

	log.Info().Msg("Server exited")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
