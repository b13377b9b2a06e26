// Package flow runs the end-to-end analysis pipeline for one user: fetch
// inputs, compute metrics and compliance, generate the advisory, persist
// the audit trail and cache the result.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"

	"github.com/jmcabrera/pesowise/internal/advisor"
	"github.com/jmcabrera/pesowise/internal/cache"
	"github.com/jmcabrera/pesowise/internal/compliance"
	"github.com/jmcabrera/pesowise/internal/domain"
	"github.com/jmcabrera/pesowise/internal/metrics"
	"github.com/jmcabrera/pesowise/internal/store"
)

// Snapshot is one complete dashboard payload. It is what gets cached and
// what the API returns.
type Snapshot struct {
	RunID       string            `json:"runId"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Metrics     metrics.Metrics   `json:"metrics"`
	Compliance  compliance.Report `json:"compliance"`
	Advisory    *advisor.Advisory `json:"advisory"`
}

// Runner executes analysis runs.
type Runner struct {
	store   store.Store
	advisor *advisor.Advisor
	cache   cache.AdvisoryCache
	ttl     time.Duration
	log     zerolog.Logger
}

// NewRunner wires a Runner. The cache may be nil; runs then always compute.
func NewRunner(st store.Store, adv *advisor.Advisor, c cache.AdvisoryCache, log zerolog.Logger) *Runner {
	return &Runner{
		store:   st,
		advisor: adv,
		cache:   c,
		ttl:     cache.DefaultTTL,
		log:     log,
	}
}

// Snapshot returns the user's dashboard, serving from cache when fresh and
// running the full pipeline otherwise.
func (r *Runner) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	if r.cache != nil {
		if payload, err := r.cache.Get(userID); err == nil {
			var snap Snapshot
			if err := json.Unmarshal(payload, &snap); err == nil {
				return &snap, nil
			}
			// A corrupt cache entry is dropped and recomputed.
			_ = r.cache.Invalidate(userID)
		}
	}
	return r.Run(ctx, userID)
}

// Run executes the pipeline unconditionally and refreshes the cache.
func (r *Runner) Run(ctx context.Context, userID string) (*Snapshot, error) {
	// 1. Record the run before doing any work.
	runID, err := r.store.StartAnalysisRun(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Run: starting analysis run: %w", err)
	}

	// 2. Fetch the three inputs concurrently.
	inputs, err := r.fetchInputs(ctx, userID)
	if err != nil {
		r.store.MarkAnalysisRunFailed(ctx, runID, err)
		return nil, err
	}

	// 3. Compute metrics and the compliance report.
	m := metrics.New(inputs.transactions, inputs.accounts, metrics.WithLogger(r.log)).AnalyzeAll()
	report := compliance.NewScorer(time.Time{}).Score(&inputs.profile)

	// 4. Generate the advisory. This never fails the run; the advisor
	// falls back to a locally derived report.
	adv, rawText := r.advisor.Advise(ctx, m, report)

	snap := &Snapshot{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Metrics:     m,
		Compliance:  report,
		Advisory:    adv,
	}

	// 5. Keep the audit trail. Losing it degrades auditability but not the
	// user-facing result.
	r.storeAdvisorOutput(ctx, runID, userID, adv, rawText)

	// 6. Cache the snapshot for subsequent dashboard loads.
	r.cacheSnapshot(userID, snap)

	// 7. Mark the run as done.
	if err := r.store.MarkAnalysisRunSucceeded(ctx, runID); err != nil {
		return nil, fmt.Errorf("Run: marking run succeeded: %w", err)
	}
	return snap, nil
}

type runInputs struct {
	transactions []domain.Transaction
	accounts     []domain.BankAccount
	profile      domain.Profile
}

func (r *Runner) fetchInputs(ctx context.Context, userID string) (*runInputs, error) {
	var (
		wg     sync.WaitGroup
		inputs runInputs
		txErr  error
		acErr  error
		prErr  error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		inputs.transactions, txErr = r.store.GetUserTransactions(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		inputs.accounts, acErr = r.store.GetUserBankAccounts(ctx, userID)
	}()
	go func() {
		defer wg.Done()
		inputs.profile, prErr = r.store.GetUserProfile(ctx, userID)
	}()
	wg.Wait()

	if txErr != nil {
		return nil, fmt.Errorf("fetchInputs: transactions: %w", txErr)
	}
	if acErr != nil {
		return nil, fmt.Errorf("fetchInputs: accounts: %w", acErr)
	}
	if prErr != nil {
		return nil, fmt.Errorf("fetchInputs: profile: %w", prErr)
	}
	return &inputs, nil
}

func (r *Runner) storeAdvisorOutput(ctx context.Context, runID, userID string, adv *advisor.Advisory, rawText string) {
	advisoryJSON, err := json.Marshal(adv)
	if err != nil {
		r.log.Warn().Err(err).Str("run_id", runID).Msg("Encoding advisory for audit failed")
		return
	}

	row := &store.AdvisorOutputRow{
		RunID:     runID,
		UserID:    userID,
		ModelName: advisor.DefaultModelName,
		Source:    adv.Source,
		Advisory:  bigquery.NullJSON{JSONVal: string(advisoryJSON), Valid: true},
	}
	if rawText != "" {
		row.RawText = bigquery.NullString{StringVal: rawText, Valid: true}
	}

	if err := r.store.InsertAdvisorOutput(ctx, row); err != nil {
		r.log.Warn().Err(err).Str("run_id", runID).Msg("Storing advisor output failed")
	}
}

func (r *Runner) cacheSnapshot(userID string, snap *Snapshot) {
	if r.cache == nil {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("Encoding snapshot for cache failed")
		return
	}
	if err := r.cache.Set(userID, payload, r.ttl); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("Caching snapshot failed")
	}
}
