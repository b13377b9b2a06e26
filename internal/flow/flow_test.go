package flow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmcabrera/pesowise/internal/advisor"
	"github.com/jmcabrera/pesowise/internal/cache"
	"github.com/jmcabrera/pesowise/internal/domain"
	"github.com/jmcabrera/pesowise/internal/store"
)

const testUser = "user-1"

type stubModel struct {
	text  string
	err   error
	calls int
}

func (s *stubModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.text, s.err
}

func seedUser(t *testing.T, st *store.Memory) {
	t.Helper()
	ctx := context.Background()
	if err := st.StoreBankAccount(ctx, testUser, domain.BankAccount{
		ID: "acct-1", AccountType: domain.AccountBank, Currency: "PHP", Balance: 25000,
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.StoreTransaction(ctx, testUser, domain.Transaction{
		ID: "tx-1", Name: "Salary", Type: domain.TypeIncome, Amount: 40000,
		Date: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), Category: "salary",
	}); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveUserProfile(ctx, testUser, domain.Profile{Name: "Maria"}); err != nil {
		t.Fatal(err)
	}
}

func newRunner(st *store.Memory, model advisor.TextModel, c cache.AdvisoryCache) *Runner {
	return NewRunner(st, advisor.New(model, zerolog.Nop()), c, zerolog.Nop())
}

func TestRunProducesSnapshotAndMarksSuccess(t *testing.T) {
	st := store.NewMemory()
	seedUser(t, st)
	model := &stubModel{text: `{"healthScore": 80, "summary": "ok", "recommendations": ["r"]}`}
	r := newRunner(st, model, cache.NewMemory())

	snap, err := r.Run(context.Background(), testUser)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snap.RunID == "" {
		t.Error("RunID should be set")
	}
	if st.RunStatus(snap.RunID) != "SUCCESS" {
		t.Errorf("run status = %q, want SUCCESS", st.RunStatus(snap.RunID))
	}
	if snap.Metrics.Summary.MonthlyIncome != 40000 {
		t.Errorf("MonthlyIncome = %v, want 40000", snap.Metrics.Summary.MonthlyIncome)
	}
	if snap.Advisory == nil || snap.Advisory.Source != "model" {
		t.Errorf("Advisory = %+v", snap.Advisory)
	}

	outputs := st.AdvisorOutputs()
	if len(outputs) != 1 {
		t.Fatalf("stored %d advisor outputs, want 1", len(outputs))
	}
	if outputs[0].RunID != snap.RunID || outputs[0].Source != "model" {
		t.Errorf("advisor output = %+v", outputs[0])
	}
	if !outputs[0].Advisory.Valid {
		t.Error("advisory JSON column should be populated")
	}
}

func TestRunSurvivesModelFailure(t *testing.T) {
	st := store.NewMemory()
	seedUser(t, st)
	model := &stubModel{err: errors.New("quota exceeded")}
	r := newRunner(st, model, cache.NewMemory())

	snap, err := r.Run(context.Background(), testUser)
	if err != nil {
		t.Fatalf("Run must not fail when the model does: %v", err)
	}
	if snap.Advisory.Source != "fallback" {
		t.Errorf("Source = %q, want fallback", snap.Advisory.Source)
	}
	if st.RunStatus(snap.RunID) != "SUCCESS" {
		t.Errorf("run status = %q, want SUCCESS", st.RunStatus(snap.RunID))
	}
}

func TestSnapshotServesFromCache(t *testing.T) {
	st := store.NewMemory()
	seedUser(t, st)
	model := &stubModel{text: `{"healthScore": 80, "summary": "ok"}`}
	c := cache.NewMemory()
	r := newRunner(st, model, c)

	first, err := r.Snapshot(context.Background(), testUser)
	if err != nil {
		t.Fatalf("first Snapshot: %v", err)
	}
	second, err := r.Snapshot(context.Background(), testUser)
	if err != nil {
		t.Fatalf("second Snapshot: %v", err)
	}
	if model.calls != 1 {
		t.Errorf("model called %d times, want 1 (second load from cache)", model.calls)
	}
	if second.RunID != first.RunID {
		t.Errorf("cached RunID = %q, want %q", second.RunID, first.RunID)
	}
}

func TestSnapshotRecomputesOnCorruptCache(t *testing.T) {
	st := store.NewMemory()
	seedUser(t, st)
	model := &stubModel{text: `{"healthScore": 80, "summary": "ok"}`}
	c := cache.NewMemory()
	c.Set(testUser, []byte("{corrupt"), time.Hour)
	r := newRunner(st, model, c)

	snap, err := r.Snapshot(context.Background(), testUser)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.RunID == "" {
		t.Error("corrupt cache entry should trigger a fresh run")
	}
}

func TestRunCachesSnapshotPayload(t *testing.T) {
	st := store.NewMemory()
	seedUser(t, st)
	c := cache.NewMemory()
	r := newRunner(st, &stubModel{text: `{"healthScore": 80, "summary": "ok"}`}, c)

	snap, err := r.Run(context.Background(), testUser)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	payload, err := c.Get(testUser)
	if err != nil {
		t.Fatalf("cache get: %v", err)
	}
	var cached Snapshot
	if err := json.Unmarshal(payload, &cached); err != nil {
		t.Fatalf("cached payload is not valid JSON: %v", err)
	}
	if cached.RunID != snap.RunID {
		t.Errorf("cached RunID = %q, want %q", cached.RunID, snap.RunID)
	}
}

func TestRunWithEmptyUserStillSucceeds(t *testing.T) {
	st := store.NewMemory()
	r := newRunner(st, &stubModel{err: errors.New("down")}, nil)

	snap, err := r.Run(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if snap.Metrics.RiskScore.Overall != 300 {
		t.Errorf("empty-user risk score = %v, want 300", snap.Metrics.RiskScore.Overall)
	}
	if snap.Compliance.Status != "NON_COMPLIANT" {
		t.Errorf("empty-user compliance = %q, want NON_COMPLIANT", snap.Compliance.Status)
	}
}
