package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jmcabrera/pesowise/internal/domain"
)

// Memory is an in-process Store used by tests and the offline CLI mode. All
// methods are safe for concurrent use.
type Memory struct {
	mu           sync.Mutex
	transactions map[string][]domain.Transaction // userID -> txs
	accounts     map[string][]domain.BankAccount // userID -> accounts
	profiles     map[string]domain.Profile       // userID -> profile
	runs         map[string]*AnalysisRunRow      // runID -> run
	outputs      []*AdvisorOutputRow
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		transactions: make(map[string][]domain.Transaction),
		accounts:     make(map[string][]domain.BankAccount),
		profiles:     make(map[string]domain.Profile),
		runs:         make(map[string]*AnalysisRunRow),
	}
}

func (m *Memory) GetUserTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Transaction, len(m.transactions[userID]))
	copy(out, m.transactions[userID])
	return out, nil
}

func (m *Memory) GetTransaction(ctx context.Context, userID, transactionID string) (domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions[userID] {
		if tx.ID == transactionID {
			return tx, nil
		}
	}
	return domain.Transaction{}, ErrNotFound
}

func (m *Memory) StoreTransaction(ctx context.Context, userID string, tx domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[userID] = append(m.transactions[userID], tx)
	return nil
}

func (m *Memory) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	txs := m.transactions[userID]
	for i, tx := range txs {
		if tx.ID == transactionID {
			m.transactions[userID] = append(txs[:i:i], txs[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) GetUserBankAccounts(ctx context.Context, userID string) ([]domain.BankAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.BankAccount, len(m.accounts[userID]))
	copy(out, m.accounts[userID])
	return out, nil
}

func (m *Memory) StoreBankAccount(ctx context.Context, userID string, acct domain.BankAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = append(m.accounts[userID], acct)
	return nil
}

func (m *Memory) UpdateBankAccount(ctx context.Context, userID string, acct domain.BankAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.accounts[userID] {
		if a.ID == acct.ID {
			m.accounts[userID][i] = acct
			return nil
		}
	}
	return ErrNotFound
}

func (m *Memory) GetUserProfile(ctx context.Context, userID string) (domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[userID], nil
}

func (m *Memory) SaveUserProfile(ctx context.Context, userID string, p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = p
	return nil
}

func (m *Memory) StartAnalysisRun(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runID := uuid.NewString()
	m.runs[runID] = &AnalysisRunRow{RunID: runID, UserID: userID, Status: "RUNNING"}
	return runID, nil
}

func (m *Memory) MarkAnalysisRunFailed(ctx context.Context, runID string, runErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[runID]; ok {
		run.Status = "FAILED"
	}
}

func (m *Memory) MarkAnalysisRunSucceeded(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Status = "SUCCESS"
	return nil
}

func (m *Memory) InsertAdvisorOutput(ctx context.Context, row *AdvisorOutputRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.OutputID == "" {
		row.OutputID = uuid.NewString()
	}
	m.outputs = append(m.outputs, row)
	return nil
}

// RunStatus reports the status of an analysis run, or "" when unknown.
func (m *Memory) RunStatus(runID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run, ok := m.runs[runID]; ok {
		return run.Status
	}
	return ""
}

// AdvisorOutputs returns the stored advisories, newest last.
func (m *Memory) AdvisorOutputs() []*AdvisorOutputRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*AdvisorOutputRow, len(m.outputs))
	copy(out, m.outputs)
	return out
}

var _ Store = (*Memory)(nil)
var _ Store = (*BigQueryStore)(nil)
