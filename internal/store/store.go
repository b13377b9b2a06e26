// Package store persists user financial data. The canonical backend is
// BigQuery; the Store interface exists so the service layer and tests can
// run against an in-memory implementation.
package store

import (
	"context"
	"errors"

	"github.com/jmcabrera/pesowise/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence surface used by the service and flow layers.
type Store interface {
	GetUserTransactions(ctx context.Context, userID string) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, transactionID string) (domain.Transaction, error)
	StoreTransaction(ctx context.Context, userID string, tx domain.Transaction) error
	DeleteTransaction(ctx context.Context, userID, transactionID string) error

	GetUserBankAccounts(ctx context.Context, userID string) ([]domain.BankAccount, error)
	StoreBankAccount(ctx context.Context, userID string, acct domain.BankAccount) error
	UpdateBankAccount(ctx context.Context, userID string, acct domain.BankAccount) error

	GetUserProfile(ctx context.Context, userID string) (domain.Profile, error)
	SaveUserProfile(ctx context.Context, userID string, p domain.Profile) error

	StartAnalysisRun(ctx context.Context, userID string) (string, error)
	MarkAnalysisRunFailed(ctx context.Context, runID string, runErr error)
	MarkAnalysisRunSucceeded(ctx context.Context, runID string) error
	InsertAdvisorOutput(ctx context.Context, row *AdvisorOutputRow) error
}
