// Package service implements the write-side business rules: transactions
// move account balances, and every mutation invalidates the user's cached
// advisory so the next dashboard load reflects it.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jmcabrera/pesowise/internal/cache"
	"github.com/jmcabrera/pesowise/internal/domain"
	"github.com/jmcabrera/pesowise/internal/store"
)

// ErrValidation wraps all input rejections so the API layer can map them to
// a 400 without inspecting messages.
var ErrValidation = errors.New("validation")

// FinanceService owns transaction, account and profile mutations.
type FinanceService struct {
	store store.Store
	cache cache.AdvisoryCache
	log   zerolog.Logger
}

// New builds a FinanceService. The cache may be nil in offline tools.
func New(st store.Store, c cache.AdvisoryCache, log zerolog.Logger) *FinanceService {
	return &FinanceService{store: st, cache: c, log: log}
}

// CreateTransaction validates and stores a transaction, then moves the
// linked account's balance by the transaction's signed amount.
func (s *FinanceService) CreateTransaction(ctx context.Context, userID string, tx domain.Transaction) (domain.Transaction, error) {
	if err := validateTransaction(tx); err != nil {
		return domain.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}
	// Normalize to the storage convention regardless of how the caller
	// signed the amount.
	tx.Amount = tx.SignedAmount()

	if err := s.store.StoreTransaction(ctx, userID, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("CreateTransaction: storing: %w", err)
	}

	if tx.AccountID != "" {
		if err := s.adjustAccountBalance(ctx, userID, tx.AccountID, tx.SignedAmount()); err != nil {
			return domain.Transaction{}, err
		}
	}

	s.invalidateAdvisory(userID)
	return tx, nil
}

// DeleteTransaction removes a transaction and reverses exactly the balance
// adjustment its creation applied.
func (s *FinanceService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	tx, err := s.store.GetTransaction(ctx, userID, transactionID)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: fetching: %w", err)
	}

	if err := s.store.DeleteTransaction(ctx, userID, transactionID); err != nil {
		return fmt.Errorf("DeleteTransaction: deleting: %w", err)
	}

	if tx.AccountID != "" {
		if err := s.adjustAccountBalance(ctx, userID, tx.AccountID, -tx.SignedAmount()); err != nil {
			return err
		}
	}

	s.invalidateAdvisory(userID)
	return nil
}

// Transactions returns the user's full history.
func (s *FinanceService) Transactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	return s.store.GetUserTransactions(ctx, userID)
}

// CreateBankAccount validates and stores a new linked account.
func (s *FinanceService) CreateBankAccount(ctx context.Context, userID string, acct domain.BankAccount) (domain.BankAccount, error) {
	if err := validateAccount(acct); err != nil {
		return domain.BankAccount{}, err
	}
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	if acct.Currency == "" {
		acct.Currency = "PHP"
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}

	if err := s.store.StoreBankAccount(ctx, userID, acct); err != nil {
		return domain.BankAccount{}, fmt.Errorf("CreateBankAccount: storing: %w", err)
	}

	s.invalidateAdvisory(userID)
	return acct, nil
}

// BankAccounts returns the user's linked accounts.
func (s *FinanceService) BankAccounts(ctx context.Context, userID string) ([]domain.BankAccount, error) {
	return s.store.GetUserBankAccounts(ctx, userID)
}

// Profile returns the user's profile.
func (s *FinanceService) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	return s.store.GetUserProfile(ctx, userID)
}

// SaveProfile replaces the user's profile.
func (s *FinanceService) SaveProfile(ctx context.Context, userID string, p domain.Profile) error {
	if err := s.store.SaveUserProfile(ctx, userID, p); err != nil {
		return fmt.Errorf("SaveProfile: %w", err)
	}
	s.invalidateAdvisory(userID)
	return nil
}

// AttachDocument records an uploaded KYC document on the profile with
// status pending.
func (s *FinanceService) AttachDocument(ctx context.Context, userID string, dt domain.DocumentType, url string) error {
	if !validDocumentType(dt) {
		return fmt.Errorf("%w: unknown document type %q", ErrValidation, dt)
	}

	p, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("AttachDocument: fetching profile: %w", err)
	}
	if p.Documents == nil {
		p.Documents = make(map[domain.DocumentType]*domain.Document)
	}
	p.Documents[dt] = &domain.Document{
		Status:     domain.DocStatusPending,
		UploadDate: time.Now().UTC(),
		URL:        url,
	}

	if err := s.store.SaveUserProfile(ctx, userID, p); err != nil {
		return fmt.Errorf("AttachDocument: saving profile: %w", err)
	}
	s.invalidateAdvisory(userID)
	return nil
}

func (s *FinanceService) adjustAccountBalance(ctx context.Context, userID, accountID string, delta float64) error {
	accts, err := s.store.GetUserBankAccounts(ctx, userID)
	if err != nil {
		return fmt.Errorf("adjusting balance: fetching accounts: %w", err)
	}
	for _, acct := range accts {
		if acct.ID != accountID {
			continue
		}
		acct.Balance += delta
		if err := s.store.UpdateBankAccount(ctx, userID, acct); err != nil {
			return fmt.Errorf("adjusting balance: updating account: %w", err)
		}
		return nil
	}
	// A transaction referencing an unknown account is stored as-is; the
	// analyzer does not require the account to exist.
	s.log.Warn().
		Str("user_id", userID).
		Str("account_id", accountID).
		Msg("Transaction references unknown account, balance not adjusted")
	return nil
}

func (s *FinanceService) invalidateAdvisory(userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("Advisory cache invalidation failed")
	}
}

func validateTransaction(tx domain.Transaction) error {
	if strings.TrimSpace(tx.Name) == "" {
		return fmt.Errorf("%w: transaction name is required", ErrValidation)
	}
	switch tx.Type {
	case domain.TypeIncome, domain.TypeExpense:
	default:
		return fmt.Errorf("%w: transaction type must be income or expense", ErrValidation)
	}
	if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
		return fmt.Errorf("%w: amount must be a finite number", ErrValidation)
	}
	return nil
}

func validateAccount(acct domain.BankAccount) error {
	switch acct.AccountType {
	case domain.AccountBank, domain.AccountEwallet:
	default:
		return fmt.Errorf("%w: account type must be bank or ewallet", ErrValidation)
	}
	return nil
}

func validDocumentType(dt domain.DocumentType) bool {
	for _, known := range domain.RequiredDocuments {
		if dt == known {
			return true
		}
	}
	return false
}
