package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jmcabrera/pesowise/internal/cache"
	"github.com/jmcabrera/pesowise/internal/domain"
	"github.com/jmcabrera/pesowise/internal/store"
)

const testUser = "user-1"

func newService(t *testing.T) (*FinanceService, *store.Memory, *cache.Memory) {
	t.Helper()
	st := store.NewMemory()
	c := cache.NewMemory()
	return New(st, c, zerolog.Nop()), st, c
}

func seedAccount(t *testing.T, st *store.Memory, balance float64) domain.BankAccount {
	t.Helper()
	acct := domain.BankAccount{
		ID:          "acct-1",
		AccountType: domain.AccountBank,
		Currency:    "PHP",
		Balance:     balance,
		CreatedAt:   time.Now().UTC(),
	}
	if err := st.StoreBankAccount(context.Background(), testUser, acct); err != nil {
		t.Fatalf("seeding account: %v", err)
	}
	return acct
}

func accountBalance(t *testing.T, st *store.Memory) float64 {
	t.Helper()
	accts, err := st.GetUserBankAccounts(context.Background(), testUser)
	if err != nil {
		t.Fatalf("fetching accounts: %v", err)
	}
	if len(accts) != 1 {
		t.Fatalf("expected one account, got %d", len(accts))
	}
	return accts[0].Balance
}

func TestCreateTransactionMovesBalance(t *testing.T) {
	svc, st, _ := newService(t)
	seedAccount(t, st, 10000)

	_, err := svc.CreateTransaction(context.Background(), testUser, domain.Transaction{
		Name:      "Groceries",
		Type:      domain.TypeExpense,
		Amount:    1500,
		AccountID: "acct-1",
		Category:  "groceries",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if got := accountBalance(t, st); got != 8500 {
		t.Errorf("balance = %v, want 8500", got)
	}
}

func TestCreateIncomeIncreasesBalance(t *testing.T) {
	svc, st, _ := newService(t)
	seedAccount(t, st, 10000)

	_, err := svc.CreateTransaction(context.Background(), testUser, domain.Transaction{
		Name:      "Salary",
		Type:      domain.TypeIncome,
		Amount:    30000,
		AccountID: "acct-1",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if got := accountBalance(t, st); got != 40000 {
		t.Errorf("balance = %v, want 40000", got)
	}
}

func TestDeleteTransactionReversesBalanceExactly(t *testing.T) {
	svc, st, _ := newService(t)
	seedAccount(t, st, 10000)

	tx, err := svc.CreateTransaction(context.Background(), testUser, domain.Transaction{
		Name:      "Groceries",
		Type:      domain.TypeExpense,
		Amount:    1500,
		AccountID: "acct-1",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	if err := svc.DeleteTransaction(context.Background(), testUser, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}

	if got := accountBalance(t, st); got != 10000 {
		t.Errorf("balance = %v, want 10000 after create+delete", got)
	}
	if _, err := st.GetTransaction(context.Background(), testUser, tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetTransaction after delete = %v, want ErrNotFound", err)
	}
}

func TestCreateNormalizesSignedAmount(t *testing.T) {
	svc, st, _ := newService(t)
	seedAccount(t, st, 10000)

	// Caller sends the expense already negative; balance must still move
	// down by the magnitude, once.
	tx, err := svc.CreateTransaction(context.Background(), testUser, domain.Transaction{
		Name:      "Rent",
		Type:      domain.TypeExpense,
		Amount:    -8000,
		AccountID: "acct-1",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if tx.Amount != -8000 {
		t.Errorf("stored amount = %v, want -8000", tx.Amount)
	}
	if got := accountBalance(t, st); got != 2000 {
		t.Errorf("balance = %v, want 2000", got)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	svc, _, _ := newService(t)

	tests := []struct {
		name string
		tx   domain.Transaction
	}{
		{"empty name", domain.Transaction{Type: domain.TypeExpense, Amount: 10}},
		{"bad type", domain.Transaction{Name: "x", Type: "transfer", Amount: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(context.Background(), testUser, tt.tx)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestUnknownAccountDoesNotFailCreate(t *testing.T) {
	svc, st, _ := newService(t)

	_, err := svc.CreateTransaction(context.Background(), testUser, domain.Transaction{
		Name:      "Cash purchase",
		Type:      domain.TypeExpense,
		Amount:    100,
		AccountID: "missing",
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	txs, _ := st.GetUserTransactions(context.Background(), testUser)
	if len(txs) != 1 {
		t.Errorf("stored %d transactions, want 1", len(txs))
	}
}

func TestMutationsInvalidateAdvisoryCache(t *testing.T) {
	svc, st, c := newService(t)
	seedAccount(t, st, 1000)
	c.Set(testUser, []byte("cached"), time.Hour)

	_, err := svc.CreateTransaction(context.Background(), testUser, domain.Transaction{
		Name: "Load", Type: domain.TypeExpense, Amount: 50,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if _, err := c.Get(testUser); err != cache.ErrMiss {
		t.Errorf("cache after create = %v, want ErrMiss", err)
	}

	c.Set(testUser, []byte("cached"), time.Hour)
	if err := svc.SaveProfile(context.Background(), testUser, domain.Profile{Name: "Jo"}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if _, err := c.Get(testUser); err != cache.ErrMiss {
		t.Errorf("cache after profile save = %v, want ErrMiss", err)
	}
}

func TestAttachDocumentSetsPending(t *testing.T) {
	svc, st, _ := newService(t)

	err := svc.AttachDocument(context.Background(), testUser, domain.DocID, "gs://pesowise-docs/user-1/ID.pdf")
	if err != nil {
		t.Fatalf("AttachDocument: %v", err)
	}

	p, _ := st.GetUserProfile(context.Background(), testUser)
	doc := p.Document(domain.DocID)
	if doc == nil || doc.Status != domain.DocStatusPending {
		t.Fatalf("document = %+v, want pending", doc)
	}
	if doc.URL != "gs://pesowise-docs/user-1/ID.pdf" {
		t.Errorf("URL = %q", doc.URL)
	}

	if err := svc.AttachDocument(context.Background(), testUser, "PASSPORT", "gs://x"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown document type err = %v, want ErrValidation", err)
	}
}

func TestCreateBankAccountDefaults(t *testing.T) {
	svc, _, _ := newService(t)

	acct, err := svc.CreateBankAccount(context.Background(), testUser, domain.BankAccount{
		AccountType: domain.AccountEwallet,
		Balance:     500,
	})
	if err != nil {
		t.Fatalf("CreateBankAccount: %v", err)
	}
	if acct.ID == "" {
		t.Error("ID should be generated")
	}
	if acct.Currency != "PHP" {
		t.Errorf("Currency = %q, want PHP", acct.Currency)
	}

	if _, err := svc.CreateBankAccount(context.Background(), testUser, domain.BankAccount{AccountType: "crypto"}); !errors.Is(err, ErrValidation) {
		t.Errorf("bad account type err = %v, want ErrValidation", err)
	}
}
