package store

import (
	"testing"
	"time"

	"github.com/jmcabrera/pesowise/internal/domain"
)

func TestTransactionRowRoundTrip(t *testing.T) {
	tx := domain.Transaction{
		ID:        "tx-1",
		AccountID: "acct-1",
		Name:      "Salary",
		Type:      domain.TypeIncome,
		Amount:    50000,
		Date:      time.Date(2026, 8, 15, 9, 30, 0, 0, time.UTC),
		Category:  "salary",
		Channel:   "bank_transfer",
	}

	row := transactionToRow("user-1", tx)
	if row.UserID != "user-1" {
		t.Errorf("UserID = %q", row.UserID)
	}
	if got := row.TransactionDate.String(); got != "2026-08-15" {
		t.Errorf("TransactionDate = %q, want 2026-08-15", got)
	}
	if !row.Category.Valid || row.Category.StringVal != "salary" {
		t.Errorf("Category = %+v", row.Category)
	}
	if row.Notes.Valid {
		t.Error("empty notes must map to NULL")
	}

	back := rowToTransaction(row)
	if back != tx {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, tx)
	}
}

func TestAccountRowRoundTrip(t *testing.T) {
	acct := domain.BankAccount{
		ID:          "acct-1",
		AccountType: domain.AccountBank,
		Currency:    "PHP",
		Balance:     -12000,
		CreditLimit: 60000,
		AccountName: "BPI Credit Card",
		CardNumber:  "4321",
		CreatedAt:   time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	back := rowToAccount(accountToRow("user-1", acct))
	if back != acct {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, acct)
	}
}

func TestProfileRowRoundTrip(t *testing.T) {
	p := domain.Profile{
		Name:             "Maria Santos",
		DateOfBirth:      "1990-04-12",
		Address:          "Quezon City",
		Phone:            "+639170000000",
		Occupation:       "Engineer",
		MonthlyIncome:    55000,
		EmploymentStatus: "employed",
		Documents: map[domain.DocumentType]*domain.Document{
			domain.DocID: {
				Status:     domain.DocStatusValid,
				ExpiryDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
				UploadDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
				URL:        "gs://pesowise-docs/user-1/ID.pdf",
			},
			domain.DocProofOfAddress: {Status: domain.DocStatusPending},
		},
	}

	row, err := profileToRow("user-1", p)
	if err != nil {
		t.Fatalf("profileToRow: %v", err)
	}
	if !row.Documents.Valid {
		t.Fatal("documents column should be populated")
	}

	back := rowToProfile(row)
	if back.Name != p.Name || back.DateOfBirth != p.DateOfBirth || back.MonthlyIncome != p.MonthlyIncome {
		t.Errorf("scalar fields mismatch: %+v", back)
	}
	id := back.Document(domain.DocID)
	if id == nil || id.Status != domain.DocStatusValid || id.URL != "gs://pesowise-docs/user-1/ID.pdf" {
		t.Errorf("ID document = %+v", id)
	}
	if !id.ExpiryDate.Equal(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ExpiryDate = %v", id.ExpiryDate)
	}
	poa := back.Document(domain.DocProofOfAddress)
	if poa == nil || poa.Status != domain.DocStatusPending {
		t.Errorf("POA document = %+v", poa)
	}
}

func TestProfileNoDocumentsMapsToNull(t *testing.T) {
	row, err := profileToRow("user-1", domain.Profile{Name: "Jo"})
	if err != nil {
		t.Fatalf("profileToRow: %v", err)
	}
	if row.Documents.Valid {
		t.Error("no documents should map to NULL")
	}
	if back := rowToProfile(row); back.Documents != nil {
		t.Errorf("Documents = %+v, want nil", back.Documents)
	}
}

func TestRowToProfileCorruptDocumentsDegrades(t *testing.T) {
	row, err := profileToRow("user-1", domain.Profile{Name: "Jo"})
	if err != nil {
		t.Fatalf("profileToRow: %v", err)
	}
	row.Documents.Valid = true
	row.Documents.JSONVal = "{not json"

	back := rowToProfile(row)
	if back.Name != "Jo" {
		t.Errorf("Name = %q", back.Name)
	}
	if back.Documents != nil {
		t.Error("corrupt documents column should read as no documents")
	}
}
