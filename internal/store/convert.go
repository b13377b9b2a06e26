package store

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/jmcabrera/pesowise/internal/domain"
)

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func nullFloat(f float64) bigquery.NullFloat64 {
	return bigquery.NullFloat64{Float64: f, Valid: f != 0}
}

func transactionToRow(userID string, tx domain.Transaction) *TransactionRow {
	return &TransactionRow{
		TransactionID:   tx.ID,
		UserID:          userID,
		AccountID:       tx.AccountID,
		TransactionDate: civil.DateOf(tx.Date.UTC()),
		TxnTS:           tx.Date.UTC(),
		TxType:          string(tx.Type),
		Amount:          tx.Amount,
		Name:            tx.Name,
		Category:        nullString(tx.Category),
		Channel:         nullString(tx.Channel),
		Notes:           nullString(tx.Notes),
		CreatedTS:       time.Now().UTC(),
	}
}

func rowToTransaction(r *TransactionRow) domain.Transaction {
	return domain.Transaction{
		ID:        r.TransactionID,
		AccountID: r.AccountID,
		Date:      r.TxnTS.UTC(),
		Type:      domain.TransactionType(r.TxType),
		Amount:    r.Amount,
		Name:      r.Name,
		Category:  r.Category.StringVal,
		Channel:   r.Channel.StringVal,
		Notes:     r.Notes.StringVal,
	}
}

func accountToRow(userID string, acct domain.BankAccount) *AccountRow {
	return &AccountRow{
		AccountID:   acct.ID,
		UserID:      userID,
		AccountType: string(acct.AccountType),
		Currency:    acct.Currency,
		Balance:     acct.Balance,
		CreditLimit: nullFloat(acct.CreditLimit),
		AccountName: nullString(acct.AccountName),
		CardName:    nullString(acct.CardName),
		CardNumber:  nullString(acct.CardNumber),
		CreatedTS:   acct.CreatedAt.UTC(),
	}
}

func rowToAccount(r *AccountRow) domain.BankAccount {
	return domain.BankAccount{
		ID:          r.AccountID,
		AccountType: domain.AccountType(r.AccountType),
		Currency:    r.Currency,
		Balance:     r.Balance,
		CreditLimit: r.CreditLimit.Float64,
		AccountName: r.AccountName.StringVal,
		CardName:    r.CardName.StringVal,
		CardNumber:  r.CardNumber.StringVal,
		CreatedAt:   r.CreatedTS.UTC(),
	}
}

// profileDocument is the JSON shape of one KYC document inside the profile
// row's documents column.
type profileDocument struct {
	Status     string `json:"status"`
	ExpiryDate string `json:"expiryDate,omitempty"` // YYYY-MM-DD
	UploadDate string `json:"uploadDate,omitempty"` // YYYY-MM-DD
	URL        string `json:"url,omitempty"`
}

func profileToRow(userID string, p domain.Profile) (*ProfileRow, error) {
	row := &ProfileRow{
		UserID:           userID,
		Name:             nullString(p.Name),
		Address:          nullString(p.Address),
		Phone:            nullString(p.Phone),
		Occupation:       nullString(p.Occupation),
		MonthlyIncome:    nullFloat(p.MonthlyIncome),
		EmploymentStatus: nullString(p.EmploymentStatus),
		UpdatedTS:        time.Now().UTC(),
	}
	if p.DateOfBirth != "" {
		if d, err := civil.ParseDate(p.DateOfBirth); err == nil {
			row.DateOfBirth = bigquery.NullDate{Date: d, Valid: true}
		}
	}

	if len(p.Documents) == 0 {
		row.Documents = bigquery.NullJSON{Valid: false}
		return row, nil
	}

	docs := make(map[string]profileDocument, len(p.Documents))
	for dt, doc := range p.Documents {
		if doc == nil {
			continue
		}
		pd := profileDocument{
			Status: string(doc.Status),
			URL:    doc.URL,
		}
		if !doc.ExpiryDate.IsZero() {
			pd.ExpiryDate = doc.ExpiryDate.UTC().Format("2006-01-02")
		}
		if !doc.UploadDate.IsZero() {
			pd.UploadDate = doc.UploadDate.UTC().Format("2006-01-02")
		}
		docs[string(dt)] = pd
	}
	data, err := json.Marshal(docs)
	if err != nil {
		return nil, err
	}
	row.Documents = bigquery.NullJSON{JSONVal: string(data), Valid: true}
	return row, nil
}

func rowToProfile(r *ProfileRow) domain.Profile {
	p := domain.Profile{
		Name:             r.Name.StringVal,
		Address:          r.Address.StringVal,
		Phone:            r.Phone.StringVal,
		Occupation:       r.Occupation.StringVal,
		MonthlyIncome:    r.MonthlyIncome.Float64,
		EmploymentStatus: r.EmploymentStatus.StringVal,
	}
	if r.DateOfBirth.Valid {
		p.DateOfBirth = r.DateOfBirth.Date.String()
	}
	if !r.Documents.Valid {
		return p
	}

	var docs map[string]profileDocument
	if err := json.Unmarshal([]byte(r.Documents.JSONVal), &docs); err != nil {
		// A corrupt documents column degrades to "no documents" rather than
		// failing the whole profile read.
		return p
	}
	p.Documents = make(map[domain.DocumentType]*domain.Document, len(docs))
	for key, pd := range docs {
		doc := &domain.Document{
			Status: domain.DocumentStatus(pd.Status),
			URL:    pd.URL,
		}
		if pd.ExpiryDate != "" {
			if t, err := time.Parse("2006-01-02", pd.ExpiryDate); err == nil {
				doc.ExpiryDate = t.UTC()
			}
		}
		if pd.UploadDate != "" {
			if t, err := time.Parse("2006-01-02", pd.UploadDate); err == nil {
				doc.UploadDate = t.UTC()
			}
		}
		p.Documents[domain.DocumentType(key)] = doc
	}
	return p
}
