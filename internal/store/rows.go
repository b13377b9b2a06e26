package store

import (
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// TransactionRow mirrors the pesowise.transactions schema.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	UserID        string `bigquery:"user_id"`        // REQUIRED
	AccountID     string `bigquery:"account_id"`     // NULLABLE

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	TxnTS           time.Time  `bigquery:"txn_ts"`           // REQUIRED

	TxType string  `bigquery:"tx_type"` // REQUIRED, "income" or "expense"
	Amount float64 `bigquery:"amount"`  // REQUIRED, signed

	Name     string              `bigquery:"name"`     // REQUIRED
	Category bigquery.NullString `bigquery:"category"` // NULLABLE
	Channel  bigquery.NullString `bigquery:"channel"`  // NULLABLE
	Notes    bigquery.NullString `bigquery:"notes"`    // NULLABLE

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}

// AccountRow mirrors the pesowise.bank_accounts schema.
type AccountRow struct {
	AccountID string `bigquery:"account_id"` // REQUIRED
	UserID    string `bigquery:"user_id"`    // REQUIRED

	AccountType string `bigquery:"account_type"` // REQUIRED, "bank" or "ewallet"
	Currency    string `bigquery:"currency"`     // REQUIRED

	Balance     float64              `bigquery:"balance"`      // REQUIRED
	CreditLimit bigquery.NullFloat64 `bigquery:"credit_limit"` // NULLABLE

	AccountName bigquery.NullString `bigquery:"account_name"` // NULLABLE
	CardName    bigquery.NullString `bigquery:"card_name"`    // NULLABLE
	CardNumber  bigquery.NullString `bigquery:"card_number"`  // NULLABLE, last 4 only

	CreatedTS time.Time              `bigquery:"created_ts"` // REQUIRED
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"` // NULLABLE
}

// ProfileRow mirrors the pesowise.profiles schema. Documents are a JSON map
// keyed by document type.
type ProfileRow struct {
	UserID string `bigquery:"user_id"` // REQUIRED

	Name        bigquery.NullString `bigquery:"name"`
	DateOfBirth bigquery.NullDate   `bigquery:"date_of_birth"`
	Address     bigquery.NullString `bigquery:"address"`
	Phone       bigquery.NullString `bigquery:"phone"`
	Occupation  bigquery.NullString `bigquery:"occupation"`

	MonthlyIncome    bigquery.NullFloat64 `bigquery:"monthly_income"`
	EmploymentStatus bigquery.NullString  `bigquery:"employment_status"`

	Documents bigquery.NullJSON `bigquery:"documents"` // NULLABLE JSON

	UpdatedTS time.Time `bigquery:"updated_ts"` // REQUIRED
}

// AnalysisRunRow tracks one end-to-end analysis pipeline execution.
type AnalysisRunRow struct {
	RunID  string `bigquery:"run_id"`  // REQUIRED
	UserID string `bigquery:"user_id"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Status       string              `bigquery:"status"` // RUNNING | SUCCESS | FAILED
	ErrorMessage bigquery.NullString `bigquery:"error_message"`
}

// AdvisorOutputRow stores the raw and parsed advisory for audit.
type AdvisorOutputRow struct {
	OutputID string `bigquery:"output_id"` // REQUIRED
	RunID    string `bigquery:"run_id"`    // REQUIRED
	UserID   string `bigquery:"user_id"`   // REQUIRED

	ModelName string `bigquery:"model_name"` // REQUIRED
	Source    string `bigquery:"source"`     // "model" or "fallback"

	RawText  bigquery.NullString `bigquery:"raw_text"` // NULLABLE, raw model output
	Advisory bigquery.NullJSON   `bigquery:"advisory"` // REQUIRED in practice

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
