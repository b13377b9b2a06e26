package domain

import (
	"strings"
	"time"
)

// TransactionType distinguishes money in from money out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Transaction is one user-recorded movement of money.
// Stored amounts follow the signed convention (negative = expense); analysis
// code reads direction from Type and magnitude from SignedAmount/Abs.
type Transaction struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Type      TransactionType `json:"type"`
	Amount    float64         `json:"amount"` // signed as stored
	Date      time.Time       `json:"date"`   // UTC calendar date
	Category  string          `json:"category"`
	Channel   string          `json:"channel"`
	AccountID string          `json:"accountId,omitempty"`
	Notes     string          `json:"notes,omitempty"`
}

// Abs returns the transaction magnitude regardless of stored sign.
func (t Transaction) Abs() float64 {
	if t.Amount < 0 {
		return -t.Amount
	}
	return t.Amount
}

// SignedAmount returns the amount under the storage convention: positive for
// income, negative for expense. Account balances move by this value when the
// transaction is created and by its negation when it is deleted.
func (t Transaction) SignedAmount() float64 {
	if t.Type == TypeExpense {
		return -t.Abs()
	}
	return t.Abs()
}

// IsLoan reports whether the transaction looks like a loan payment: an
// expense categorized "loans" or whose name mentions a loan.
func (t Transaction) IsLoan() bool {
	if t.Type != TypeExpense {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(t.Category), "loans") {
		return true
	}
	return strings.Contains(strings.ToLower(t.Name), "loan")
}

// MonthKey returns the YEAR-MONTH grouping key for the transaction date,
// always in UTC.
func (t Transaction) MonthKey() string {
	return MonthKey(t.Date)
}

// MonthKey formats a time as the YYYY-MM calendar bucket used by every
// month-grouped aggregate. All grouping goes through here so the timezone
// policy stays uniform.
func MonthKey(ts time.Time) string {
	return ts.UTC().Format("2006-01")
}

// DateOnly truncates a timestamp to its UTC calendar date.
func DateOnly(ts time.Time) time.Time {
	u := ts.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
