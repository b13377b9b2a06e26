package domain

import (
	"strings"
	"time"
)

// AccountType distinguishes bank accounts from e-wallets.
type AccountType string

const (
	AccountBank    AccountType = "bank"
	AccountEwallet AccountType = "ewallet"
)

// BankAccount is a linked bank or e-wallet account. Balance moves
// transactionally with the transactions that reference the account.
type BankAccount struct {
	ID          string      `json:"id"`
	AccountType AccountType `json:"accountType"`
	Currency    string      `json:"currency"`
	Balance     float64     `json:"balance"`
	CardNumber  string      `json:"cardNumber,omitempty"`
	CardName    string      `json:"cardName,omitempty"`
	AccountName string      `json:"accountName"`
	CreditLimit float64     `json:"creditLimit,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// IsCredit reports whether the account is identifiable as a credit line:
// its type or its name contains "credit".
func (a BankAccount) IsCredit() bool {
	if strings.Contains(strings.ToLower(string(a.AccountType)), "credit") {
		return true
	}
	return strings.Contains(strings.ToLower(a.AccountName), "credit")
}
