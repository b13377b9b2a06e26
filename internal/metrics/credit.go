package metrics

import (
	"math"
	"strings"

	"github.com/jmcabrera/pesowise/internal/domain"
)

const (
	// defaultUtilization is assumed when no linked account is identifiable
	// as a credit line.
	defaultUtilization = 0.3

	// creditLimitFloor is the minimum balance basis (in pesos) for the
	// estimated credit limit of an account with no declared limit.
	creditLimitFloor = 50000

	// creditLimitMultiplier scales the balance basis into an estimated limit.
	creditLimitMultiplier = 3

	// onTimeDayCutoff: loan payments dated on or before this day of the
	// month count as on time.
	onTimeDayCutoff = 15
)

// LoanGroup aggregates the payments of one loan, grouped by name.
type LoanGroup struct {
	Total float64 `json:"total"`
	Count int     `json:"count"`
}

// LoanSummary describes the user's identifiable loans.
type LoanSummary struct {
	Active int                  `json:"active"`
	Groups map[string]LoanGroup `json:"groups"`
	Total  float64              `json:"total"`
}

// PaymentHistory grades loan payments by the day-of-month heuristic.
type PaymentHistory struct {
	OnTime int `json:"onTime"`
	Late   int `json:"late"`
	// Score is onTime/total in percent; 100 when there are no payments.
	Score float64 `json:"score"`
}

// CreditUtilization reports balance use against limits across the user's
// credit accounts.
type CreditUtilization struct {
	Ratio     float64 `json:"ratio"`
	Balance   float64 `json:"balance"`
	Limit     float64 `json:"limit"`
	Accounts  int     `json:"accounts"`
	Estimated bool    `json:"estimated"`
}

// CreditMetrics is the output of the credit-behavior sub-analysis.
type CreditMetrics struct {
	Loans          LoanSummary       `json:"loans"`
	PaymentHistory PaymentHistory    `json:"paymentHistory"`
	Utilization    CreditUtilization `json:"utilization"`
}

// AnalyzeCreditBehavior detects loan payments and credit accounts in the
// history and derives loan, payment-history and utilization aggregates.
func (a *Analyzer) AnalyzeCreditBehavior() CreditMetrics {
	var loans []domain.Transaction
	for _, tx := range a.transactions {
		if tx.IsLoan() {
			loans = append(loans, tx)
		}
	}

	return CreditMetrics{
		Loans:          summarizeLoans(loans),
		PaymentHistory: gradePayments(loans),
		Utilization:    a.creditUtilization(),
	}
}

func summarizeLoans(loans []domain.Transaction) LoanSummary {
	groups := make(map[string]LoanGroup)
	var total float64
	for _, tx := range loans {
		name := strings.ToLower(strings.TrimSpace(tx.Name))
		if name == "" {
			name = "unnamed"
		}
		g := groups[name]
		g.Total += tx.Abs()
		g.Count++
		groups[name] = g
		total += tx.Abs()
	}
	return LoanSummary{Active: len(groups), Groups: groups, Total: total}
}

func gradePayments(loans []domain.Transaction) PaymentHistory {
	ph := PaymentHistory{Score: 100}
	for _, tx := range loans {
		if tx.Date.IsZero() {
			continue
		}
		if tx.Date.UTC().Day() <= onTimeDayCutoff {
			ph.OnTime++
		} else {
			ph.Late++
		}
	}
	if total := ph.OnTime + ph.Late; total > 0 {
		ph.Score = float64(ph.OnTime) / float64(total) * 100
	}
	return ph
}

// creditUtilization sums balances against limits over the credit accounts.
// Accounts without a declared limit get an estimated one from their balance
// or largest transaction, floored at creditLimitFloor.
func (a *Analyzer) creditUtilization() CreditUtilization {
	var creditAccounts []domain.BankAccount
	for _, acct := range a.accounts {
		if acct.IsCredit() {
			creditAccounts = append(creditAccounts, acct)
		}
	}

	if len(creditAccounts) == 0 {
		return CreditUtilization{Ratio: defaultUtilization, Estimated: true}
	}

	var totalBalance, totalLimit float64
	estimated := false
	for _, acct := range creditAccounts {
		totalBalance += math.Abs(acct.Balance)

		limit := acct.CreditLimit
		if limit <= 0 {
			basis := math.Max(math.Abs(acct.Balance), a.largestTransactionOn(acct.ID))
			basis = math.Max(basis, creditLimitFloor)
			limit = creditLimitMultiplier * basis
			estimated = true
		}
		totalLimit += limit
	}

	return CreditUtilization{
		Ratio:     clamp01(safeDiv(totalBalance, totalLimit)),
		Balance:   totalBalance,
		Limit:     totalLimit,
		Accounts:  len(creditAccounts),
		Estimated: estimated,
	}
}

func (a *Analyzer) largestTransactionOn(accountID string) float64 {
	if accountID == "" {
		return 0
	}
	var largest float64
	for _, tx := range a.transactions {
		if tx.AccountID == accountID && tx.Abs() > largest {
			largest = tx.Abs()
		}
	}
	return largest
}
