// Package metrics derives financial-health aggregates from a user's
// transaction and account history. Everything here is pure computation over
// in-memory collections: the analyzer never fetches, never mutates its
// inputs, and never returns an error. Empty or malformed history produces
// zero-valued metrics.
package metrics

import (
	"sort"
	"time"

	"github.com/jmcabrera/pesowise/internal/domain"
	"github.com/jmcabrera/pesowise/internal/logger"
	"github.com/rs/zerolog"
)

// DefaultUnusualThreshold is how many standard deviations an expense must
// sit from the mean before it is flagged unusual.
const DefaultUnusualThreshold = 2.0

// Analyzer computes derived metrics over one user's already-fetched history.
// Each instance works on its own copy of the inputs, so concurrent analysis
// runs never share state.
type Analyzer struct {
	transactions []domain.Transaction
	accounts     []domain.BankAccount

	now              time.Time
	unusualThreshold float64
	log              zerolog.Logger
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithNow pins the reference time for trailing-window calculations.
func WithNow(now time.Time) Option {
	return func(a *Analyzer) { a.now = now.UTC() }
}

// WithUnusualThreshold overrides the unusual-expense deviation threshold.
func WithUnusualThreshold(sigmas float64) Option {
	return func(a *Analyzer) {
		if sigmas > 0 {
			a.unusualThreshold = sigmas
		}
	}
}

// WithLogger sets the logger used for sub-analysis failure reports.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = log }
}

// New builds an Analyzer over the given history.
func New(transactions []domain.Transaction, accounts []domain.BankAccount, opts ...Option) *Analyzer {
	a := &Analyzer{
		transactions:     append([]domain.Transaction(nil), transactions...),
		accounts:         append([]domain.BankAccount(nil), accounts...),
		now:              time.Now().UTC(),
		unusualThreshold: DefaultUnusualThreshold,
		log:              logger.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summary is the headline view of a user's cash position.
type Summary struct {
	MonthlyIncome   float64 `json:"monthlyIncome"`
	MonthlyExpenses float64 `json:"monthlyExpenses"`
	NetCashFlow     float64 `json:"netCashFlow"`
	DebtToIncome    float64 `json:"debtToIncome"`
	SavingsRate     float64 `json:"savingsRate"`
}

// Metrics is the combined output of AnalyzeAll.
type Metrics struct {
	Summary        Summary         `json:"summary"`
	Income         IncomeMetrics   `json:"income"`
	Expenses       ExpenseMetrics  `json:"expenses"`
	CreditBehavior CreditMetrics   `json:"creditBehavior"`
	CashFlow       CashFlowMetrics `json:"cashFlow"`
	RiskScore      RiskScore       `json:"riskScore"`
}

// AnalyzeAll runs the four independent sub-analyses and then the risk score,
// which consumes their outputs and therefore goes last. A panic inside any
// sub-analysis is contained to that sub-analysis; its metrics stay at their
// zero value and the rest of the report still completes.
func (a *Analyzer) AnalyzeAll() Metrics {
	var m Metrics

	a.runIsolated("income", func() { m.Income = a.AnalyzeIncome() })
	a.runIsolated("expenses", func() { m.Expenses = a.AnalyzeExpenses() })
	a.runIsolated("credit_behavior", func() { m.CreditBehavior = a.AnalyzeCreditBehavior() })
	a.runIsolated("cash_flow", func() { m.CashFlow = a.AnalyzeCashFlow() })
	a.runIsolated("risk_score", func() {
		m.RiskScore = a.scoreRisk(m.Income, m.Expenses, m.CreditBehavior, m.CashFlow)
	})

	m.Summary = Summary{
		MonthlyIncome:   m.Income.MonthlyAverage,
		MonthlyExpenses: m.Expenses.MonthlyAverage,
		NetCashFlow:     m.Income.MonthlyAverage - m.Expenses.MonthlyAverage,
		DebtToIncome:    safeDiv(m.Expenses.MonthlyAverage, m.Income.MonthlyAverage),
		SavingsRate:     safeDiv(m.Income.MonthlyAverage-m.Expenses.MonthlyAverage, m.Income.MonthlyAverage),
	}

	return m
}

func (a *Analyzer) runIsolated(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().Interface("panic", r).Str("analysis", name).Msg("Sub-analysis failed, using zero-valued metrics")
		}
	}()
	fn()
}

// incomeTransactions returns the income slice of the history.
func (a *Analyzer) incomeTransactions() []domain.Transaction {
	return a.filter(domain.TypeIncome)
}

// expenseTransactions returns the expense slice of the history.
func (a *Analyzer) expenseTransactions() []domain.Transaction {
	return a.filter(domain.TypeExpense)
}

func (a *Analyzer) filter(tt domain.TransactionType) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(a.transactions))
	for _, tx := range a.transactions {
		if tx.Type == tt {
			out = append(out, tx)
		}
	}
	return out
}

// monthlySums groups transaction magnitudes by YYYY-MM. Transactions whose
// date failed to decode (zero time) carry no calendar information and are
// left out of month-grouped aggregates.
func monthlySums(txs []domain.Transaction) map[string]float64 {
	sums := make(map[string]float64)
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		sums[tx.MonthKey()] += tx.Abs()
	}
	return sums
}

// sortedKeys returns the map keys in ascending order. YYYY-MM keys sort
// chronologically as strings.
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
