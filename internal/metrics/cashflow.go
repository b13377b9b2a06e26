package metrics

import (
	"math"
	"time"

	"github.com/jmcabrera/pesowise/internal/domain"
)

// trailingWindowMonths is the length of the cash-flow series, ending at the
// current calendar month.
const trailingWindowMonths = 12

// projectionMonths is how far ahead the cash-flow projection reaches.
const projectionMonths = 3

// MonthFlow is one month of the trailing cash-flow series.
type MonthFlow struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
	// EndingBalance reconstructs the total account balance at month end by
	// walking backward from today's balances.
	EndingBalance float64 `json:"endingBalance"`
}

// Projection is one projected future month.
type Projection struct {
	Month    string  `json:"month"`
	Expected float64 `json:"expected"`
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
	// Confidence decays with volatility and distance; clamped to [0,1].
	Confidence float64 `json:"confidence"`
}

// CashFlowMetrics is the output of the cash-flow sub-analysis.
type CashFlowMetrics struct {
	Months      []MonthFlow  `json:"months"` // oldest first
	Average     float64      `json:"average"`
	Volatility  float64      `json:"volatility"`
	Trend       float64      `json:"trend"`
	Projections []Projection `json:"projections"`
}

// trailingMonthKeys returns the YYYY-MM keys of the n calendar months ending
// at the month of ref, oldest first.
func trailingMonthKeys(ref time.Time, n int) []string {
	ref = ref.UTC()
	keys := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		keys = append(keys, domain.MonthKey(time.Date(ref.Year(), ref.Month()-time.Month(i), 1, 0, 0, 0, 0, time.UTC)))
	}
	return keys
}

// AnalyzeCashFlow builds the trailing twelve-month cash-flow series, its
// volatility and trend, and a three-month projection.
func (a *Analyzer) AnalyzeCashFlow() CashFlowMetrics {
	keys := trailingMonthKeys(a.now, trailingWindowMonths)
	index := make(map[string]int, len(keys))
	months := make([]MonthFlow, len(keys))
	for i, k := range keys {
		index[k] = i
		months[i] = MonthFlow{Month: k}
	}

	for _, tx := range a.transactions {
		if tx.Date.IsZero() {
			continue
		}
		i, ok := index[tx.MonthKey()]
		if !ok {
			continue
		}
		switch tx.Type {
		case domain.TypeIncome:
			months[i].Income += tx.Abs()
		case domain.TypeExpense:
			months[i].Expenses += tx.Abs()
		}
	}

	nets := make([]float64, len(months))
	for i := range months {
		months[i].Net = months[i].Income - months[i].Expenses
		nets[i] = months[i].Net
	}

	// Walk balances backward from today's total: the latest month ends at
	// the current balance, each earlier month ends at the next month's
	// balance minus that month's net flow.
	var totalBalance float64
	for _, acct := range a.accounts {
		totalBalance += acct.Balance
	}
	if n := len(months); n > 0 {
		months[n-1].EndingBalance = totalBalance
		for i := n - 2; i >= 0; i-- {
			months[i].EndingBalance = months[i+1].EndingBalance - months[i+1].Net
		}
	}

	avg := mean(nets)
	volatility := 0.0
	if avg != 0 {
		volatility = popStdDev(nets) / math.Abs(avg)
	}
	trend := leastSquaresSlope(nets)

	return CashFlowMetrics{
		Months:      months,
		Average:     avg,
		Volatility:  volatility,
		Trend:       trend,
		Projections: a.projectCashFlow(avg, trend, volatility),
	}
}

func (a *Analyzer) projectCashFlow(avg, trend, volatility float64) []Projection {
	ref := a.now
	out := make([]Projection, 0, projectionMonths)
	for i := 1; i <= projectionMonths; i++ {
		expected := avg * (1 + trend*float64(i))
		spread := math.Abs(expected) * volatility
		out = append(out, Projection{
			Month:      domain.MonthKey(time.Date(ref.Year(), ref.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)),
			Expected:   expected,
			Low:        expected - spread,
			High:       expected + spread,
			Confidence: clamp01(1 - volatility*float64(i)*0.2),
		})
	}
	return out
}
