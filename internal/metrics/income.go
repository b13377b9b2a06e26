package metrics

import (
	"strings"

	"github.com/jmcabrera/pesowise/internal/domain"
)

// IncomeSource summarizes the income received under one category tag.
type IncomeSource struct {
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	// Reliability blends how often the source pays (monthly cadence over a
	// year caps the frequency term at 1) with how evenly it pays (small
	// average relative to total means many similar payments). 0..1.
	Reliability float64 `json:"reliability"`
}

// IncomeMetrics is the output of the income sub-analysis.
type IncomeMetrics struct {
	MonthlyAverage float64 `json:"monthlyAverage"`
	// Stability is the population coefficient of variation of the monthly
	// sums. Lower means steadier income; 1 is the sentinel for "not enough
	// months to tell". Downstream scoring consumes this value as-is, so the
	// low-is-good direction must be kept in mind when surfacing it.
	Stability float64 `json:"stability"`
	// Growth is the percent change between the first and last calendar
	// month with income. 0 when fewer than two months exist.
	Growth  float64                 `json:"growth"`
	Monthly map[string]float64      `json:"monthly"`
	Sources map[string]IncomeSource `json:"sources"`
}

// AnalyzeIncome partitions the income transactions, averages them by
// calendar month and grades each income source.
func (a *Analyzer) AnalyzeIncome() IncomeMetrics {
	incomes := a.incomeTransactions()

	monthly := monthlySums(incomes)
	months := sortedKeys(monthly)

	sums := make([]float64, 0, len(months))
	for _, k := range months {
		sums = append(sums, monthly[k])
	}

	out := IncomeMetrics{
		MonthlyAverage: mean(sums),
		Stability:      incomeStability(sums),
		Monthly:        monthly,
		Sources:        incomeSources(incomes),
	}

	if len(months) >= 2 {
		first, last := monthly[months[0]], monthly[months[len(months)-1]]
		if first != 0 {
			out.Growth = (last - first) / first * 100
		}
	}

	return out
}

// incomeStability is stdDev/mean over the monthly sums. With fewer than two
// months there is no dispersion to measure, so the maximal-instability
// sentinel 1 is returned; a zero mean gets the same sentinel rather than a
// division by zero.
func incomeStability(monthlySums []float64) float64 {
	if len(monthlySums) < 2 {
		return 1
	}
	m := mean(monthlySums)
	if m == 0 {
		return 1
	}
	return popStdDev(monthlySums) / m
}

func incomeSources(incomes []domain.Transaction) map[string]IncomeSource {
	grouped := make(map[string][]float64)
	for _, tx := range incomes {
		cat := strings.ToLower(strings.TrimSpace(tx.Category))
		if cat == "" {
			cat = "uncategorized"
		}
		grouped[cat] = append(grouped[cat], tx.Abs())
	}

	sources := make(map[string]IncomeSource, len(grouped))
	for cat, amounts := range grouped {
		var total float64
		for _, amt := range amounts {
			total += amt
		}
		avg := total / float64(len(amounts))

		frequency := clamp01(float64(len(amounts)) / 12)
		consistency := 0.0
		if total != 0 {
			consistency = 1 - avg/total
		}

		sources[cat] = IncomeSource{
			Total:       total,
			Count:       len(amounts),
			Average:     avg,
			Reliability: (frequency + consistency) / 2,
		}
	}
	return sources
}
