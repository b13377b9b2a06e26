package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/jmcabrera/pesowise/internal/domain"
)

// Category trend classifications.
const (
	TrendIncreasing       = "increasing"
	TrendDecreasing       = "decreasing"
	TrendStable           = "stable"
	TrendInsufficientData = "insufficient_data"
)

// essentialCategories is the fixed set of necessity categories; everything
// else counts as discretionary spending.
var essentialCategories = map[string]bool{
	"rent":           true,
	"utilities":      true,
	"groceries":      true,
	"healthcare":     true,
	"transportation": true,
}

// ExpenseCategory aggregates one spending category.
type ExpenseCategory struct {
	Total        float64              `json:"total"`
	Transactions []domain.Transaction `json:"transactions"`
	Monthly      map[string]float64   `json:"monthly"`
	// Trend reads the mean month-over-month percent change: above +5 is
	// increasing, below -5 decreasing, otherwise stable. Categories seen in
	// fewer than three months report insufficient_data.
	Trend string `json:"trend"`
}

// RecurringExpense is a category+amount pair seen in at least 80% of the
// trailing twelve calendar months.
type RecurringExpense struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Months   int     `json:"months"`
}

// SeasonStats sums spending in one fixed three-month season bucket.
type SeasonStats struct {
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	// VarianceFromMean is this season's total minus the mean of the four
	// season totals; positive means a heavier-than-usual season.
	VarianceFromMean float64 `json:"varianceFromMean"`
}

// UnusualExpense is an expense whose magnitude sits far from the mean.
type UnusualExpense struct {
	Transaction domain.Transaction `json:"transaction"`
	Amount      float64            `json:"amount"`
	// Deviation is the distance from the mean in standard deviations.
	Deviation float64 `json:"deviation"`
}

// ExpensePatterns groups the recurring/seasonal/unusual detections.
type ExpensePatterns struct {
	Recurring []RecurringExpense     `json:"recurring"`
	Seasonal  map[string]SeasonStats `json:"seasonal"`
	Unusual   []UnusualExpense       `json:"unusual"`
}

// ExpenseMetrics is the output of the expense sub-analysis.
type ExpenseMetrics struct {
	MonthlyAverage     float64                    `json:"monthlyAverage"`
	Monthly            map[string]float64         `json:"monthly"`
	Categories         map[string]ExpenseCategory `json:"categories"`
	Essential          float64                    `json:"essential"`
	Discretionary      float64                    `json:"discretionary"`
	DiscretionaryRatio float64                    `json:"discretionaryRatio"`
	Patterns           ExpensePatterns            `json:"patterns"`
}

// AnalyzeExpenses partitions the expense transactions and derives category,
// discretionary and pattern aggregates.
func (a *Analyzer) AnalyzeExpenses() ExpenseMetrics {
	expenses := a.expenseTransactions()

	monthly := monthlySums(expenses)
	sums := make([]float64, 0, len(monthly))
	for _, v := range monthly {
		sums = append(sums, v)
	}

	essential, discretionary := discretionarySplit(expenses)

	return ExpenseMetrics{
		MonthlyAverage:     mean(sums),
		Monthly:            monthly,
		Categories:         expenseCategories(expenses),
		Essential:          essential,
		Discretionary:      discretionary,
		DiscretionaryRatio: safeDiv(discretionary, essential+discretionary),
		Patterns: ExpensePatterns{
			Recurring: a.recurringExpenses(expenses),
			Seasonal:  seasonalExpenses(expenses),
			Unusual:   a.unusualExpenses(expenses),
		},
	}
}

func normalizeCategory(cat string) string {
	c := strings.ToLower(strings.TrimSpace(cat))
	if c == "" {
		return "uncategorized"
	}
	return c
}

func discretionarySplit(expenses []domain.Transaction) (essential, discretionary float64) {
	for _, tx := range expenses {
		if essentialCategories[normalizeCategory(tx.Category)] {
			essential += tx.Abs()
		} else {
			discretionary += tx.Abs()
		}
	}
	return essential, discretionary
}

func expenseCategories(expenses []domain.Transaction) map[string]ExpenseCategory {
	cats := make(map[string]ExpenseCategory)
	for _, tx := range expenses {
		key := normalizeCategory(tx.Category)
		cat, ok := cats[key]
		if !ok {
			cat = ExpenseCategory{Monthly: make(map[string]float64)}
		}
		cat.Total += tx.Abs()
		cat.Transactions = append(cat.Transactions, tx)
		if !tx.Date.IsZero() {
			cat.Monthly[tx.MonthKey()] += tx.Abs()
		}
		cats[key] = cat
	}

	for key, cat := range cats {
		cat.Trend = categoryTrend(cat.Monthly)
		cats[key] = cat
	}
	return cats
}

// categoryTrend classifies the mean month-over-month percent change of the
// category's monthly totals.
func categoryTrend(monthly map[string]float64) string {
	if len(monthly) < 3 {
		return TrendInsufficientData
	}

	keys := sortedKeys(monthly)
	var changes []float64
	for i := 1; i < len(keys); i++ {
		prev, cur := monthly[keys[i-1]], monthly[keys[i]]
		if prev == 0 {
			continue
		}
		changes = append(changes, (cur-prev)/prev*100)
	}

	avg := mean(changes)
	switch {
	case avg > 5:
		return TrendIncreasing
	case avg < -5:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// recurringExpenses finds category+amount pairs present in at least 80% of
// the twelve most recent calendar months.
func (a *Analyzer) recurringExpenses(expenses []domain.Transaction) []RecurringExpense {
	window := trailingMonthKeys(a.now, trailingWindowMonths)
	inWindow := make(map[string]bool, len(window))
	for _, k := range window {
		inWindow[k] = true
	}

	type pairInfo struct {
		category string
		amount   float64
		months   map[string]bool
	}
	pairs := make(map[string]*pairInfo)

	for _, tx := range expenses {
		if tx.Date.IsZero() || !inWindow[tx.MonthKey()] {
			continue
		}
		key := fmt.Sprintf("%s|%.2f", normalizeCategory(tx.Category), tx.Abs())
		info, ok := pairs[key]
		if !ok {
			info = &pairInfo{
				category: normalizeCategory(tx.Category),
				amount:   tx.Abs(),
				months:   make(map[string]bool),
			}
			pairs[key] = info
		}
		info.months[tx.MonthKey()] = true
	}

	var recurring []RecurringExpense
	for _, info := range pairs {
		if float64(len(info.months))/float64(trailingWindowMonths) >= 0.8 {
			recurring = append(recurring, RecurringExpense{
				Category: info.category,
				Amount:   info.amount,
				Months:   len(info.months),
			})
		}
	}

	sort.Slice(recurring, func(i, j int) bool {
		if recurring[i].Category != recurring[j].Category {
			return recurring[i].Category < recurring[j].Category
		}
		return recurring[i].Amount < recurring[j].Amount
	})
	return recurring
}

// seasonBuckets maps season names to 0-indexed calendar months.
var seasonBuckets = map[string][]int{
	"summer": {5, 6, 7},
	"fall":   {8, 9, 10},
	"winter": {11, 0, 1},
	"spring": {2, 3, 4},
}

func seasonOfMonth(zeroIndexedMonth int) string {
	for season, months := range seasonBuckets {
		for _, m := range months {
			if m == zeroIndexedMonth {
				return season
			}
		}
	}
	return ""
}

func seasonalExpenses(expenses []domain.Transaction) map[string]SeasonStats {
	stats := map[string]SeasonStats{
		"summer": {}, "fall": {}, "winter": {}, "spring": {},
	}

	for _, tx := range expenses {
		if tx.Date.IsZero() {
			continue
		}
		season := seasonOfMonth(int(tx.Date.UTC().Month()) - 1)
		s := stats[season]
		s.Total += tx.Abs()
		s.Count++
		stats[season] = s
	}

	var seasonMean float64
	for _, s := range stats {
		seasonMean += s.Total
	}
	seasonMean /= float64(len(stats))

	for season, s := range stats {
		if s.Count > 0 {
			s.Average = s.Total / float64(s.Count)
		}
		s.VarianceFromMean = s.Total - seasonMean
		stats[season] = s
	}
	return stats
}

// unusualExpenses flags expenses whose magnitude deviates from the mean by
// at least the configured number of standard deviations. A zero deviation
// (all amounts equal) flags nothing.
func (a *Analyzer) unusualExpenses(expenses []domain.Transaction) []UnusualExpense {
	amounts := make([]float64, 0, len(expenses))
	for _, tx := range expenses {
		amounts = append(amounts, tx.Abs())
	}

	m := mean(amounts)
	sigma := popStdDev(amounts)
	if sigma == 0 {
		return nil
	}

	var unusual []UnusualExpense
	for _, tx := range expenses {
		dev := math.Abs(tx.Abs() - m)
		if dev >= a.unusualThreshold*sigma {
			unusual = append(unusual, UnusualExpense{
				Transaction: tx,
				Amount:      tx.Abs(),
				Deviation:   dev / sigma,
			})
		}
	}
	return unusual
}
