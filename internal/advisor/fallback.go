package advisor

import (
	"fmt"

	"github.com/jmcabrera/pesowise/internal/compliance"
	"github.com/jmcabrera/pesowise/internal/metrics"
)

// Fallback loan sizing: up to six months of income, repaid over two years.
const (
	fallbackLoanIncomeMultiple = 6
	fallbackLoanTermMonths     = 24
	fallbackMaxDebtToIncome    = 0.4
)

// Fallback derives an advisory locally from the metrics. It is used whenever
// the generative model is unavailable or returns garbage, so it must never
// fail and must be deterministic for the same inputs.
func Fallback(m metrics.Metrics, report compliance.Report) *Advisory {
	score := fallbackHealthScore(m)

	adv := &Advisory{
		HealthScore:     score,
		Summary:         fallbackSummary(m, score),
		Recommendations: fallbackRecommendations(m),
		LoanEligibility: fallbackLoanEligibility(m, report),
		Source:          "fallback",
	}
	return adv
}

func fallbackHealthScore(m metrics.Metrics) int {
	// Start from the raw risk composite, which already blends income
	// stability, spending discipline, credit behavior and transaction
	// patterns on a 0-100 scale.
	score := int(m.RiskScore.Raw)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

func fallbackSummary(m metrics.Metrics, score int) string {
	band := "needs attention"
	switch {
	case score >= 70:
		band = "healthy"
	case score >= 40:
		band = "fair"
	}
	return fmt.Sprintf(
		"Your finances look %s. Average monthly income is PHP %.2f against PHP %.2f in expenses, leaving a savings rate of %.0f%%.",
		band, m.Summary.MonthlyIncome, m.Summary.MonthlyExpenses, m.Summary.SavingsRate*100,
	)
}

func fallbackRecommendations(m metrics.Metrics) []string {
	var recs []string

	if m.Summary.SavingsRate < 0.1 {
		recs = append(recs, "Aim to save at least 10% of your monthly income.")
	}
	if m.Expenses.DiscretionaryRatio > 0.6 {
		recs = append(recs, "More than 60% of spending is discretionary; review non-essential purchases.")
	}
	if m.CreditBehavior.Utilization.Ratio > 0.5 {
		recs = append(recs, "Credit utilization is above 50%; pay down card balances to reduce interest costs.")
	}
	if m.Income.Stability > 0.5 {
		recs = append(recs, "Income varies a lot month to month; keep a larger emergency buffer.")
	}
	if len(m.Expenses.Patterns.Unusual) > 0 {
		recs = append(recs, "Some unusually large expenses were detected; confirm they were intentional.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Keep up your current saving and spending habits.")
	}
	return recs
}

func fallbackLoanEligibility(m metrics.Metrics, report compliance.Report) LoanEligibility {
	if report.Status == compliance.StatusNonCompliant {
		return LoanEligibility{
			Notes: "Complete your profile and document verification before applying for a loan.",
		}
	}
	if m.Summary.DebtToIncome >= fallbackMaxDebtToIncome {
		return LoanEligibility{
			Notes: "Debt payments already take a large share of income; reduce existing obligations first.",
		}
	}
	if m.Summary.MonthlyIncome <= 0 {
		return LoanEligibility{
			Notes: "No verified income was found in the analyzed period.",
		}
	}

	return LoanEligibility{
		Eligible:   true,
		MaxAmount:  m.Summary.MonthlyIncome * fallbackLoanIncomeMultiple,
		TermMonths: fallbackLoanTermMonths,
		Notes:      "Estimated from average monthly income and current debt load.",
	}
}
