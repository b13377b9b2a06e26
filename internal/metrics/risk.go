package metrics

import "math"

// Risk score weights over the four component scores.
const (
	weightIncomeStability     = 0.3
	weightExpensePatterns     = 0.25
	weightCreditBehavior      = 0.25
	weightTransactionPatterns = 0.2
)

// Canonical credit-score band.
const (
	riskScoreFloor   = 300
	riskScoreCeiling = 850
)

// RiskComponents are the normalized inputs to the weighted risk sum.
type RiskComponents struct {
	// IncomeStability is the income coefficient of variation, consumed
	// as-is: the scoring has always fed the raw CV in without inverting it,
	// even though a lower CV means steadier income.
	IncomeStability float64 `json:"incomeStability"`
	// ExpensePatterns is the discretionary spending ratio.
	ExpensePatterns float64 `json:"expensePatterns"`
	// CreditBehavior is the 0-100 credit heuristic scaled into [0,1].
	CreditBehavior float64 `json:"creditBehavior"`
	// TransactionPatterns is the 0-100 pattern heuristic scaled into [0,1].
	TransactionPatterns float64 `json:"transactionPatterns"`
}

// RiskScore is the composite risk assessment.
type RiskScore struct {
	// Overall is the weighted sum clamped - not rescaled - into the
	// canonical 300-850 band. The raw sum tops out near 100, so Overall
	// bottoms out at 300 for nearly every input; Raw carries the usable
	// signal.
	Overall float64 `json:"overall"`
	// Raw is the weighted sum before the clamp, roughly 0-100.
	Raw        float64        `json:"raw"`
	Components RiskComponents `json:"components"`
	// CreditScore and TransactionScore are the 0-100 heuristics feeding the
	// last two components.
	CreditScore      float64 `json:"creditScore"`
	TransactionScore float64 `json:"transactionScore"`
}

// scoreRisk combines the four sub-analysis outputs. It must run after them.
func (a *Analyzer) scoreRisk(income IncomeMetrics, expenses ExpenseMetrics, credit CreditMetrics, cashFlow CashFlowMetrics) RiskScore {
	creditScore := creditBehaviorScore(credit)
	txScore := transactionPatternScore(expenses, cashFlow)

	components := RiskComponents{
		IncomeStability:     income.Stability,
		ExpensePatterns:     expenses.DiscretionaryRatio,
		CreditBehavior:      creditScore / 100,
		TransactionPatterns: txScore / 100,
	}

	raw := (weightIncomeStability*components.IncomeStability +
		weightExpensePatterns*components.ExpensePatterns +
		weightCreditBehavior*components.CreditBehavior +
		weightTransactionPatterns*components.TransactionPatterns) * 100

	return RiskScore{
		Overall:          clamp(raw, riskScoreFloor, riskScoreCeiling),
		Raw:              raw,
		Components:       components,
		CreditScore:      creditScore,
		TransactionScore: txScore,
	}
}

// creditBehaviorScore blends payment punctuality with credit-line headroom
// into a 0-100 score.
func creditBehaviorScore(credit CreditMetrics) float64 {
	score := credit.PaymentHistory.Score*0.6 + (1-credit.Utilization.Ratio)*100*0.4
	return clamp(score, 0, 100)
}

// transactionPatternScore starts from 100 and deducts for unusual expenses
// and cash-flow volatility, each capped at 50 points.
func transactionPatternScore(expenses ExpenseMetrics, cashFlow CashFlowMetrics) float64 {
	unusualPenalty := math.Min(float64(len(expenses.Patterns.Unusual))*10, 50)
	volatilityPenalty := math.Min(cashFlow.Volatility*25, 50)
	return clamp(100-unusualPenalty-volatilityPenalty, 0, 100)
}
