package metrics

import (
	"testing"
	"time"

	"github.com/jmcabrera/pesowise/internal/domain"
)

// TestAnalyzeAll_SingleMonthScenario walks the canonical small scenario:
// one account with 10,000, one 15,000 income and one 5,000 food expense in
// the current month.
func TestAnalyzeAll_SingleMonthScenario(t *testing.T) {
	now := date(2026, 8, 20)
	a := New([]domain.Transaction{
		{ID: "t1", Name: "Salary", Type: domain.TypeIncome, Amount: 15000, Date: date(2026, 8, 1), Category: "salary", AccountID: "a1"},
		{ID: "t2", Name: "Groceries run", Type: domain.TypeExpense, Amount: -5000, Date: date(2026, 8, 10), Category: "food", AccountID: "a1"},
	}, []domain.BankAccount{
		{ID: "a1", AccountType: domain.AccountBank, AccountName: "BPI Savings", Balance: 10000},
	}, WithNow(now))

	m := a.AnalyzeAll()

	approx(t, "MonthlyIncome", m.Summary.MonthlyIncome, 15000)
	approx(t, "MonthlyExpenses", m.Summary.MonthlyExpenses, 5000)
	// "food" is not in the essential set.
	approx(t, "DiscretionaryRatio", m.Expenses.DiscretionaryRatio, 1)
	approx(t, "DebtToIncome", m.Summary.DebtToIncome, 5000.0/15000.0)
	approx(t, "NetCashFlow", m.Summary.NetCashFlow, 10000)

	if m.RiskScore.Overall != 300 {
		t.Errorf("RiskScore.Overall = %v, want 300", m.RiskScore.Overall)
	}
	if m.CreditBehavior.Utilization.Ratio != 0.3 {
		t.Errorf("Utilization = %v, want the 0.3 default", m.CreditBehavior.Utilization.Ratio)
	}

	last := m.CashFlow.Months[len(m.CashFlow.Months)-1]
	approx(t, "current month net", last.Net, 10000)
	approx(t, "current month balance", last.EndingBalance, 10000)
}

func TestAnalyzeAll_EmptyInputsNeverPanic(t *testing.T) {
	m := New(nil, nil).AnalyzeAll()

	if m.Summary.MonthlyIncome != 0 || m.Summary.DebtToIncome != 0 {
		t.Errorf("Summary = %+v, want zeroes", m.Summary)
	}
	if m.Income.Stability != 1 {
		t.Errorf("Stability = %v, want sentinel 1", m.Income.Stability)
	}
	if m.RiskScore.Overall != 300 {
		t.Errorf("RiskScore.Overall = %v, want 300", m.RiskScore.Overall)
	}
}

func TestAnalyzer_DoesNotMutateInputs(t *testing.T) {
	txs := []domain.Transaction{
		{ID: "t1", Type: domain.TypeIncome, Amount: 100, Date: date(2026, 8, 1)},
	}
	accts := []domain.BankAccount{{ID: "a1", Balance: 500}}

	a := New(txs, accts)
	_ = a.AnalyzeAll()

	if txs[0].Amount != 100 || accts[0].Balance != 500 {
		t.Error("inputs were mutated by analysis")
	}
}

func TestAnalyzer_ReentrantAcrossInstances(t *testing.T) {
	txs := []domain.Transaction{
		{ID: "t1", Type: domain.TypeIncome, Amount: 100, Date: date(2026, 8, 1)},
	}

	now := date(2026, 8, 20)
	first := New(txs, nil, WithNow(now)).AnalyzeAll()
	second := New(txs, nil, WithNow(now)).AnalyzeAll()

	if first.Summary != second.Summary {
		t.Errorf("runs differ: %+v vs %+v", first.Summary, second.Summary)
	}
}

func TestWithNow_NormalizesToUTC(t *testing.T) {
	manila := time.FixedZone("PHT", 8*3600)
	// Midnight Sep 1 in Manila is still Aug 31 in UTC, so the trailing
	// window must end at 2026-08.
	a := New(nil, nil, WithNow(time.Date(2026, 9, 1, 0, 30, 0, 0, manila)))

	got := a.AnalyzeCashFlow()
	if last := got.Months[len(got.Months)-1].Month; last != "2026-08" {
		t.Errorf("window ends at %s, want 2026-08", last)
	}
}
