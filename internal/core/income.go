package core

import "math"

const (
	MaxSavingsRate = 0.80
	MaxTaxRate     = 0.60
)

type (
	IncomeAssumptions struct {
		SavingsRate      float64 `json:"savings_rate"`
		EffectiveTaxRate float64 `json:"effective_tax_rate"`
		Buffer           float64 `json:"buffer"`
	}

	IncomeRecommendation struct {
		ExpensesAdjusted float64 `json:"expenses_adjusted"`
		NetMonthly       float64 `json:"net_monthly"`
		GrossMonthly     float64 `json:"gross_monthly"`
		GrossAnnual      float64 `json:"gross_annual"`
	}
)

// DefaultIncomeAssumptions are the initial values of the income form.
func DefaultIncomeAssumptions() IncomeAssumptions {
	return IncomeAssumptions{SavingsRate: 0.15, EffectiveTaxRate: 0.22, Buffer: 0.05}
}

// RecommendIncome returns the net and gross income needed to cover
// monthlyCost after padding it by the buffer, saving the savings share of
// net income and paying the effective tax on gross income.
//
// Savings is clamped to [0, MaxSavingsRate], tax to [0, MaxTaxRate] and the
// buffer to be non-negative. NaN rates and an infinite buffer fail with
// ErrInvalidRate.
func RecommendIncome(monthlyCost float64, a IncomeAssumptions) (IncomeRecommendation, error) {
	if math.IsNaN(a.SavingsRate) || math.IsNaN(a.EffectiveTaxRate) || math.IsNaN(a.Buffer) || math.IsInf(a.Buffer, 1) {
		return IncomeRecommendation{}, ErrInvalidRate
	}
	return invertBudget(
		monthlyCost*(1+math.Max(a.Buffer, 0)),
		clamp(a.SavingsRate, 0, MaxSavingsRate),
		clamp(a.EffectiveTaxRate, 0, MaxTaxRate),
	)
}

// invertBudget solves net*(1-savings) = adjusted and gross*(1-tax) = net.
// Rates are taken as given.
func invertBudget(adjusted, savings, tax float64) (IncomeRecommendation, error) {
	if savings >= 1.0 {
		return IncomeRecommendation{}, ErrInvalidRate
	}
	net := adjusted / (1 - savings)
	gross := math.Inf(1)
	if tax < 1.0 {
		gross = net / (1 - tax)
	}
	return IncomeRecommendation{
		ExpensesAdjusted: adjusted,
		NetMonthly:       net,
		GrossMonthly:     gross,
		GrossAnnual:      gross * 12,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
