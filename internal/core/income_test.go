package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendIncomeReferenceHousehold(t *testing.T) {
	got, err := RecommendIncome(2950, DefaultIncomeAssumptions())
	require.NoError(t, err)

	wantGross := 2950 * 1.05 / 0.85 / 0.78
	assert.InDelta(t, 3097.5, got.ExpensesAdjusted, 1e-9)
	assert.InDelta(t, 3097.5/0.85, got.NetMonthly, 1e-9)
	assert.InDelta(t, wantGross, got.GrossMonthly, 1e-9)
	assert.InDelta(t, 4671.9457, got.GrossMonthly, 1e-3)
	assert.InDelta(t, 56063.35, got.GrossAnnual, 1e-2)
	assert.Equal(t, got.GrossMonthly*12, got.GrossAnnual)
}

func TestRecommendIncomeInverts(t *testing.T) {
	cases := []IncomeAssumptions{
		{SavingsRate: 0, EffectiveTaxRate: 0, Buffer: 0},
		{SavingsRate: 0.15, EffectiveTaxRate: 0.22, Buffer: 0.05},
		{SavingsRate: 0.5, EffectiveTaxRate: 0.4, Buffer: 0.2},
		{SavingsRate: 0.8, EffectiveTaxRate: 0.6, Buffer: 1},
	}
	for _, a := range cases {
		got, err := RecommendIncome(4425, a)
		require.NoError(t, err)
		assert.InDelta(t, got.ExpensesAdjusted, got.NetMonthly*(1-a.SavingsRate), 1e-6)
		assert.InDelta(t, got.NetMonthly, got.GrossMonthly*(1-a.EffectiveTaxRate), 1e-6)
		assert.GreaterOrEqual(t, got.GrossMonthly, got.NetMonthly)
		assert.GreaterOrEqual(t, got.NetMonthly, got.ExpensesAdjusted)
	}
}

func TestRecommendIncomeClampsRates(t *testing.T) {
	high, err := RecommendIncome(1000, IncomeAssumptions{SavingsRate: 0.95, EffectiveTaxRate: 0.99, Buffer: -0.5})
	require.NoError(t, err)
	capped, err := RecommendIncome(1000, IncomeAssumptions{SavingsRate: MaxSavingsRate, EffectiveTaxRate: MaxTaxRate})
	require.NoError(t, err)
	assert.Equal(t, capped, high)
	assert.InDelta(t, 1000.0, high.ExpensesAdjusted, 1e-9)

	low, err := RecommendIncome(1000, IncomeAssumptions{SavingsRate: -1, EffectiveTaxRate: -1})
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, low.GrossMonthly, 1e-9)

	// Clamping keeps the public path away from the guard.
	_, err = RecommendIncome(1000, IncomeAssumptions{SavingsRate: 1})
	assert.NoError(t, err)
}

func TestInvertBudgetGuards(t *testing.T) {
	_, err := invertBudget(1000, 1.0, 0.2)
	if !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}
	_, err = invertBudget(1000, 1.5, 0.2)
	if !errors.Is(err, ErrInvalidRate) {
		t.Fatalf("expected ErrInvalidRate, got %v", err)
	}

	got, err := invertBudget(1000, 0.5, 1.0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.GrossMonthly, 1))
	assert.True(t, math.IsInf(got.GrossAnnual, 1))
	assert.InDelta(t, 2000.0, got.NetMonthly, 1e-9)
}

func TestRecommendIncomeRejectsNaNRates(t *testing.T) {
	nan := math.NaN()
	cases := []IncomeAssumptions{
		{SavingsRate: nan, EffectiveTaxRate: 0.22, Buffer: 0.05},
		{SavingsRate: 0.15, EffectiveTaxRate: nan, Buffer: 0.05},
		{SavingsRate: 0.15, EffectiveTaxRate: 0.22, Buffer: nan},
		{SavingsRate: 0.15, EffectiveTaxRate: 0.22, Buffer: math.Inf(1)},
	}
	for _, a := range cases {
		_, err := RecommendIncome(2950, a)
		assert.ErrorIs(t, err, ErrInvalidRate, "%+v", a)
	}
}

func TestRecommendIncomeZeroCost(t *testing.T) {
	got, err := RecommendIncome(0, DefaultIncomeAssumptions())
	require.NoError(t, err)
	assert.Equal(t, IncomeRecommendation{}, got)
}
