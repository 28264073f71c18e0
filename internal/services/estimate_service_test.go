package services

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livingcost/internal/basket"
	"livingcost/internal/core"
	"livingcost/internal/log"
	"livingcost/internal/prices"
	"livingcost/internal/prices/memory"
)

type stubResolver struct {
	res prices.Resolution
	err error
}

func (s stubResolver) Resolve(context.Context, string) (prices.Resolution, error) {
	return s.res, s.err
}

type stubBaskets struct{ err error }

func (s stubBaskets) Basket() (core.BaseBasket, error) {
	if s.err != nil {
		return core.BaseBasket{}, s.err
	}
	return basket.Default()
}

func newTestService(t *testing.T, r IndexResolver, b BasketProvider) (*EstimateService, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewEstimateService(r, b, log.New(log.Config{Output: &buf})), &buf
}

func newMemoryResolver() *prices.Resolver {
	primary := memory.New([]prices.Entry{
		{Location: "New Jersey", Value: 108.9},
		{Location: "Averageland", Value: 100},
		{Location: "Brokenland", Value: 900},
	})
	return prices.NewResolver(primary, memory.New(nil), nil, nil)
}

func TestEstimateService_Estimate(t *testing.T) {
	svc, logs := newTestService(t, newMemoryResolver(), basket.NewProvider(""))

	p := core.DefaultProfile()
	p.State = "  averageland "
	got, err := svc.Estimate(context.Background(), EstimateRequest{Profile: p})
	require.NoError(t, err)

	assert.Equal(t, "averageland", got.Profile.State)
	assert.Equal(t, "Averageland", got.Resolution.Location)
	assert.Equal(t, prices.MatchExact, got.Resolution.Match)
	assert.InDelta(t, 2950.0, got.Breakdown.Total, 1e-9)
	assert.Nil(t, got.Income)
	assert.Contains(t, logs.String(), "Cost estimate computed")
}

func TestEstimateService_EstimateWithIncome(t *testing.T) {
	svc, _ := newTestService(t, newMemoryResolver(), basket.NewProvider(""))

	p := core.DefaultProfile()
	p.State = "Averageland"
	a := core.DefaultIncomeAssumptions()
	got, err := svc.Estimate(context.Background(), EstimateRequest{Country: "united states", Profile: p, Assumptions: &a})
	require.NoError(t, err)
	require.NotNil(t, got.Income)

	wantGross := 2950 * 1.05 / 0.85 / 0.78
	assert.InDelta(t, wantGross, got.Income.GrossMonthly, 1e-6)
	assert.InDelta(t, wantGross*12, got.Income.GrossAnnual, 1e-6)
}

func TestEstimateService_SubstringAndFallback(t *testing.T) {
	svc, _ := newTestService(t, newMemoryResolver(), basket.NewProvider(""))

	p := core.DefaultProfile()
	p.State = "jersey"
	got, err := svc.Estimate(context.Background(), EstimateRequest{Profile: p})
	require.NoError(t, err)
	assert.Equal(t, prices.MatchSubstring, got.Resolution.Match)
	assert.InDelta(t, 2950*1.089, got.Breakdown.Total, 1e-9)

	p.State = "Brokenland"
	got, err = svc.Estimate(context.Background(), EstimateRequest{Profile: p})
	require.NoError(t, err)
	assert.True(t, got.Resolution.OutOfRange)
	assert.Equal(t, core.NeutralPriceIndex, got.Resolution.Index)
}

func TestEstimateService_Errors(t *testing.T) {
	p := core.DefaultProfile()

	tests := []struct {
		name     string
		resolver IndexResolver
		baskets  BasketProvider
		req      EstimateRequest
		wantErr  error
	}{
		{
			name:     "unsupported country",
			resolver: newMemoryResolver(),
			baskets:  stubBaskets{},
			req:      EstimateRequest{Country: "Canada", Profile: p},
			wantErr:  core.ErrUnsupportedCountry,
		},
		{
			name:     "invalid adults",
			resolver: newMemoryResolver(),
			baskets:  stubBaskets{},
			req: EstimateRequest{Profile: func() core.HouseholdProfile {
				q := p
				q.Adults = 0
				return q
			}()},
			wantErr: core.ErrInvalidAdults,
		},
		{
			name:     "unknown location",
			resolver: newMemoryResolver(),
			baskets:  stubBaskets{},
			req: EstimateRequest{Profile: func() core.HouseholdProfile {
				q := p
				q.State = "Atlantis"
				return q
			}()},
			wantErr: core.ErrUnresolvedLocation,
		},
		{
			name:     "basket failure",
			resolver: stubResolver{res: prices.Resolution{Index: core.NeutralPriceIndex}},
			baskets:  stubBaskets{err: core.ErrInvalidBasket},
			req:      EstimateRequest{Profile: p},
			wantErr:  core.ErrInvalidBasket,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, tt.resolver, tt.baskets)
			_, err := svc.Estimate(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestEstimateService_RecommendIncome(t *testing.T) {
	svc, logs := newTestService(t, stubResolver{}, stubBaskets{})

	rec, err := svc.RecommendIncome(context.Background(), 1000, core.IncomeAssumptions{SavingsRate: 0.95, EffectiveTaxRate: 0.9})
	require.NoError(t, err)
	// Rates are clamped to 0.8 savings and 0.6 tax.
	assert.InDelta(t, 1000/0.2/0.4, rec.GrossMonthly, 1e-9)
	assert.Contains(t, logs.String(), "Income recommendation computed")

	_, err = svc.RecommendIncome(context.Background(), -5, core.DefaultIncomeAssumptions())
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestEstimateService_RecommendIncomeNonFinite(t *testing.T) {
	svc, _ := newTestService(t, stubResolver{}, stubBaskets{})
	ctx := context.Background()
	half := core.IncomeAssumptions{SavingsRate: 0.5, EffectiveTaxRate: 0.5, Buffer: 0.5}

	for _, cost := range []float64{math.NaN(), math.Inf(1), 1e308} {
		_, err := svc.RecommendIncome(ctx, cost, half)
		assert.ErrorIs(t, err, core.ErrInvalidAmount, "cost %v", cost)
	}

	_, err := svc.RecommendIncome(ctx, 2950, core.IncomeAssumptions{SavingsRate: math.NaN(), EffectiveTaxRate: 0.22})
	assert.ErrorIs(t, err, core.ErrInvalidRate)
}
