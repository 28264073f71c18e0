// Package services orchestrates price index resolution, the base basket
// and the cost engines behind the HTTP handlers.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"livingcost/internal/core"
	"livingcost/internal/log"
	"livingcost/internal/metrics"
	"livingcost/internal/prices"
)

// IndexResolver maps a location to a price index.
type IndexResolver interface {
	Resolve(ctx context.Context, location string) (prices.Resolution, error)
}

// BasketProvider returns the national reference basket.
type BasketProvider interface {
	Basket() (core.BaseBasket, error)
}

type (
	EstimateRequest struct {
		// Country defaults to the supported country when empty.
		Country string
		Profile core.HouseholdProfile
		// Assumptions, when set, adds an income recommendation for the
		// estimated total.
		Assumptions *core.IncomeAssumptions
	}

	EstimateResult struct {
		Profile    core.HouseholdProfile
		Resolution prices.Resolution
		Breakdown  core.CostBreakdown
		Income     *core.IncomeRecommendation
	}
)

// EstimateService ties the resolver and basket to the cost engines.
type EstimateService struct {
	resolver IndexResolver
	baskets  BasketProvider
	logger   *log.Logger
	events   *log.StructuredLogger
}

func NewEstimateService(resolver IndexResolver, baskets BasketProvider, logger *log.Logger) *EstimateService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentEstimate)
	return &EstimateService{
		resolver: resolver,
		baskets:  baskets,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
	}
}

// Estimate prices the household in req for its location.
func (s *EstimateService) Estimate(ctx context.Context, req EstimateRequest) (EstimateResult, error) {
	if req.Country != "" && !core.IsSupportedCountry(req.Country) {
		metrics.EstimatesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return EstimateResult{}, fmt.Errorf("%w: %q", core.ErrUnsupportedCountry, req.Country)
	}

	p := req.Profile
	p.State = strings.TrimSpace(p.State)
	if err := p.Validate(); err != nil {
		metrics.EstimatesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return EstimateResult{}, err
	}

	res, err := s.resolver.Resolve(ctx, p.State)
	if err != nil {
		outcome := metrics.OutcomeFailure
		if errors.Is(err, core.ErrUnresolvedLocation) {
			outcome = metrics.OutcomeRejected
		}
		metrics.EstimatesTotal.WithLabelValues(outcome).Inc()
		return EstimateResult{}, fmt.Errorf("resolve price index: %w", err)
	}

	b, err := s.baskets.Basket()
	if err != nil {
		metrics.EstimatesTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		return EstimateResult{}, fmt.Errorf("load base basket: %w", err)
	}

	out := EstimateResult{
		Profile:    p,
		Resolution: res,
		Breakdown:  core.Estimate(p, res.Index, b),
	}
	metrics.EstimatesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	metrics.EstimateMonthlyTotal.Observe(out.Breakdown.Total)

	s.events.LogEstimate(ctx,
		log.NewFields().WithHousehold(p.State, p.Adults, p.Kids, string(p.Bedrooms)),
		log.NewFields().WithResolution(res.Location, float64(res.Index), string(res.Match), res.Source, res.OutOfRange),
		out.Breakdown.Total)

	if req.Assumptions != nil {
		rec, err := s.RecommendIncome(ctx, out.Breakdown.Total, *req.Assumptions)
		if err != nil {
			return EstimateResult{}, err
		}
		out.Income = &rec
	}
	return out, nil
}

// RecommendIncome runs the income engine for a known monthly cost.
func (s *EstimateService) RecommendIncome(ctx context.Context, monthlyCost float64, a core.IncomeAssumptions) (core.IncomeRecommendation, error) {
	if !(monthlyCost >= 0) || math.IsInf(monthlyCost, 1) {
		metrics.IncomeRecommendationsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return core.IncomeRecommendation{}, fmt.Errorf("%w: monthly cost %.2f", core.ErrInvalidAmount, monthlyCost)
	}

	rec, err := core.RecommendIncome(monthlyCost, a)
	if err != nil {
		metrics.IncomeRecommendationsTotal.WithLabelValues(metrics.OutcomeFailure).Inc()
		s.events.LogError(ctx, "Income recommendation failed", err, log.ComponentIncome, log.OpRecommend, nil)
		return core.IncomeRecommendation{}, fmt.Errorf("recommend income: %w", err)
	}
	if math.IsInf(rec.GrossAnnual, 0) || math.IsNaN(rec.GrossAnnual) {
		metrics.IncomeRecommendationsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return core.IncomeRecommendation{}, fmt.Errorf("%w: monthly cost %.2f is too large", core.ErrInvalidAmount, monthlyCost)
	}

	metrics.IncomeRecommendationsTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.events.LogIncome(ctx, monthlyCost, a.SavingsRate, a.EffectiveTaxRate, a.Buffer, rec.GrossMonthly)
	return rec, nil
}
