// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EstimatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livingcost_estimates_total",
			Help: "Cost estimates served, by outcome",
		},
		[]string{"outcome"},
	)

	EstimateMonthlyTotal = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "livingcost_estimate_monthly_usd",
			Help:    "Estimated monthly household cost in USD",
			Buckets: prometheus.ExponentialBuckets(1000, 1.5, 10),
		},
	)

	IncomeRecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livingcost_income_recommendations_total",
			Help: "Income recommendations served, by outcome",
		},
		[]string{"outcome"},
	)

	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livingcost_price_index_resolutions_total",
			Help: "Price index lookups, by match kind",
		},
		[]string{"match"},
	)

	TableLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livingcost_price_table_loads_total",
			Help: "Price table loads, by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	TableLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "livingcost_price_table_load_duration_seconds",
			Help: "Duration of price table loads in seconds",
		},
		[]string{"source"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livingcost_http_requests_total",
			Help: "HTTP requests served, by method and status code",
		},
		[]string{"method", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "livingcost_http_request_duration_seconds",
			Help: "HTTP request latency in seconds",
		},
		[]string{"method"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livingcost_http_rate_limited_total",
			Help: "Requests rejected by the per-client rate limit",
		},
	)

	SuspiciousRequestsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livingcost_http_suspicious_requests_total",
			Help: "Requests matching a known probe or scanner pattern",
		},
	)

	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livingcost_price_table_refreshes_total",
			Help: "Scheduled price table refreshes, by outcome",
		},
		[]string{"outcome"},
	)
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeFallback = "fallback"
	OutcomeRejected = "rejected"
)
