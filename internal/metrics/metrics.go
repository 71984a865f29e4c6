package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ResponseTimeHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_time_seconds",
			Help:    "Histogram of response times",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// SubscriptionUpserts считает результаты Subscribe: result=created|updated.
	SubscriptionUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_upserts_total",
			Help: "Subscriptions created or updated",
		},
		[]string{"result", "billing_period"},
	)

	ReferralsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referrals_recorded_total",
			Help: "Referrals attributed at signup",
		},
	)

	DuplicateReferrals = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "referrals_duplicate_total",
			Help: "Rejected attempts to refer an already referred user",
		},
	)

	PlanCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plan_cache_lookups_total",
			Help: "Active plan cache lookups by outcome",
		},
		[]string{"outcome"}, // hit, miss, error
	)
)
