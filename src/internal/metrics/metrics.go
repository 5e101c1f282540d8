// Package metrics registers the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	CreditsSpent       prometheus.Counter
	CreditsEarned      prometheus.Counter
	ReviewsSubmitted   prometheus.Counter
	AssignmentsCreated prometheus.Counter
	AssignmentsExpired prometheus.Counter
	SpendRejections    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		CreditsSpent: factory.NewCounter(prometheus.CounterOpts{
			Name: "credits_spent_total",
			Help: "Credits spent on submissions.",
		}),
		CreditsEarned: factory.NewCounter(prometheus.CounterOpts{
			Name: "credits_earned_total",
			Help: "Credits earned by reviewers.",
		}),
		ReviewsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "reviews_submitted_total",
			Help: "Successfully submitted reviews.",
		}),
		AssignmentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "assignments_created_total",
			Help: "Review assignments created by the matcher.",
		}),
		AssignmentsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "assignments_expired_total",
			Help: "Assignments expired by the sweep.",
		}),
		SpendRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "spend_rejections_total",
			Help: "Spend attempts rejected for insufficient credits.",
		}),
	}
}
