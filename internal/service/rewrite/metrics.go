package rewrite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rewriteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zotion_rewrite_requests_total",
			Help: "AI rewrite requests by response status",
		},
		[]string{"status"},
	)

	rewriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "zotion_rewrite_duration_seconds",
			Help:    "Time spent handling AI rewrite requests",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
	)
)
