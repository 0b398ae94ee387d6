package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SearchRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "search_requests_total",
			Help: "Total number of establishment searches",
		},
	)

	SearchSourceResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_source_results_total",
			Help: "Candidates returned per search source",
		},
		[]string{"source"},
	)

	SearchSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_source_failures_total",
			Help: "Failed calls per search source",
		},
		[]string{"source"},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "End-to-end establishment search latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Notification events written to live connections",
		},
		[]string{"transport"},
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_connections",
			Help: "Currently open notification streams",
		},
	)
)
