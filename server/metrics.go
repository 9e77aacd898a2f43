package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recserve_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recserve_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	recommendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recserve_recommend_errors_total",
			Help: "Recommendation failures by error code",
		},
		[]string{"code"},
	)

	catalogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recserve_catalog_items",
			Help: "Number of items in the loaded catalog",
		},
	)
)
