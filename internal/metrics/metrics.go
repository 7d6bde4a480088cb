// Package metrics declares the prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, path and status code",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and path",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Push notifications submitted to the gateway by event type and result",
	}, []string{"event", "result"})

	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Events dropped because the dispatch queue was full",
	})

	DeliveriesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_resolved_total",
		Help: "Delivery steps resolved by outcome (completed or skipped)",
	}, []string{"outcome"})

	ActiveStatusStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "status_streams_active",
		Help: "Currently connected delivery status stream clients",
	})
)
