// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekaya_catalog_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ekaya_catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// ImportRowsTotal counts planned or applied import rows by outcome.
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekaya_catalog_import_rows_total",
			Help: "Import rows by kind and outcome (add/update/skip reason)",
		},
		[]string{"kind", "outcome"},
	)

	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekaya_catalog_imports_total",
			Help: "Applied imports by kind and result",
		},
		[]string{"kind", "result"}, // success/failure
	)

	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ekaya_catalog_import_duration_seconds",
			Help:    "Time spent planning and applying an import",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind", "phase"}, // plan/apply
	)

	PlanStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekaya_catalog_plan_store_operations_total",
			Help: "Staged import plan store operations",
		},
		[]string{"backend", "operation", "result"}, // redis/memory, save/load/delete, ok/miss/error
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekaya_catalog_llm_requests_total",
			Help: "LLM requests by provider and result",
		},
		[]string{"provider", "result"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ekaya_catalog_llm_request_duration_seconds",
			Help:    "LLM request duration in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)
)
