// Package metrics provides Prometheus metrics for the Ohara backend.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ohara_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Report Metrics
	ReportsGeneratedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ohara_reports_generated_total",
			Help: "Total number of collection valuation reports generated",
		},
	)

	ReportsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ohara_reports_failed_total",
			Help: "Total number of report generations that ended in error",
		},
	)

	ReportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ohara_report_duration_seconds",
			Help:    "End-to-end report generation time",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	// Image Metrics
	ReportImagesLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ohara_report_images_loaded_total",
			Help: "Card images successfully materialized for reports",
		},
	)

	ReportImagesFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ohara_report_images_failed_total",
			Help: "Card image loads that timed out or failed to decode",
		},
	)

	ProxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ohara_proxy_requests_total",
			Help: "Image proxy requests by outcome",
		},
		[]string{"outcome"}, // "ok", "rejected", "upstream_error"
	)

	// Sales Worker Metrics
	SalesRefreshesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ohara_sales_refreshes_total",
			Help: "Total number of card sales refreshes completed",
		},
	)

	SalesRefreshErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ohara_sales_refresh_errors_total",
			Help: "Card sales refreshes that failed against TCGPlayer",
		},
	)

	SalesBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ohara_sales_batch_duration_seconds",
			Help:    "Time taken to process a sales refresh batch",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// TCGPlayer API Metrics
	TCGPlayerQuotaRemaining = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ohara_tcgplayer_quota_remaining",
			Help: "Remaining TCGPlayer API requests for today",
		},
	)

	TCGPlayerQuotaLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ohara_tcgplayer_quota_limit",
			Help: "Daily TCGPlayer API request limit",
		},
	)
)
