package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_processed_total",
		Help: "Total number of committed sales",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of rejected or rolled back sales",
	}, []string{"reason"})

	SaleLinesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_lines_total",
		Help: "Total number of committed sale lines",
	})

	SaleProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_processing_latency_seconds",
		Help:    "Latency of the sale unit of work, lock waits included",
		Buckets: prometheus.DefBuckets,
	})

	SaleLockWaitLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_lock_wait_seconds",
		Help:    "Time spent acquiring the product row locks of a sale",
		Buckets: prometheus.DefBuckets,
	})

	SaleReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_idempotent_replays_total",
		Help: "Total number of sales answered from the idempotency cache",
	})

	StockReplenishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_replenished_units_total",
		Help: "Total number of units added to stock",
	})

	ProductsArchivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_archived_total",
		Help: "Total number of archived products",
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of low stock alerts raised by the worker",
	})

	ExpensesRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "expenses_recorded_total",
		Help: "Total number of recorded expenses",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
