package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// HTTP surface
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "habitat_ws_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"route", "method", "code"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "habitat_ws_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	ActiveRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "habitat_ws_active_requests",
		Help: "Current in-flight requests",
	})

	// Task queue
	TaskTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "habitat_ws_task_total",
		Help: "Task completion count",
	}, []string{"action", "status"})

	TaskDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "habitat_ws_task_duration_seconds",
		Help:    "Task end-to-end duration including retries",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	}, []string{"action"})

	TaskRetryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "habitat_ws_task_retry_total",
		Help: "Task retry count",
	}, []string{"action"})

	TaskQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "habitat_ws_task_queue_depth",
		Help: "Submitted tasks not yet picked up by a worker",
	})

	// Status reconciliation
	StatusEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "habitat_ws_status_events_total",
		Help: "Announced workspace statuses",
	}, []string{"status"})

	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "habitat_ws_sns_notifications_total",
		Help: "SNS messages received",
	}, []string{"type", "result"})
)

func RegisterAll(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, ActiveRequests,
		TaskTotal, TaskDuration, TaskRetryTotal, TaskQueueDepth,
		StatusEventsTotal, NotificationsTotal,
	)
}
