package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tastecircle_login_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tastecircle_register_total",
			Help: "Total number of user registrations",
		},
	)

	// Webhook events by type and outcome ("processed", "duplicate", "failed",
	// "rejected", "ignored")
	WebhookEventCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastecircle_webhook_events_total",
			Help: "Total number of payment webhook events by type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	// Purchase state transitions by resulting status
	PurchaseTransitionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastecircle_purchase_transitions_total",
			Help: "Total number of purchase status transitions",
		},
		[]string{"status"},
	)

	// Coupon redemptions by outcome ("success", "locked", "duplicate",
	// "expired", "not_found")
	RedemptionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastecircle_redemptions_total",
			Help: "Total number of coupon redemption attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Submission workflow operations ("create", "approve", "reject")
	SubmissionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastecircle_submissions_total",
			Help: "Total number of submission workflow operations",
		},
		[]string{"operation"},
	)

	// Authentication / authorization errors by type
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastecircle_auth_errors_total",
			Help: "Total number of authentication and authorization errors",
		},
		[]string{"type"},
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastecircle_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tastecircle_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tastecircle_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // operation can be "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tastecircle_info",
			Help: "Information about the service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(WebhookEventCounter)
	prometheus.MustRegister(PurchaseTransitionCounter)
	prometheus.MustRegister(RedemptionCounter)
	prometheus.MustRegister(SubmissionCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(HTTPRequestCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// RecordAuthError records an authentication error by type
func RecordAuthError(errorType string) {
	AuthErrorCounter.With(prometheus.Labels{"type": errorType}).Inc()
}

// RecordWebhookEvent records a webhook event by type and outcome
func RecordWebhookEvent(eventType, outcome string) {
	WebhookEventCounter.With(prometheus.Labels{"event_type": eventType, "outcome": outcome}).Inc()
}

// RecordPurchaseTransition records a purchase status transition
func RecordPurchaseTransition(status string) {
	PurchaseTransitionCounter.With(prometheus.Labels{"status": status}).Inc()
}

// RecordRedemption records a redemption attempt by outcome
func RecordRedemption(outcome string) {
	RedemptionCounter.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// RecordSubmissionOperation records a submission workflow operation
func RecordSubmissionOperation(operation string) {
	SubmissionCounter.With(prometheus.Labels{"operation": operation}).Inc()
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			return err
		}
	}
}
