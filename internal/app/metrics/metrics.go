// Package metrics exposes the Prometheus collectors for the backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "careconnect",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "careconnect",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	dosesMarked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "medicines",
			Name:      "doses_marked_total",
			Help:      "Total number of dose slots marked taken.",
		},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "notifications",
			Name:      "reminders_total",
			Help:      "Total number of reminder delivery attempts.",
		},
		[]string{"result"},
	)

	uploadsStored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "careconnect",
			Subsystem: "prescriptions",
			Name:      "uploads_total",
			Help:      "Total number of prescription images stored.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		dosesMarked,
		remindersSent,
		uploadsStored,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// IncrementInFlight tracks a request entering the handler chain.
func IncrementInFlight() { httpInFlight.Inc() }

// DecrementInFlight tracks a request leaving the handler chain.
func DecrementInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one handled request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDoseMarked counts a successful mark-taken transition.
func RecordDoseMarked() { dosesMarked.Inc() }

// RecordReminder counts a reminder delivery attempt by outcome.
func RecordReminder(delivered bool) {
	result := "failed"
	if delivered {
		result = "delivered"
	}
	remindersSent.WithLabelValues(result).Inc()
}

// RecordUpload counts a stored prescription image.
func RecordUpload() { uploadsStored.Inc() }
