package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studenthub_http_requests_total",
			Help: "HTTP requests served, by method and status code.",
		},
		[]string{"method", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studenthub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	activityEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studenthub_activity_events_total",
			Help: "Activity stream events processed by the workers, by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	liveSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studenthub_live_subscribers",
			Help: "Open live comment feed connections.",
		},
	)
)

// Handler exposes the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency for every route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
		requestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveActivityEvent counts a processed stream event.
func ObserveActivityEvent(eventType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	activityEventsTotal.WithLabelValues(eventType, outcome).Inc()
}

// LiveSubscriberOpened and LiveSubscriberClosed track SSE connection count.
func LiveSubscriberOpened() { liveSubscribers.Inc() }
func LiveSubscriberClosed() { liveSubscribers.Dec() }
