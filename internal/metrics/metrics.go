// Package metrics exposes Prometheus counters for call activity and webhook
// ingestion.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CallsStarted     *prometheus.CounterVec
	CallsCompleted   prometheus.Counter
	CallsFailed      prometheus.Counter
	WebhooksReceived *prometheus.CounterVec
	WebhooksRejected prometheus.Counter
	PlatformRequests *prometheus.CounterVec
	CacheLookups     *prometheus.CounterVec
	PlatformLatency  prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		CallsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relaydial_calls_started_total",
			Help: "Total number of calls initiated, by scenario",
		}, []string{"scenario"}),
		CallsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relaydial_calls_completed_total",
			Help: "Total number of calls that reached completed status",
		}),
		CallsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relaydial_calls_failed_total",
			Help: "Total number of calls that failed",
		}),
		WebhooksReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relaydial_webhooks_received_total",
			Help: "Total number of webhook events received, by event type",
		}, []string{"event"}),
		WebhooksRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "relaydial_webhooks_rejected_total",
			Help: "Total number of webhooks rejected for bad signatures",
		}),
		PlatformRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relaydial_platform_requests_total",
			Help: "Total number of platform API requests, by outcome",
		}, []string{"outcome"}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "relaydial_cache_lookups_total",
			Help: "Total number of cache lookups, by result",
		}, []string{"result"}),
		PlatformLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "relaydial_platform_request_duration_seconds",
			Help:    "Time taken for platform API requests",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RoundTripper instruments outbound platform requests with the request
// counter and latency histogram.
func (m *Metrics) RoundTripper(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		start := time.Now()
		resp, err := next.RoundTrip(r)
		m.PlatformLatency.Observe(time.Since(start).Seconds())

		outcome := "success"
		switch {
		case err != nil:
			outcome = "network_error"
		case resp.StatusCode >= 400:
			outcome = "error"
		}
		m.PlatformRequests.WithLabelValues(outcome).Inc()
		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
