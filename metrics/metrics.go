// Package metrics holds the process-wide prometheus collectors exported by
// the delivery daemon, and the small HTTP server that serves them.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var metricSweeps = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "relaysend_sweeps_total",
		Help: "Number of queue sweeps started.",
	},
)

var metricAttempts = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relaysend_delivery_attempts_total",
		Help: "Number of delivery attempts, by outcome.",
	},
	[]string{"outcome"},
)

var metricDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "relaysend_delivery_duration_seconds",
		Help:    "Time spent running a protocol helper for one delivery attempt, by outcome.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	},
	[]string{"outcome"},
)

var metricQueueMessages = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "relaysend_queue_messages",
		Help: "Number of messages currently in the working set at the start of the last sweep.",
	},
)

// SweepStarted records the start of a new sweep.
func SweepStarted() {
	metricSweeps.Inc()
}

// DeliveryAttempt records one delivery attempt's outcome and duration.
func DeliveryAttempt(outcome string, seconds float64) {
	metricAttempts.WithLabelValues(outcome).Inc()
	metricDuration.WithLabelValues(outcome).Observe(seconds)
}

// QueueSize records the size of the working set at the start of a sweep.
func QueueSize(n int) {
	metricQueueMessages.Set(float64(n))
}

// Serve runs an HTTP server exposing /metrics on addr until ctx is
// cancelled. Grounded on mox's metrics HTTP listener, trimmed to the single
// unauthenticated /metrics endpoint this daemon needs — there is no admin
// surface to protect here.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Close()
	case err := <-errCh:
		return err
	}
}
