package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricPanic = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relaysend_panic_total",
		Help: "Number of unhandled panics, by package.",
	},
	[]string{
		"pkg",
	},
)

// PanicInc records a recovered panic originating from pkg. Called from a
// deferred recover() around code that must not take the whole daemon down
// with it, e.g. one delivery attempt.
func PanicInc(pkg string) {
	metricPanic.WithLabelValues(pkg).Inc()
}
