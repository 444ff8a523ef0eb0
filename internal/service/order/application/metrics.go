// internal/service/order/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Number of successful order status transitions, by target status.",
	}, []string{"to"})

	reaperSweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_reaper_sweeps_total",
		Help: "Number of reaper sweeps executed.",
	})

	reaperCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_reaper_cancelled_total",
		Help: "Number of timed-out orders auto-cancelled by the reaper.",
	})

	reaperFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_reaper_failures_total",
		Help: "Number of orders the reaper failed to cancel (excluding lost races).",
	})
)
