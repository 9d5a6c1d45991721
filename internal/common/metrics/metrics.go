// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RemindersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminders_dispatched_total",
			Help: "Total number of reminders that reached a terminal delivery status",
		},
		[]string{"channel", "status"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "reminder_dispatch_duration_seconds",
			Help: "Duration of a full reminder dispatch in seconds",
		},
		[]string{"channel"},
	)

	ClaimConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_claim_conflicts_total",
			Help: "Claims lost to a concurrent worker or an operator cancel",
		},
	)

	SweepBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "reminder_sweep_batch_size",
			Help: "Number of due reminders claimed per sweep",
		},
	)

	SendRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_send_retries_total",
			Help: "Channel send attempts beyond the first",
		},
		[]string{"channel"},
	)
)
