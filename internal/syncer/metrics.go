package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	flushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailies",
			Subsystem: "sync",
			Name:      "flushed_total",
			Help:      "Queued items delivered to the remote service",
		},
		[]string{"kind", "queue"},
	)

	requeuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailies",
			Subsystem: "sync",
			Name:      "requeued_total",
			Help:      "Queued items left for a later flush after a failed send",
		},
		[]string{"kind", "queue"},
	)

	resultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailies",
			Subsystem: "sync",
			Name:      "results_total",
			Help:      "Terminal results recorded, by where they were written",
		},
		[]string{"kind", "outcome", "route"},
	)
)
