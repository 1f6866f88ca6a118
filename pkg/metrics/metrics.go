// Package metrics declares the gateway's Prometheus collectors, in the
// promauto package-level-var style the originating codebase uses.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesProcessedTotal counts every order message the book accepts
	// through the gateway, labeled by the operation (add, update, remove).
	MessagesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobgate_messages_processed_total",
		Help: "Total number of order messages processed by the book.",
	}, []string{"op"})

	// MessagesRejectedTotal counts rejected messages, labeled by the
	// sentinel error that caused the rejection.
	MessagesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lobgate_messages_rejected_total",
		Help: "Total number of order messages rejected by the book.",
	}, []string{"reason"})

	// ProcessingDuration measures wall time the gateway spends applying one
	// order message: the Book.Add/Update/Remove call, the gauge refresh and
	// any rejection logging.
	ProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lobgate_processing_seconds",
		Help:    "Time spent processing a single order message.",
		Buckets: prometheus.ExponentialBuckets(1e-7, 4, 12),
	})

	// BookDepth reports the number of resting price levels that
	// Book.Levels returns, labeled by side; levels crossed against the
	// opposite side's best are not counted.
	BookDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lobgate_book_depth",
		Help: "Number of distinct resting price levels not crossed by the opposite side.",
	}, []string{"side"})

	// BestPrice reports the current best bid/ask price, labeled by side.
	// Absent when that side of the book is empty.
	BestPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lobgate_best_price",
		Help: "Current best bid/ask price.",
	}, []string{"side"})

	// ActiveConnections reports the number of websocket subscribers
	// currently attached to the top-of-book stream.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lobgate_stream_connections",
		Help: "Number of active websocket subscribers.",
	})
)
