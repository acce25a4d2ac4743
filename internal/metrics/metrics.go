package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PacketsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "benefit_solver_packets_received_total",
		Help: "Total number of packets read from the rapid.",
	})

	PacketsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "benefit_solver_packets_dropped_total",
		Help: "Total number of rapid messages that were not JSON objects.",
	})

	NeedsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "benefit_solver_needs_handled_total",
		Help: "Total number of needs handled, labelled by need type and outcome.",
	}, []string{"behov", "outcome"})

	NeedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "benefit_solver_need_duration_seconds",
		Help:    "Time from handler start to publish, labelled by need type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"behov"})

	LookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "benefit_solver_lookup_duration_seconds",
		Help:    "Backend lookup latency, labelled by source and status.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"source", "status"})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "benefit_solver_breaker_state",
		Help: "Circuit breaker state per backend (0 closed, 1 half-open, 2 open).",
	}, []string{"name"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "benefit_solver_queue_depth",
		Help: "Packets waiting for a dispatcher worker.",
	})
)
