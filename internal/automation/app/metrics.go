package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSent         = "sent"
	outcomeScheduled    = "scheduled"
	outcomeDeduplicated = "deduplicated"
	outcomeFailed       = "failed"
	outcomeSkipped      = "skipped"
)

var (
	ruleOutcomesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "automation",
			Name:      "rule_outcomes_total",
			Help:      "Outcomes of matched automation rules per trigger evaluation.",
		},
		[]string{"trigger_type", "outcome"},
	)
	deliveriesProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "automation",
			Name:      "worker_deliveries_processed_total",
			Help:      "Deferred deliveries processed by the worker.",
		},
		[]string{"outcome"},
	)
	sendDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "automation",
			Name:      "send_duration_seconds",
			Help:      "Duration of the full send operation (sender resolution through message insert).",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"trigger_type"},
	)
)
