// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "habit_challenge"

var (
	// RecomputeTotal counts recompute invocations by operation and outcome.
	RecomputeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recompute_total",
			Help:      "Total number of participant recomputes",
		},
		[]string{"operation", "outcome"},
	)

	// RecomputeDuration observes how long a single participant recompute takes, store I/O included.
	RecomputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Duration of participant recomputes",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// DaysEvaluatedTotal counts elapsed due days applied to counters.
	DaysEvaluatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "days_evaluated_total",
			Help:      "Total number of elapsed due days applied to participant counters",
		},
		[]string{"result"},
	)

	// TransitionsTotal counts lifecycle transitions by target state.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_transitions_total",
			Help:      "Total number of participant lifecycle transitions",
		},
		[]string{"state"},
	)

	// SkippedConfirmationsTotal counts confirmation log entries ignored as malformed.
	SkippedConfirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_confirmations_total",
			Help:      "Total number of malformed confirmation log entries skipped",
		},
		[]string{"reason"},
	)

	// StoreConflictsTotal counts optimistic write conflicts that were retried.
	StoreConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_conflicts_total",
			Help:      "Total number of optimistic stats write conflicts",
		},
		[]string{"backend"},
	)

	// BatchRunsTotal counts scheduled batch runs by outcome.
	BatchRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_runs_total",
			Help:      "Total number of scheduled recompute batches",
		},
		[]string{"outcome"},
	)

	// HTTPRequestsTotal counts API requests.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	// HTTPRequestDuration observes API latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

// Collectors returns every application collector for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RecomputeTotal,
		RecomputeDuration,
		DaysEvaluatedTotal,
		TransitionsTotal,
		SkippedConfirmationsTotal,
		StoreConflictsTotal,
		BatchRunsTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	}
}

// Register adds the application collectors to registry.
func Register(registry prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}
