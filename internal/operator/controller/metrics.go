package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
)

var (
	// Reconciliation metrics
	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devworkspace",
			Subsystem: "controller",
			Name:      "reconcile_total",
			Help:      "Total number of reconciliations by lifecycle event and result",
		},
		[]string{"event", "result"},
	)

	reconcileDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "devworkspace",
			Subsystem: "controller",
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconciliation in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 16), // 10ms to ~5min
		},
		[]string{"event"},
	)

	// Workspace metrics
	phaseTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devworkspace",
			Subsystem: "workspace",
			Name:      "phase_transitions_total",
			Help:      "Total number of workspace phase transitions by target phase",
		},
		[]string{"phase"},
	)

	readinessWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "devworkspace",
			Subsystem: "workspace",
			Name:      "readiness_wait_seconds",
			Help:      "Time spent waiting for a workspace pod to run, by result",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
		},
		[]string{"result"},
	)

	urlResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devworkspace",
			Subsystem: "workspace",
			Name:      "url_resolutions_total",
			Help:      "Total number of service URL resolutions by result",
		},
		[]string{"result"},
	)

	recreationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "devworkspace",
			Subsystem: "workspace",
			Name:      "recreations_total",
			Help:      "Total number of pod and service recreations triggered by override changes",
		},
	)
)

func init() {
	// Register metrics with controller-runtime's registry
	metrics.Registry.MustRegister(
		reconcileTotal,
		reconcileDuration,
		phaseTransitionsTotal,
		readinessWaitDuration,
		urlResolutionsTotal,
		recreationsTotal,
	)
}

// recordReconcileMetric records a reconciliation result.
func recordReconcileMetric(event, result string, duration float64) {
	reconcileTotal.WithLabelValues(event, result).Inc()
	reconcileDuration.WithLabelValues(event).Observe(duration)
}

// recordPhaseTransitionMetric records a workspace entering phase.
func recordPhaseTransitionMetric(phase string) {
	phaseTransitionsTotal.WithLabelValues(phase).Inc()
}

// recordReadinessWaitMetric records how long a readiness wait took.
func recordReadinessWaitMetric(result string, duration float64) {
	readinessWaitDuration.WithLabelValues(result).Observe(duration)
}

// recordURLResolutionMetric records whether a URL was resolved.
func recordURLResolutionMetric(resolved bool) {
	if resolved {
		urlResolutionsTotal.WithLabelValues("resolved").Inc()
	} else {
		urlResolutionsTotal.WithLabelValues("unknown").Inc()
	}
}

func (r *DevWorkspaceReconciler) recordReconcile(event, result string, duration float64) {
	if r.enableMetrics {
		recordReconcileMetric(event, result, duration)
	}
}

func (r *DevWorkspaceReconciler) recordPhaseTransition(phase string) {
	if r.enableMetrics {
		recordPhaseTransitionMetric(phase)
	}
}

func (r *DevWorkspaceReconciler) recordReadinessWait(result string, duration float64) {
	if r.enableMetrics {
		recordReadinessWaitMetric(result, duration)
	}
}

func (r *DevWorkspaceReconciler) recordURLResolution(resolved bool) {
	if r.enableMetrics {
		recordURLResolutionMetric(resolved)
	}
}

func (r *DevWorkspaceReconciler) recordRecreation() {
	if r.enableMetrics {
		recreationsTotal.Inc()
	}
}
