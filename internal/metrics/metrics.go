// Package metrics defines the Prometheus instruments exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PlanRequests counts dispatched planning requests by trigger.
	PlanRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globalplanner_plan_requests_total",
		Help: "Planning requests dispatched, by trigger",
	}, []string{"trigger"})

	// PlanResults counts planning outcomes.
	PlanResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globalplanner_plan_results_total",
		Help: "Planning results by outcome (installed, discarded, failed)",
	}, []string{"outcome"})

	// PlanFailures counts failed plans by reason.
	PlanFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globalplanner_plan_failures_total",
		Help: "Planning failures by reason",
	}, []string{"reason"})

	// PlanDuration tracks planning latency.
	PlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "globalplanner_plan_duration_seconds",
		Help:    "Planning duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	// SearchExpansions tracks vertices expanded per search.
	SearchExpansions = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "globalplanner_search_expansions",
		Help:    "Vertices expanded per route search",
		Buckets: prometheus.ExponentialBuckets(10, 4, 9),
	})

	// CostEntries is the number of live cost overlay entries.
	CostEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "globalplanner_cost_entries",
		Help: "Entries currently held by the cost overlay",
	})

	// MissionState is 1 for the current supervisor state and 0 otherwise.
	MissionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "globalplanner_mission_state",
		Help: "Current mission state (1 = active)",
	}, []string{"state"})

	// GoalIndex is the current destination index.
	GoalIndex = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "globalplanner_goal_index",
		Help: "Index of the current destination",
	})

	// MapVersion is the road network content version.
	MapVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "globalplanner_map_version",
		Help: "Road network content version",
	})

	// BridgeEvents counts socket.io events by direction and name.
	BridgeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "globalplanner_bridge_events_total",
		Help: "Socket.IO events handled, by direction and event name",
	}, []string{"direction", "event"})
)

// SetState marks state as the active mission state among all known states.
func SetState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		MissionState.WithLabelValues(s).Set(v)
	}
}

// ObserveExpansions records one search's expansion count.
func ObserveExpansions(n int) {
	SearchExpansions.Observe(float64(n))
}
