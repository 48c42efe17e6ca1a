package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(automationRunsTotal, automationClaimConflicts, automationSweepDuration, automationStoresDue)
}

var automationRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "automation_runs_total",
		Help: "Automation run attempts by outcome.",
	},
	[]string{"outcome"}, // 'succeeded', 'retrying', 'error'
)

var automationClaimConflicts = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "automation_claim_conflicts_total",
		Help: "Claims lost to another instance or an ineligible state.",
	},
)

var automationSweepDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "automation_sweep_duration_ms",
		Help:    "Due-sweep cycle duration in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	},
)

var automationStoresDue = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "automation_stores_due",
		Help: "Stores flipped to due in the last sweep.",
	},
)

func IncAutomationRun(outcome string) {
	automationRunsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncClaimConflict() { automationClaimConflicts.Inc() }

func ObserveSweep(durationMs float64, due int) {
	automationSweepDuration.Observe(durationMs)
	automationStoresDue.Set(float64(due))
}
