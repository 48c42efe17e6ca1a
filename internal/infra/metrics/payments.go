package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(paymentsTotal, paymentsReconciled) }

var paymentsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "payments_total",
		Help: "Payments by status (pending/succeeded/failed).",
	},
	[]string{"status"},
)

var paymentsReconciled = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "payments_reconciled_total",
		Help: "Pending payments settled by the reconciler after a lost callback.",
	},
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentsReconciled(n int) {
	paymentsReconciled.Add(float64(n))
}
