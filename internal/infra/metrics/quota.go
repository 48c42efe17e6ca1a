package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(quotaDenialsTotal, storesDeletedTotal, storesCreatedTotal) }

var quotaDenialsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "quota_denials_total",
		Help: "Store creations denied, by reason.",
	},
	[]string{"reason"}, // 'quota_exceeded', 'subscription_required'
)

var storesCreatedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "stores_created_total",
		Help: "Stores successfully created.",
	},
)

var storesDeletedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "stores_deleted_total",
		Help: "Stores successfully deleted.",
	},
)

func IncQuotaDenial(reason string) {
	quotaDenialsTotal.WithLabelValues(norm(reason)).Inc()
}

func IncStoreCreated() { storesCreatedTotal.Inc() }
func IncStoreDeleted() { storesDeletedTotal.Inc() }
