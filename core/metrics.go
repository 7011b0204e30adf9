package core

import "github.com/prometheus/client_golang/prometheus"

const prometheusNamespace = "idena"

var RequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: prometheusNamespace,
	Name:      "rpc_requests_total",
	Help:      "Number of RPC requests sent to the node",
}, []string{"method"})

var ErrorsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: prometheusNamespace,
	Name:      "rpc_errors_total",
	Help:      "RPC Errors Counter",
}, []string{"method"})

var RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: prometheusNamespace,
	Name:      "rpc_request_duration_seconds",
	Help:      "RPC request latency",
	Buckets:   prometheus.DefBuckets,
}, []string{"method"})

var EpochGauge = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: prometheusNamespace,
	Name:      "epoch",
	Help:      "Current epoch",
})

var FlipsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: prometheusNamespace,
	Name:      "identity_flips",
	Help:      "Required and made flips of the watched identity",
}, []string{"address", "kind"})

// Collectors returns every collector of the package, for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		RequestsCounter,
		ErrorsCounter,
		RequestDuration,
		EpochGauge,
		FlipsGauge,
	}
}
