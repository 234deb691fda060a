package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	pushesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apns_dispatch_sent_total",
		Help: "Total notifications accepted by APNs.",
	})
	pushesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apns_dispatch_rejected_total",
		Help: "Total notifications rejected by APNs, by reason code.",
	}, []string{"reason"})
	transportFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apns_dispatch_transport_failures_total",
		Help: "Total pushes that failed at the transport level.",
	})
	tokensUnregistered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "apns_dispatch_tokens_unregistered_total",
		Help: "Total device tokens removed after APNs reported them dead.",
	})
)

// RegisterMetrics registers the dispatch counters with the default
// Prometheus registry. Call once at startup.
func RegisterMetrics() {
	prometheus.MustRegister(
		pushesSent, pushesRejected,
		transportFailures, tokensUnregistered,
	)
}
