package restapi

import "github.com/prometheus/client_golang/prometheus"

var metricsNamespace = "promptstream"

var (
	callDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "restapi",
		Name:      "duration_seconds",
		Buckets:   prometheus.DefBuckets,
		Help:      "Histogram of duration of REST API call.",
	}, []string{"method"})
	callErrorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "restapi",
		Name:      "errors",
		Help:      "REST API call error count.",
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(callDurationHistogram)
	prometheus.MustRegister(callErrorCount)
}
