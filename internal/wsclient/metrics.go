package wsclient

import "github.com/prometheus/client_golang/prometheus"

var metricsNamespace = "promptstream"

var (
	dialTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "client",
		Name:      "dial_total",
		Help:      "Number of connection attempts by result.",
	}, []string{"result"})
	reconnectsScheduledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "client",
		Name:      "reconnects_scheduled_total",
		Help:      "Number of scheduled reconnect attempts.",
	})
	reconnectsExhaustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "client",
		Name:      "reconnects_exhausted_total",
		Help:      "Number of times reconnect attempts ran out.",
	})
	messagesReceivedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "client",
		Name:      "messages_received_total",
		Help:      "Number of inbound frames.",
	})
	parseErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "client",
		Name:      "parse_errors_total",
		Help:      "Number of inbound frames which could not be decoded.",
	})
	messagesSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "client",
		Name:      "messages_sent_total",
		Help:      "Number of outbound frames written.",
	})
	sendRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "client",
		Name:      "send_rejected_total",
		Help:      "Number of rejected Send calls by reason.",
	}, []string{"reason"})
	connectionsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "client",
		Name:      "connections",
		Help:      "Number of clients in each state.",
	}, []string{"state"})
)

func init() {
	prometheus.MustRegister(dialTotal)
	prometheus.MustRegister(reconnectsScheduledTotal)
	prometheus.MustRegister(reconnectsExhaustedTotal)
	prometheus.MustRegister(messagesReceivedTotal)
	prometheus.MustRegister(parseErrorsTotal)
	prometheus.MustRegister(messagesSentTotal)
	prometheus.MustRegister(sendRejectedTotal)
	prometheus.MustRegister(connectionsGauge)
}
