package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "messages_sent_total",
		Help:      "Messages accepted by the message service.",
	})

	// MessagesFlagged counts accepted messages whose body would be redacted
	// for the receiver.
	MessagesFlagged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "messages_flagged_total",
		Help:      "Messages containing contact details subject to redaction.",
	})

	ReadAcks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "read_acks_total",
		Help:      "Conversation read acknowledgements.",
	})

	SendRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "send_rejections_total",
		Help:      "Send requests rejected, by reason.",
	}, []string{"reason"})

	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "volunteerhub",
		Name:      "ws_clients",
		Help:      "Open private channel connections.",
	})
)
