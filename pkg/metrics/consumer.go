package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConsumerMetrics counts how the analytics worker settled each message.
type ConsumerMetrics struct {
	messages *prometheus.CounterVec
}

func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return nil
	}
	return &ConsumerMetrics{
		messages: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "messages_total",
			Help:      "Pub/Sub messages settled by the analytics worker, by outcome.",
		}, []string{"event_type", "outcome"}),
	}
}

// Observe records one settled message. outcome is a short reason such as
// "handled", "duplicate" or "retry".
func (m *ConsumerMetrics) Observe(eventType, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
