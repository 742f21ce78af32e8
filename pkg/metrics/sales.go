package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SalesMetrics tracks the point-of-sale write path. A nil receiver is a no-op.
type SalesMetrics struct {
	salesCreated      prometheus.Counter
	salesCancelled    prometheus.Counter
	movements         *prometheus.CounterVec
	rejected          *prometheus.CounterVec
	numberingAttempts prometheus.Histogram
	txDuration        *prometheus.HistogramVec
}

// NewSalesMetrics registers the sales metrics on the provided registerer.
func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	if reg == nil {
		return nil
	}
	m := &SalesMetrics{
		salesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "created_total",
			Help:      "Committed sales.",
		}),
		salesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "cancelled_total",
			Help:      "Cancelled sales.",
		}),
		movements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "kardex",
			Name:      "movements_total",
			Help:      "Committed stock movements by movement code.",
		}, []string{"code"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "rejected_total",
			Help:      "Operations rolled back, by operation and error code.",
		}, []string{"operation", "code"}),
		numberingAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "invoice_numbering_attempts",
			Help:      "Attempts needed to allocate an invoice number.",
			Buckets:   []float64{1, 2, 3, 5, 10, 25, 50, 100},
		}),
		txDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sales",
			Name:      "unit_of_work_seconds",
			Help:      "Duration of coordinator units of work.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	reg.MustRegister(m.salesCreated, m.salesCancelled, m.movements, m.rejected, m.numberingAttempts, m.txDuration)
	return m
}

func (m *SalesMetrics) IncSaleCreated() {
	if m == nil {
		return
	}
	m.salesCreated.Inc()
}

func (m *SalesMetrics) IncSaleCancelled() {
	if m == nil {
		return
	}
	m.salesCancelled.Inc()
}

// AddMovements counts committed movements for a movement code.
func (m *SalesMetrics) AddMovements(code string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(code)).Add(float64(n))
}

// IncRejected counts an operation that ended without committing.
func (m *SalesMetrics) IncRejected(operation, code string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

func (m *SalesMetrics) ObserveNumberingAttempts(attempts int) {
	if m == nil {
		return
	}
	m.numberingAttempts.Observe(float64(attempts))
}

func (m *SalesMetrics) ObserveUnitOfWork(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.txDuration.WithLabelValues(normalizeLabel(operation)).Observe(d.Seconds())
}
