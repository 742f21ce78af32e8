package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsCountsPerEventType(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("sale_completed")
	m.IncPublished("sale_completed")
	m.IncFailed("stock_low")
	m.IncDeadLettered("sale_cancelled", "max_attempts")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "kardex_outbox_published_total", "event_type", "sale_completed"); err != nil || got != 2 {
		t.Fatalf("published = %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "kardex_outbox_publish_failures_total", "event_type", "stock_low"); err != nil || got != 1 {
		t.Fatalf("failures = %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "kardex_outbox_dead_lettered_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("dead lettered = %f err=%v", got, err)
	}
}

func TestNilOutboxMetricsIsNoop(t *testing.T) {
	var m *OutboxMetrics
	m.IncPublished("sale_completed")
	m.IncFailed("sale_completed")
	m.IncDeadLettered("sale_completed", "non_retryable")
	if NewOutboxMetrics(nil) != nil {
		t.Fatalf("expected nil metrics without a registerer")
	}
}
