package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.ObserveRun("outbox-retention", 250*time.Millisecond, nil)
	m.ObserveRun("outbox-retention", time.Second, errors.New("db gone"))
	m.IncSkipped("low-stock-sweep")
	m.IncFailure("")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("outbox-retention", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("outbox-retention", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("low-stock-sweep", OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", OutcomeFailure)))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("outbox-retention")), 0.0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	sum, err := fetchHistogramSum(mfs, "kardex_cron_job_duration_seconds", "job", "outbox-retention")
	require.NoError(t, err)
	assert.InDelta(t, 1.25, sum, 1e-9)
}

func TestCronJobMetricsNilIsNoop(t *testing.T) {
	require.Nil(t, NewCronJobMetrics(nil))
	var m *CronJobMetrics
	m.ObserveRun("x", time.Second, nil)
	m.IncFailure("x")
	m.IncSkipped("x")
}
