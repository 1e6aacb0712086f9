package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample is one gathered series, keyed by family name plus one label pair.
type sample struct {
	family, label, value string
}

// gather flattens reg into sample -> value. Counters and gauges report their
// value; histograms report their sum.
func gather(t *testing.T, reg *prometheus.Registry) map[sample]float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)

	out := map[sample]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			v := seriesValue(mf.GetType(), m)
			if len(m.GetLabel()) == 0 {
				out[sample{family: mf.GetName()}] = v
			}
			for _, lp := range m.GetLabel() {
				out[sample{mf.GetName(), lp.GetName(), lp.GetValue()}] += v
			}
		}
	}
	return out
}

func seriesValue(kind dto.MetricType, m *dto.Metric) float64 {
	switch kind {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	case dto.MetricType_HISTOGRAM:
		return m.GetHistogram().GetSampleSum()
	}
	return 0
}

func TestCronJobMetricsObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	const job = "attendance-auto-close"
	m.ObserveRun(job, OutcomeSuccess, 250*time.Millisecond)
	m.ObserveRun(job, OutcomeFailure, 100*time.Millisecond)
	m.ObserveRun(job, OutcomeSkipped, 0)

	got := gather(t, reg)
	for _, outcome := range []string{OutcomeSuccess, OutcomeFailure, OutcomeSkipped} {
		assert.Equal(t, 1.0, got[sample{"ludi_cron_job_runs_total", "outcome", outcome}], outcome)
	}
	assert.InDelta(t, 0.35, got[sample{"ludi_cron_job_duration_seconds", "job", job}], 0.001, "skipped runs carry no duration")
	assert.Equal(t, 1_700_000_000.0, got[sample{"ludi_cron_job_last_success_timestamp_seconds", "job", job}])
}

func TestCronJobMetricsNilIsNoop(t *testing.T) {
	var m *CronJobMetrics
	assert.NotPanics(t, func() { m.ObserveRun("job", OutcomeSuccess, time.Second) })
	assert.Nil(t, NewCronJobMetrics(nil))
}

func TestCronJobMetricsBlankJobLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCronJobMetrics(reg).ObserveRun("", OutcomeFailure, time.Millisecond)
	assert.Equal(t, 1.0, gather(t, reg)[sample{"ludi_cron_job_runs_total", "job", "unknown"}])
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe("/api/v1/points/send", "POST", 201, 40*time.Millisecond)
	m.Observe("/api/v1/points/send", "POST", 201, 10*time.Millisecond)

	assert.Equal(t, 2.0, gather(t, reg)[sample{"ludi_http_requests_total", "route", "/api/v1/points/send"}])

	var none *HTTPMetrics
	assert.NotPanics(t, func() { none.Observe("/x", "GET", 200, time.Millisecond) })
}
