package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordCounters(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.ScanStarted()
	m.ScanCompleted(1.5, 42)
	m.ScanFailed()
	m.ScanRetried()
	m.ValidationSubmitted()
	m.ValidationUndone()
	m.SetPendingValidations(7)
	m.RetrainingRun("deployed", 12.0)
	m.RetrainingRun("failed", 3.0)

	gathered, err := m.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, gathered)

	assert.InDelta(t, 42, testutil.ToFloat64(m.commentsScanned), 0.001)
	assert.InDelta(t, 7, testutil.ToFloat64(m.pendingValidations), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.retrainingRuns.WithLabelValues("deployed")), 0.001)
}

func TestActiveModelInfoSwitchesVersions(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	m.SetActiveModel("v20260801_120000")
	m.SetActiveModel("v20260802_120000")

	assert.InDelta(t, 0, testutil.ToFloat64(m.activeModelInfo.WithLabelValues("v20260801_120000")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(m.activeModelInfo.WithLabelValues("v20260802_120000")), 0.001)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	m.ScanStarted()
	m.ScanCompleted(0, 0)
	m.ScanFailed()
	m.ScanRetried()
	m.ValidationSubmitted()
	m.ValidationUndone()
	m.SetPendingValidations(0)
	m.RetrainingRun("skipped", 0)
	m.SetActiveModel("v1")
	assert.Nil(t, m.Registry())
}
