package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("ledger:reconcile").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("ledger:reconcile").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:reconcile", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:reconcile", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("ledger:reconcile")))

	m.SetDiscrepancies(3)
	m.SetStockAlerts("low_stock", 4)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.discrepancies))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.alerts.WithLabelValues("low_stock")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("x").End(boom), boom)
	m.SetDiscrepancies(1)
	m.SetStockAlerts("expiring", 1)
}
