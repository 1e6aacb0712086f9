package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestDomainMetricsRecordsLedgerAndReconciliation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.PointsSent("thanks", 3)
	m.PointsSent("thanks", 2)
	m.PointsRejected("allowance_exceeded")
	m.ClockIn("conflict")
	m.SetGhostUsers(4)
	m.GhostUsersDeleted(2)

	got := gather(t, reg)
	assert.Equal(t, 5.0, got[sample{"ludi_points_sent_total", "type", "thanks"}])
	assert.Equal(t, 1.0, got[sample{"ludi_points_rejected_total", "reason", "allowance_exceeded"}])
	assert.Equal(t, 1.0, got[sample{"ludi_attendance_clock_in_total", "result", "conflict"}])
	assert.Equal(t, 4.0, got[sample{family: "ludi_reconciliation_ghost_users"}])
}

func TestNilDomainMetricsIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		var m *DomainMetrics
		m.PointsSent("thanks", 1)
		m.NotificationFailed()
		NewDomainMetrics(nil).SetGhostUsers(1)
	})
}
