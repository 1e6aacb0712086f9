package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics tracks the ledger, attendance and reconciliation flows.
type DomainMetrics struct {
	pointsSent          *prometheus.CounterVec
	pointsRejected      *prometheus.CounterVec
	clockIns            *prometheus.CounterVec
	notificationFailed  prometheus.Counter
	ghostUsers          prometheus.Gauge
	ghostUsersDeleted   prometheus.Counter
	attendanceAutoClose prometheus.Counter
}

// NewDomainMetrics registers domain metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewDomainMetrics(reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		return &DomainMetrics{}
	}
	m := &DomainMetrics{
		pointsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_sent_total",
			Help:      "Points appended to the ledger.",
		}, []string{"type"}),
		pointsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_rejected_total",
			Help:      "Point sends rejected before reaching the ledger.",
		}, []string{"reason"}),
		clockIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_clock_in_total",
			Help:      "Clock-in attempts by outcome.",
		}, []string{"result"}),
		notificationFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_create_failures_total",
			Help:      "Best-effort notifications that could not be stored.",
		}),
		ghostUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reconciliation_ghost_users",
			Help:      "Ghost users found by the last reconciliation check.",
		}),
		ghostUsersDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliation_ghost_users_deleted_total",
			Help:      "Ghost users removed by reconciliation execute.",
		}),
		attendanceAutoClose: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_auto_closed_total",
			Help:      "Open shifts closed by the auto-close job.",
		}),
	}
	reg.MustRegister(m.pointsSent, m.pointsRejected, m.clockIns, m.notificationFailed, m.ghostUsers, m.ghostUsersDeleted, m.attendanceAutoClose)
	return m
}

func (m *DomainMetrics) PointsSent(pointType string, points int) {
	if m == nil || m.pointsSent == nil {
		return
	}
	m.pointsSent.WithLabelValues(normalizeLabel(pointType)).Add(float64(points))
}

func (m *DomainMetrics) PointsRejected(reason string) {
	if m == nil || m.pointsRejected == nil {
		return
	}
	m.pointsRejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (m *DomainMetrics) ClockIn(result string) {
	if m == nil || m.clockIns == nil {
		return
	}
	m.clockIns.WithLabelValues(normalizeLabel(result)).Inc()
}

func (m *DomainMetrics) NotificationFailed() {
	if m == nil || m.notificationFailed == nil {
		return
	}
	m.notificationFailed.Inc()
}

func (m *DomainMetrics) SetGhostUsers(n int) {
	if m == nil || m.ghostUsers == nil {
		return
	}
	m.ghostUsers.Set(float64(n))
}

func (m *DomainMetrics) GhostUsersDeleted(n int) {
	if m == nil || m.ghostUsersDeleted == nil {
		return
	}
	m.ghostUsersDeleted.Add(float64(n))
}

func (m *DomainMetrics) AttendanceAutoClosed(n int) {
	if m == nil || m.attendanceAutoClose == nil {
		return
	}
	m.attendanceAutoClose.Add(float64(n))
}
