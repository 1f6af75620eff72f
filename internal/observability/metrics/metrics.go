// Package metrics provides Prometheus instrumentation for the clinic API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clinic"

// ClinicMetrics tracks the operations that move money or clinical records.
// All methods are nil-safe so callers never need to guard instrumentation.
type ClinicMetrics struct {
	visitsCreated      prometheus.Counter
	visitsDeleted      prometheus.Counter
	lineItemsAdded     *prometheus.CounterVec
	lineItemsRemoved   *prometheus.CounterVec
	paymentsRecorded   prometheus.Counter
	reconcileDuration  prometheus.Histogram
	backupsTaken       prometheus.Counter
	restoresPerformed  prometheus.Counter
	dashboardCacheHits *prometheus.CounterVec
}

// New creates and registers the clinic metrics on the given registerer
func New(reg prometheus.Registerer) *ClinicMetrics {
	m := &ClinicMetrics{
		visitsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_created_total",
			Help:      "Number of visits created.",
		}),
		visitsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visits_deleted_total",
			Help:      "Number of visits deleted.",
		}),
		lineItemsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_items_added_total",
			Help:      "Number of line items added to visits.",
		}, []string{"kind"}),
		lineItemsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "line_items_removed_total",
			Help:      "Number of line items removed from visits.",
		}, []string{"kind"}),
		paymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Number of payment updates recorded.",
		}),
		reconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of billing-affecting repository operations.",
			Buckets:   prometheus.DefBuckets,
		}),
		backupsTaken: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backups_taken_total",
			Help:      "Number of backup snapshots taken.",
		}),
		restoresPerformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "restores_performed_total",
			Help:      "Number of restores performed.",
		}),
		dashboardCacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_cache_requests_total",
			Help:      "Dashboard KPI cache lookups by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.visitsCreated,
		m.visitsDeleted,
		m.lineItemsAdded,
		m.lineItemsRemoved,
		m.paymentsRecorded,
		m.reconcileDuration,
		m.backupsTaken,
		m.restoresPerformed,
		m.dashboardCacheHits,
	)
	return m
}

// VisitCreated increments the visit creation counter
func (m *ClinicMetrics) VisitCreated() {
	if m == nil {
		return
	}
	m.visitsCreated.Inc()
}

// VisitDeleted increments the visit deletion counter
func (m *ClinicMetrics) VisitDeleted() {
	if m == nil {
		return
	}
	m.visitsDeleted.Inc()
}

// LineItemAdded records a line item addition of the given kind
func (m *ClinicMetrics) LineItemAdded(kind string) {
	if m == nil {
		return
	}
	m.lineItemsAdded.WithLabelValues(kind).Inc()
}

// LineItemRemoved records a line item removal of the given kind
func (m *ClinicMetrics) LineItemRemoved(kind string) {
	if m == nil {
		return
	}
	m.lineItemsRemoved.WithLabelValues(kind).Inc()
}

// PaymentRecorded increments the payment counter
func (m *ClinicMetrics) PaymentRecorded() {
	if m == nil {
		return
	}
	m.paymentsRecorded.Inc()
}

// ObserveReconcile records the duration of a billing-affecting operation
func (m *ClinicMetrics) ObserveReconcile(d time.Duration) {
	if m == nil {
		return
	}
	m.reconcileDuration.Observe(d.Seconds())
}

// BackupTaken increments the backup counter
func (m *ClinicMetrics) BackupTaken() {
	if m == nil {
		return
	}
	m.backupsTaken.Inc()
}

// RestorePerformed increments the restore counter
func (m *ClinicMetrics) RestorePerformed() {
	if m == nil {
		return
	}
	m.restoresPerformed.Inc()
}

// DashboardCache records a dashboard cache lookup outcome ("hit" or "miss")
func (m *ClinicMetrics) DashboardCache(outcome string) {
	if m == nil {
		return
	}
	m.dashboardCacheHits.WithLabelValues(outcome).Inc()
}
