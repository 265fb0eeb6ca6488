package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seatguard/seatguard/internal/core"
)

const (
	ResultAdmitted = "admitted"
	ResultReused   = "reused"
	ResultRejected = "rejected"
)

type Collector struct {
	registry *prometheus.Registry

	admissionsTotal  *prometheus.CounterVec
	heartbeatsTotal  *prometheus.CounterVec
	disconnectsTotal *prometheus.CounterVec
	evictionsTotal   *prometheus.CounterVec
	activeSeats      *prometheus.GaugeVec
	seatQuota        *prometheus.GaugeVec

	sweepDuration      prometheus.Histogram
	auditWriteFailures *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		admissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seatguard_admissions_total",
				Help: "Admission decisions by result",
			},
			[]string{"tenant_id", "role", "result"},
		),

		heartbeatsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seatguard_heartbeats_total",
				Help: "Heartbeats accepted for live sessions",
			},
			[]string{"tenant_id", "role"},
		),

		disconnectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seatguard_disconnects_total",
				Help: "Graceful disconnects",
			},
			[]string{"tenant_id", "role"},
		),

		evictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seatguard_evictions_total",
				Help: "Seats reclaimed by the liveness sweep",
			},
			[]string{"tenant_id", "role"},
		),

		activeSeats: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "seatguard_active_seats",
				Help: "Currently occupied seats per role",
			},
			[]string{"tenant_id", "role"},
		),

		seatQuota: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "seatguard_seat_quota",
				Help: "Configured seat quota per role (-1 = unlimited)",
			},
			[]string{"tenant_id", "role"},
		),

		sweepDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "seatguard_sweep_duration_seconds",
				Help:    "Duration of liveness sweeps in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),

		auditWriteFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seatguard_audit_write_failures_total",
				Help: "Seat events dropped because the audit store was unavailable",
			},
			[]string{"tenant_id"},
		),
	}
}

func (c *Collector) RecordAdmission(tenantID string, role core.Role, result string) {
	c.admissionsTotal.WithLabelValues(tenantID, string(role), result).Inc()
}

func (c *Collector) RecordHeartbeat(tenantID string, role core.Role) {
	c.heartbeatsTotal.WithLabelValues(tenantID, string(role)).Inc()
}

func (c *Collector) RecordDisconnect(tenantID string, role core.Role) {
	c.disconnectsTotal.WithLabelValues(tenantID, string(role)).Inc()
}

func (c *Collector) RecordEvictions(tenantID string, role core.Role, n int) {
	c.evictionsTotal.WithLabelValues(tenantID, string(role)).Add(float64(n))
}

func (c *Collector) RecordSweepDuration(seconds float64) {
	c.sweepDuration.Observe(seconds)
}

func (c *Collector) RecordAuditWriteFailure(tenantID string) {
	c.auditWriteFailures.WithLabelValues(tenantID).Inc()
}

func (c *Collector) SetActiveSeats(tenantID string, counts core.SeatCounts) {
	for _, role := range core.Roles {
		c.activeSeats.WithLabelValues(tenantID, string(role)).Set(float64(counts.For(role)))
	}
}

func (c *Collector) SetSeatQuota(tenant *core.Tenant) {
	for _, role := range core.Roles {
		c.seatQuota.WithLabelValues(tenant.ID.String(), string(role)).Set(float64(tenant.QuotaFor(role)))
	}
}

// Handler serves this collector's registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
