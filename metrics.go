package herm

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the library. A nil *Metrics
// records nothing.
type Metrics struct {
	ephemerisQueries *prometheus.CounterVec
	kernelLoads      *prometheus.CounterVec
	aberrationCache  *prometheus.CounterVec
	grazingAngles    *prometheus.CounterVec
	grazingApprox    *prometheus.CounterVec
	batchDuration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg (if not nil).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ephemerisQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herm_ephemeris_queries_total",
				Help: "Total number of ephemeris position queries.",
			},
			[]string{"provider", "outcome"},
		),
		kernelLoads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herm_kernel_loads_total",
				Help: "Total number of kernel set loads.",
			},
			[]string{"provider"},
		),
		aberrationCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herm_aberration_cache_total",
				Help: "Daily aberration angle cache lookups.",
			},
			[]string{"result"},
		),
		grazingAngles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herm_grazing_angles_total",
				Help: "Total number of grazing angles computed.",
			},
			[]string{"boundary"},
		),
		grazingApprox: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "herm_grazing_approximate_total",
				Help: "Grazing angles whose nearest point deviates from the curve normal.",
			},
			[]string{"boundary"},
		),
		batchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "herm_batch_duration_seconds",
				Help:    "Duration of batch computations in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.ephemerisQueries, m.kernelLoads, m.aberrationCache,
			m.grazingAngles, m.grazingApprox, m.batchDuration)
	}
	return m
}

func (m *Metrics) ephemerisQuery(provider string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNoCoverage):
		outcome = "no_coverage"
	case errors.Is(err, ErrUnknownBody):
		outcome = "unknown_body"
	default:
		outcome = "error"
	}
	m.ephemerisQueries.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) kernelLoaded(provider string) {
	if m == nil {
		return
	}
	m.kernelLoads.WithLabelValues(provider).Inc()
}

func (m *Metrics) aberrationLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.aberrationCache.WithLabelValues("hit").Inc()
	} else {
		m.aberrationCache.WithLabelValues("miss").Inc()
	}
}

func (m *Metrics) grazing(g Grazing) {
	if m == nil {
		return
	}
	m.grazingAngles.WithLabelValues(g.Boundary.String()).Inc()
	if g.Approximate {
		m.grazingApprox.WithLabelValues(g.Boundary.String()).Inc()
	}
}

func (m *Metrics) observeBatch(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.batchDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
