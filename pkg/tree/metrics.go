package tree

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts engine activity. A nil *Metrics records nothing.
type Metrics struct {
	cascades       *prometheus.CounterVec
	rowsRewritten  prometheus.Counter
	orphans        *prometheus.CounterVec
	violations     *prometheus.CounterVec
	preloadQueries prometheus.Counter
}

// NewMetrics creates the engine counters and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		cascades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathtree_cascades_total",
			Help: "Subtree path rewrites triggered by moves, by cascade mode.",
		}, []string{"mode"}),
		rowsRewritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pathtree_rows_rewritten_total",
			Help: "Descendant rows rewritten by cascades.",
		}),
		orphans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathtree_orphans_resolved_total",
			Help: "Descendant rows handled by orphan strategies, by strategy.",
		}, []string{"strategy"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pathtree_integrity_violations_total",
			Help: "Integrity violations found by Check, by kind.",
		}, []string{"kind"}),
		preloadQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pathtree_preload_queries_total",
			Help: "Store queries issued by batch preloads.",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.cascades, m.rowsRewritten, m.orphans, m.violations, m.preloadQueries} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) cascaded(mode string, rows int) {
	if m == nil {
		return
	}
	m.cascades.WithLabelValues(mode).Inc()
	m.rowsRewritten.Add(float64(rows))
}

func (m *Metrics) orphansResolved(strategy string, rows int) {
	if m == nil {
		return
	}
	m.orphans.WithLabelValues(strategy).Add(float64(rows))
}

func (m *Metrics) violation(kind string) {
	if m == nil {
		return
	}
	m.violations.WithLabelValues(kind).Inc()
}

func (m *Metrics) preloadQuery() {
	if m == nil {
		return
	}
	m.preloadQueries.Inc()
}
