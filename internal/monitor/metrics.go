package monitor

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joeycumines/bteng/internal/bt"
)

// Metrics exports tick and halt counters and the running nodes of every
// tree to Prometheus.
type Metrics struct {
	ticks   *prometheus.CounterVec
	halts   *prometheus.CounterVec
	running *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bteng_node_ticks_total",
				Help: "Total number of node ticks, by resulting status",
			},
			[]string{"tree", "node", "kind", "status"},
		),
		halts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bteng_node_halts_total",
				Help: "Total number of halts that reset a node to idle",
			},
			[]string{"tree", "node", "kind"},
		),
		running: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bteng_node_running",
				Help: "1 while the node is running, 0 otherwise",
			},
			[]string{"tree", "node", "kind"},
		),
	}
	for _, c := range []prometheus.Collector{m.ticks, m.halts, m.running} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe updates the collectors with ev.
func (m *Metrics) Observe(ev bt.TickEvent) {
	kind := ev.Kind.String()
	switch ev.Cause {
	case bt.CauseTick:
		m.ticks.WithLabelValues(ev.TreeID, ev.Name, kind, ev.Status.String()).Inc()
	case bt.CauseHalt:
		m.halts.WithLabelValues(ev.TreeID, ev.Name, kind).Inc()
	}
	running := 0.0
	if ev.Status == bt.Running {
		running = 1
	}
	m.running.WithLabelValues(ev.TreeID, ev.Name, kind).Set(running)
}
