package smartcontrol

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts control cycles and the actions they take
type Metrics struct {
	cycles  prometheus.Counter
	actions *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "airtouch_smartcontrol_cycles_total",
			Help: "Number of control cycles run",
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "airtouch_smartcontrol_actions_total",
			Help: "Number of actions taken by the smart control policy",
		}, []string{"action"}),
	}
}

// Describe implements the prometheus.Collector interface
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.cycles.Describe(ch)
	m.actions.Describe(ch)
}

// Collect implements the prometheus.Collector interface
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.cycles.Collect(ch)
	m.actions.Collect(ch)
}
