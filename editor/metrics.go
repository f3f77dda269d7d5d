package editor

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts editor loads and saves by result.
type Metrics struct {
	loads *prometheus.CounterVec
	saves *prometheus.CounterVec
}

// NewMetrics creates the editor collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmdflow_editor_loads_total",
				Help: "Command loads by result (ok, error)",
			},
			[]string{"result"},
		),
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cmdflow_editor_saves_total",
				Help: "Command saves by result (ok, invalid, error)",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.loads, m.saves)
	return m
}

func (m *Metrics) load(result string) {
	if m != nil {
		m.loads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) save(result string) {
	if m != nil {
		m.saves.WithLabelValues(result).Inc()
	}
}
