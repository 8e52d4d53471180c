package measure

import (
	"maps"
	"sync"
)

type DefaultMeasure struct {
	mu     sync.RWMutex
	Stages map[string]Metric
}

func NewDefaultMeasure() *DefaultMeasure {
	return &DefaultMeasure{
		Stages: make(map[string]Metric),
	}
}

// AddMetric registers a metric for the stage name, replacing any previous one.
func (m *DefaultMeasure) AddMetric(name string) Metric {
	mt := &DefaultMetric{
		mu:            &sync.Mutex{},
		allTransports: make(map[string]*TransportInfo),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Stages[name] = mt

	return mt
}

func (m *DefaultMeasure) GetMetric(name string) Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.Stages[name]
}

func (m *DefaultMeasure) AllMetrics() map[string]Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.Stages)
}

var _ Measure = (*DefaultMeasure)(nil)
