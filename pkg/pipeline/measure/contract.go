package measure

import "time"

// Measure collects one Metric per stage.
type Measure interface {
	AddMetric(name string) Metric
	GetMetric(name string) Metric
	AllMetrics() map[string]Metric
}

// Metric holds the durations recorded for one stage.
type Metric interface {
	// AddDuration records one run of the stage.
	AddDuration(elapsed time.Duration)
	// AddTransportDuration records the time between the end of a parent stage and the start of this one.
	AddTransportDuration(parentStageName string, elapsed time.Duration)
	AVGDuration() time.Duration
	AVGTransportDuration() map[string]*TransportInfo
	SetTotalDuration(endDuration time.Duration)
	GetTotalDuration() time.Duration
	AllTransports() map[string]*TransportInfo
	Runs() int64
}
