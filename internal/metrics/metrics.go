package metrics

import "github.com/san-kum/femdyn/internal/sim"

// Metric summarizes a run step by step.
type Metric interface {
	sim.Observer
	Name() string
	Value() float64
	Reset()
}

// Observers adapts metrics for sim.Evaluator.Run.
func Observers(ms ...Metric) []sim.Observer {
	obs := make([]sim.Observer, len(ms))
	for i, m := range ms {
		obs[i] = m
	}
	return obs
}

// Defaults is the metric set reported by sweeps.
func Defaults() []Metric {
	return []Metric{NewPeakGradient(), NewConvexity(1e-9), NewPlasticActivity()}
}
