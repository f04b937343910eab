package metrics

import "github.com/san-kum/femdyn/internal/sim"

// PeakGradient is the largest gradient norm seen in any step.
type PeakGradient struct {
	name string
	peak float64
}

func NewPeakGradient() *PeakGradient {
	return &PeakGradient{name: "peak_gradient"}
}

func (p *PeakGradient) Name() string { return p.name }

func (p *PeakGradient) OnStep(step int, res *sim.Result, yields int) {
	if g := res.GradientNorm(); g > p.peak {
		p.peak = g
	}
}

func (p *PeakGradient) Value() float64 { return p.peak }

func (p *PeakGradient) Reset() { p.peak = 0 }
