package sim

import (
	"math"

	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/integrators"
	"github.com/san-kum/femdyn/internal/material"
)

// Element is everything one evaluation needs. The models may be shared
// between elements; the attributes and history belong to this element.
type Element struct {
	Attrs   *element.Attributes
	Force   material.Model
	Damping material.Model
	History fem.History
}

// Result holds per-element contributions in input order. Assembly into
// global vectors is left to the caller.
type Result struct {
	Level         fem.Level
	Contributions []integrators.Contribution
	Objective     float64
}

// GradientNorm is the 2-norm of all element gradients taken together.
func (r *Result) GradientNorm() float64 {
	var sum float64
	for _, c := range r.Contributions {
		if c.Gradient == nil {
			continue
		}
		for _, v := range c.Gradient.RawVector().Data {
			sum += v * v
		}
	}
	return math.Sqrt(sum)
}

// Loading prescribes the displacement history of element elem at a step.
type Loading func(step, elem int) (fem.History, error)

type Observer interface {
	OnStep(step int, res *Result, yields int)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(step int, res *Result, yields int)

func (f ObserverFunc) OnStep(step int, res *Result, yields int) { f(step, res, yields) }

type Config struct {
	Steps int
	Level fem.Level

	// AdvancePlastic runs the return map after every step.
	AdvancePlastic bool
}

// Trace records the totals of every step of a run.
type Trace struct {
	Objectives []float64
	GradNorms  []float64
	Yields     []int
	StepsTaken int
}
