package metrics

import (
	"github.com/san-kum/femdyn/internal/material"
	"github.com/san-kum/femdyn/internal/sim"
	"gonum.org/v1/gonum/mat"
)

// Convexity is the fraction of observed element Hessians whose smallest
// eigenvalue is at least -tol·‖H‖. Steps evaluated below the Hessian
// level are not counted.
type Convexity struct {
	name       string
	tol        float64
	violations int
	samples    int
}

func NewConvexity(tol float64) *Convexity {
	return &Convexity{
		name: "convexity",
		tol:  tol,
	}
}

func (c *Convexity) Name() string {
	return c.name
}

func (c *Convexity) OnStep(step int, res *sim.Result, yields int) {
	for _, contrib := range res.Contributions {
		if contrib.Hessian == nil {
			continue
		}
		c.samples++
		lo, err := material.MinEigenvalue(contrib.Hessian)
		if err != nil || lo < -c.tol*mat.Norm(contrib.Hessian, 2) {
			c.violations++
		}
	}
}

func (c *Convexity) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Convexity) Reset() {
	c.violations = 0
	c.samples = 0
}
