package verify

import (
	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/material"
	"gonum.org/v1/gonum/mat"
)

// Checked decorates a model with a finite-difference self-check that
// runs before every Hessian evaluation.
type Checked struct {
	material.Model
	verifier *Verifier
}

// Wrap returns m decorated with v. A nil verifier returns m unchanged.
func Wrap(m material.Model, v *Verifier) material.Model {
	if v == nil {
		return m
	}
	return &Checked{Model: m, verifier: v}
}

func (c *Checked) Unwrap() material.Model { return c.Model }

func (c *Checked) ComputePsiDerivHessian(attrs *element.Attributes, F mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	if _, err := c.verifier.Check(c.Model, attrs, c.verifier.Sample(F)); err != nil {
		return 0, nil, nil, err
	}
	return c.Model.ComputePsiDerivHessian(attrs, F, spd)
}
