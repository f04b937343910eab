package integrators

import (
	"fmt"

	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/material"
	"gonum.org/v1/gonum/mat"
)

// Contribution is one element's share of the global objective. Gradient
// and Hessian are nil below the level that produces them.
type Contribution struct {
	Objective float64
	Gradient  *mat.VecDense
	Hessian   *mat.SymDense
}

// Integrator evaluates the per-element objective of one time
// discretization. Implementations are safe for concurrent use as long as
// the models they are given are.
type Integrator interface {
	Name() string
	// HistoryLen is the number of displacement states consumed, oldest first.
	HistoryLen() int
	Evaluate(level fem.Level, attrs *element.Attributes, force, damping material.Model, u fem.History) (Contribution, error)

	EvalElmObj(attrs *element.Attributes, force, damping material.Model, u fem.History) (float64, error)
	EvalElmObjDeriv(attrs *element.Attributes, force, damping material.Model, u fem.History) (float64, *mat.VecDense, error)
	EvalElmObjDerivJacobi(attrs *element.Attributes, force, damping material.Model, u fem.History) (float64, *mat.VecDense, *mat.SymDense, error)
}

var (
	_ Integrator = (*BackwardEuler)(nil)
	_ Integrator = (*QuasiStatic)(nil)
)

// Op names the public entry point that produces a level.
func Op(level fem.Level) string {
	switch level {
	case fem.LevelObjective:
		return "EvalElmObj"
	case fem.LevelGradient:
		return "EvalElmObjDeriv"
	case fem.LevelHessian:
		return "EvalElmObjDerivJacobi"
	}
	return level.String()
}

func wrap(name string, level fem.Level, err error) error {
	return &fem.EvalError{Element: -1, Integrator: name, Op: Op(level), Wrapped: err}
}

func checkInputs(attrs *element.Attributes, force material.Model, u fem.History, n int) error {
	if attrs == nil || attrs.DFDX == nil {
		return fmt.Errorf("%w: missing element attributes", fem.ErrParameterBounds)
	}
	if force == nil {
		return fmt.Errorf("%w: missing force model", fem.ErrUnknownKind)
	}
	return u.Validate(n)
}

// replicate repeats a 3-vector once per node.
func replicate(g [3]float64) *mat.VecDense {
	v := mat.NewVecDense(fem.Dof, nil)
	for n := 0; n < fem.NodesPerElement; n++ {
		for i := 0; i < 3; i++ {
			v.SetVec(3*n+i, g[i])
		}
	}
	return v
}

// pullback maps a tensor-space gradient to nodal dofs: scale·dFdXᵀg.
func pullback(dfdx *mat.Dense, g mat.Vector, scale float64) *mat.VecDense {
	out := mat.NewVecDense(fem.Dof, nil)
	out.MulVec(dfdx.T(), g)
	out.ScaleVec(scale, out)
	return out
}

// congruence maps a tensor-space Hessian to nodal dofs: scale·dFdXᵀ H dFdX.
func congruence(dfdx *mat.Dense, h mat.Symmetric, scale float64) *mat.SymDense {
	var t, full mat.Dense
	t.Mul(h, dfdx)
	full.Mul(dfdx.T(), &t)

	out := mat.NewSymDense(fem.Dof, nil)
	for i := 0; i < fem.Dof; i++ {
		for j := i; j < fem.Dof; j++ {
			out.SetSym(i, j, 0.5*scale*(full.At(i, j)+full.At(j, i)))
		}
	}
	return out
}

func checkFinite(c Contribution) error {
	if !fem.IsFinite(c.Objective) {
		return fmt.Errorf("%w: objective %g", fem.ErrInvalidState, c.Objective)
	}
	if c.Gradient != nil && !fem.IsFinite(c.Gradient.RawVector().Data...) {
		return fmt.Errorf("%w: gradient", fem.ErrInvalidState)
	}
	if c.Hessian != nil && !fem.MatrixIsFinite(c.Hessian) {
		return fmt.Errorf("%w: hessian", fem.ErrInvalidState)
	}
	return nil
}
