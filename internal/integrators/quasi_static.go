package integrators

import (
	"fmt"

	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/material"
	"gonum.org/v1/gonum/mat"
)

// QuasiStatic minimizes elastic energy against gravity with no inertia.
// The damping model and the external force are ignored.
//
// With SPD set the model Hessian is clamped before the pullback through
// dFdX, so the element Hessian is positive semidefinite up to rounding:
// its smallest eigenvalue is at least -1e-9·‖H‖.
type QuasiStatic struct {
	Gravity [3]float64
	SPD     bool
}

func NewQuasiStatic(gravity [3]float64, spd bool) (*QuasiStatic, error) {
	if !fem.IsFinite(gravity[:]...) {
		return nil, fmt.Errorf("%w: gravity %v", fem.ErrInvalidState, gravity)
	}
	return &QuasiStatic{Gravity: gravity, SPD: spd}, nil
}

func (q *QuasiStatic) Name() string    { return "quasi_static" }
func (q *QuasiStatic) HistoryLen() int { return 1 }

func (q *QuasiStatic) EvalElmObj(attrs *element.Attributes, force, damping material.Model, u fem.History) (float64, error) {
	c, err := q.Evaluate(fem.LevelObjective, attrs, force, damping, u)
	return c.Objective, err
}

func (q *QuasiStatic) EvalElmObjDeriv(attrs *element.Attributes, force, damping material.Model, u fem.History) (float64, *mat.VecDense, error) {
	c, err := q.Evaluate(fem.LevelGradient, attrs, force, damping, u)
	return c.Objective, c.Gradient, err
}

func (q *QuasiStatic) EvalElmObjDerivJacobi(attrs *element.Attributes, force, damping material.Model, u fem.History) (float64, *mat.VecDense, *mat.SymDense, error) {
	c, err := q.Evaluate(fem.LevelHessian, attrs, force, damping, u)
	return c.Objective, c.Gradient, c.Hessian, err
}

func (q *QuasiStatic) Evaluate(level fem.Level, attrs *element.Attributes, force, _ material.Model, u fem.History) (Contribution, error) {
	c, err := q.evaluate(level, attrs, force, u)
	if err != nil {
		return Contribution{}, wrap(q.Name(), level, err)
	}
	return c, nil
}

func (q *QuasiStatic) evaluate(level fem.Level, attrs *element.Attributes, force material.Model, u fem.History) (Contribution, error) {
	if err := checkInputs(attrs, force, u, q.HistoryLen()); err != nil {
		return Contribution{}, err
	}

	vol := attrs.Volume
	u0 := u[0]
	gravForce := replicate(q.Gravity)
	gravForce.ScaleVec(attrs.NodalMass(), gravForce)
	F := element.ComputeDeformationGradient(attrs.Minv, u0)

	var c Contribution
	switch level {
	case fem.LevelObjective:
		c.Objective = vol*force.ComputePsi(attrs, F) - mat.Dot(u0, gravForce)

	case fem.LevelGradient:
		psi, dpsi := force.ComputePsiDeriv(attrs, F)
		c.Objective = vol*psi - mat.Dot(u0, gravForce)
		c.Gradient = pullback(attrs.DFDX, dpsi, vol)
		c.Gradient.SubVec(c.Gradient, gravForce)

	case fem.LevelHessian:
		psi, dpsi, hpsi, err := force.ComputePsiDerivHessian(attrs, F, q.SPD)
		if err != nil {
			return Contribution{}, err
		}
		c.Objective = vol*psi - mat.Dot(u0, gravForce)
		c.Gradient = pullback(attrs.DFDX, dpsi, vol)
		c.Gradient.SubVec(c.Gradient, gravForce)
		c.Hessian = congruence(attrs.DFDX, hpsi, vol)

	default:
		return Contribution{}, fmt.Errorf("%w: level %v", fem.ErrParameterBounds, level)
	}

	return c, checkFinite(c)
}
