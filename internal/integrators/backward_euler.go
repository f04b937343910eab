package integrators

import (
	"fmt"

	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/material"
	"gonum.org/v1/gonum/mat"
)

// BackwardEuler is the implicit first-order scheme written as an
// optimization over the newest displacement u2, given u0 and u1.
//
// The inertial objective term is m/h²·|y|² while the gradient carries
// m/h²·y, so the objective's derivative in u2 has twice the inertial
// gradient. Only the gradient and Hessian feed the solve.
type BackwardEuler struct {
	Dt      float64
	Gravity [3]float64

	// Filtering projects the force model Hessian onto the SPD cone.
	// The damping Hessian is never filtered.
	Filtering bool
}

func NewBackwardEuler(dt float64, gravity [3]float64, filtering bool) (*BackwardEuler, error) {
	if !(dt > 0) || !fem.IsFinite(dt) {
		return nil, fmt.Errorf("%w: time step must be positive, got %g", fem.ErrParameterBounds, dt)
	}
	if !fem.IsFinite(gravity[:]...) {
		return nil, fmt.Errorf("%w: gravity %v", fem.ErrInvalidState, gravity)
	}
	return &BackwardEuler{Dt: dt, Gravity: gravity, Filtering: filtering}, nil
}

func (b *BackwardEuler) Name() string    { return "backward_euler" }
func (b *BackwardEuler) HistoryLen() int { return 3 }

func (b *BackwardEuler) EvalElmObj(attrs *element.Attributes, force, damping material.Model, u fem.History) (float64, error) {
	c, err := b.Evaluate(fem.LevelObjective, attrs, force, damping, u)
	return c.Objective, err
}

func (b *BackwardEuler) EvalElmObjDeriv(attrs *element.Attributes, force, damping material.Model, u fem.History) (float64, *mat.VecDense, error) {
	c, err := b.Evaluate(fem.LevelGradient, attrs, force, damping, u)
	return c.Objective, c.Gradient, err
}

func (b *BackwardEuler) EvalElmObjDerivJacobi(attrs *element.Attributes, force, damping material.Model, u fem.History) (float64, *mat.VecDense, *mat.SymDense, error) {
	c, err := b.Evaluate(fem.LevelHessian, attrs, force, damping, u)
	return c.Objective, c.Gradient, c.Hessian, err
}

// Evaluate computes the contribution up to level. A nil damping model is
// treated as no damping.
func (b *BackwardEuler) Evaluate(level fem.Level, attrs *element.Attributes, force, damping material.Model, u fem.History) (Contribution, error) {
	c, err := b.evaluate(level, attrs, force, damping, u)
	if err != nil {
		return Contribution{}, wrap(b.Name(), level, err)
	}
	return c, nil
}

func (b *BackwardEuler) evaluate(level fem.Level, attrs *element.Attributes, force, damping material.Model, u fem.History) (Contribution, error) {
	if err := checkInputs(attrs, force, u, b.HistoryLen()); err != nil {
		return Contribution{}, err
	}
	if damping == nil {
		damping = material.NoDamping{}
	}

	h := b.Dt
	h2 := h * h
	m := attrs.NodalMass()
	vol := attrs.Volume
	u0, u1, u2 := u[0], u[1], u[2]

	v2 := mat.NewVecDense(fem.Dof, nil)
	v2.SubVec(u2, u1)
	v2.ScaleVec(1/h, v2)

	y := mat.NewVecDense(fem.Dof, nil)
	y.AddScaledVec(u2, -2, u1)
	y.AddVec(y, u0)
	y.AddScaledVec(y, -h2, replicate(b.Gravity))
	y.AddScaledVec(y, -h2/m, attrs.ExtForce)

	F := element.ComputeDeformationGradient(attrs.Minv, u2)
	L := element.ComputeVelocityGradient(attrs.Minv, v2)
	inertia := m / h2

	var c Contribution
	switch level {
	case fem.LevelObjective:
		c.Objective = inertia*mat.Dot(y, y) +
			vol*force.ComputePsi(attrs, F) +
			h*vol*damping.ComputePsi(attrs, L)

	case fem.LevelGradient:
		psi, dpsi := force.ComputePsiDeriv(attrs, F)
		psiD, dpsiD := damping.ComputePsiDeriv(attrs, L)
		c.Objective = inertia*mat.Dot(y, y) + vol*psi + h*vol*psiD
		c.Gradient = b.gradient(attrs, y, inertia, dpsi, dpsiD)

	case fem.LevelHessian:
		psi, dpsi, hpsi, err := force.ComputePsiDerivHessian(attrs, F, b.Filtering)
		if err != nil {
			return Contribution{}, err
		}
		psiD, dpsiD, hpsiD, err := damping.ComputePsiDerivHessian(attrs, L, false)
		if err != nil {
			return Contribution{}, err
		}
		c.Objective = inertia*mat.Dot(y, y) + vol*psi + h*vol*psiD
		c.Gradient = b.gradient(attrs, y, inertia, dpsi, dpsiD)

		h9 := mat.NewSymDense(fem.TensorDim, nil)
		h9.ScaleSym(1/h, hpsiD)
		h9.AddSym(h9, hpsi)
		c.Hessian = congruence(attrs.DFDX, h9, vol)
		for i := 0; i < fem.Dof; i++ {
			c.Hessian.SetSym(i, i, c.Hessian.At(i, i)+inertia)
		}

	default:
		return Contribution{}, fmt.Errorf("%w: level %v", fem.ErrParameterBounds, level)
	}

	return c, checkFinite(c)
}

func (b *BackwardEuler) gradient(attrs *element.Attributes, y *mat.VecDense, inertia float64, dpsi, dpsiD mat.Vector) *mat.VecDense {
	g9 := mat.NewVecDense(fem.TensorDim, nil)
	g9.AddVec(dpsi, dpsiD)
	g := pullback(attrs.DFDX, g9, attrs.Volume)
	g.AddScaledVec(g, inertia, y)
	return g
}
