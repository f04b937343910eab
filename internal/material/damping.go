package material

import (
	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"gonum.org/v1/gonum/mat"
)

// Dirichlet is the strain-rate damping potential
//
//	Ψd = β/2 |sym(L)|²
//
// with β the material damping coefficient. Rigid rotation rates are not
// damped. The Hessian is positive semi-definite by construction, so the
// spd flag has nothing to do.
type Dirichlet struct{}

func (Dirichlet) Kind() Kind { return KindDirichlet }

func symPart(L mat.Matrix) *mat.Dense {
	var D mat.Dense
	D.Add(L, L.T())
	D.Scale(0.5, &D)
	return &D
}

func (Dirichlet) ComputePsi(attrs *element.Attributes, L mat.Matrix) float64 {
	D := symPart(L)
	return 0.5 * attrs.Material.Damping * ddot(D, D)
}

func (d Dirichlet) ComputePsiDeriv(attrs *element.Attributes, L mat.Matrix) (float64, *mat.VecDense) {
	beta := attrs.Material.Damping
	D := symPart(L)
	grad := element.Flatten(D)
	grad.ScaleVec(beta, grad)
	return 0.5 * beta * ddot(D, D), grad
}

func (d Dirichlet) ComputePsiDerivHessian(attrs *element.Attributes, L mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	beta := attrs.Material.Damping
	psi, grad := d.ComputePsiDeriv(attrs, L)
	hess := hessianFromDirectional(func(dL *mat.Dense) *mat.Dense {
		D := symPart(dL)
		D.Scale(beta, D)
		return D
	})
	return psi, grad, hess, nil
}

// NoDamping is the zero potential.
type NoDamping struct{}

func (NoDamping) Kind() Kind { return KindNone }

func (NoDamping) ComputePsi(*element.Attributes, mat.Matrix) float64 { return 0 }

func (NoDamping) ComputePsiDeriv(*element.Attributes, mat.Matrix) (float64, *mat.VecDense) {
	return 0, mat.NewVecDense(fem.TensorDim, nil)
}

func (NoDamping) ComputePsiDerivHessian(*element.Attributes, mat.Matrix, bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	return 0, mat.NewVecDense(fem.TensorDim, nil), mat.NewSymDense(fem.TensorDim, nil), nil
}
