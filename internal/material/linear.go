package material

import (
	"github.com/san-kum/femdyn/internal/element"
	"gonum.org/v1/gonum/mat"
)

// Linear is small-strain isotropic elasticity,
//
//	Ψ = μ ε:ε + λ/2 tr(ε)²,  ε = sym(F) - I.
//
// It is not rotation invariant; use it for small deformations only.
type Linear struct{}

func (Linear) Kind() Kind { return KindLinear }

func smallStrain(F mat.Matrix) *mat.Dense {
	var eps mat.Dense
	eps.Add(F, F.T())
	eps.Scale(0.5, &eps)
	addScaledIdentity(&eps, -1)
	return &eps
}

func (Linear) ComputePsi(attrs *element.Attributes, F mat.Matrix) float64 {
	lambda, mu := attrs.Material.Lame()
	eps := smallStrain(F)
	tr := mat.Trace(eps)
	return mu*ddot(eps, eps) + 0.5*lambda*tr*tr
}

func (l Linear) ComputePsiDeriv(attrs *element.Attributes, F mat.Matrix) (float64, *mat.VecDense) {
	lambda, mu := attrs.Material.Lame()
	eps := smallStrain(F)
	tr := mat.Trace(eps)
	P := kirchhoffStress(eps, lambda, mu)
	return mu*ddot(eps, eps) + 0.5*lambda*tr*tr, element.Flatten(P)
}

func (l Linear) ComputePsiDerivHessian(attrs *element.Attributes, F mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	lambda, mu := attrs.Material.Lame()
	psi, grad := l.ComputePsiDeriv(attrs, F)
	hess := hessianFromDirectional(func(dF *mat.Dense) *mat.Dense {
		var dP mat.Dense
		dP.Add(dF, dF.T())
		dP.Scale(mu, &dP)
		addScaledIdentity(&dP, lambda*mat.Trace(dF))
		return &dP
	})
	return finish(psi, grad, hess, spd)
}
