package material

import (
	"github.com/san-kum/femdyn/internal/element"
	"gonum.org/v1/gonum/mat"
)

// StVK is the Saint Venant-Kirchhoff energy
//
//	Ψ = μ E:E + λ/2 tr(E)²,  E = ½(FᵀF - I).
//
// Its Hessian is indefinite under compression; request SPD filtering
// when it feeds a Newton solve.
type StVK struct{}

func (StVK) Kind() Kind { return KindStVK }

func (StVK) ComputePsi(attrs *element.Attributes, F mat.Matrix) float64 {
	lambda, mu := attrs.Material.Lame()
	return stvkPsi(greenStrain(F), lambda, mu)
}

func (StVK) ComputePsiDeriv(attrs *element.Attributes, F mat.Matrix) (float64, *mat.VecDense) {
	lambda, mu := attrs.Material.Lame()
	return stvkDeriv(F, greenStrain(F), lambda, mu)
}

func (StVK) ComputePsiDerivHessian(attrs *element.Attributes, F mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	lambda, mu := attrs.Material.Lame()
	E := greenStrain(F)
	psi, grad := stvkDeriv(F, E, lambda, mu)
	hess := stvkHessian(F, kirchhoffStress(E, lambda, mu), lambda, mu)
	return finish(psi, grad, hess, spd)
}

// The helpers take the (elastic) strain separately so Plastic can reuse
// them with E - Ep.

func stvkPsi(E mat.Matrix, lambda, mu float64) float64 {
	tr := mat.Trace(E)
	return mu*ddot(E, E) + 0.5*lambda*tr*tr
}

func stvkDeriv(F, E mat.Matrix, lambda, mu float64) (float64, *mat.VecDense) {
	var P mat.Dense
	P.Mul(F, kirchhoffStress(E, lambda, mu))
	return stvkPsi(E, lambda, mu), element.Flatten(&P)
}

// stvkHessian differentiates P = F S along dF:
//
//	dP = dF S + F (2μ dE + λ tr(dE) I),  dE = sym(Fᵀ dF).
func stvkHessian(F, S mat.Matrix, lambda, mu float64) *mat.SymDense {
	return hessianFromDirectional(func(dF *mat.Dense) *mat.Dense {
		var FtdF, dE mat.Dense
		FtdF.Mul(F.T(), dF)
		dE.Add(&FtdF, FtdF.T())
		dE.Scale(0.5, &dE)

		var a, b mat.Dense
		a.Mul(dF, S)
		b.Mul(F, kirchhoffStress(&dE, lambda, mu))
		a.Add(&a, &b)
		return &a
	})
}
