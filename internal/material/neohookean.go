package material

import (
	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// NeoHookean is the rest-stable Neo-Hookean energy
//
//	Ψ = μ/2 (I_C - 3) + λ/2 (J - α)²,  α = 1 + μ/λ,
//
// which has zero stress at F = I and stays finite under inversion.
type NeoHookean struct{}

func (NeoHookean) Kind() Kind { return KindNeoHookean }

func (NeoHookean) ComputePsi(attrs *element.Attributes, F mat.Matrix) float64 {
	lambda, mu := attrs.Material.Lame()
	alpha := 1 + mu/lambda
	d := mat.Det(F) - alpha
	return 0.5*mu*(ddot(F, F)-3) + 0.5*lambda*d*d
}

func (NeoHookean) ComputePsiDeriv(attrs *element.Attributes, F mat.Matrix) (float64, *mat.VecDense) {
	psi, grad, _ := neoHookean(attrs, F, false)
	return psi, grad
}

func (NeoHookean) ComputePsiDerivHessian(attrs *element.Attributes, F mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	psi, grad, hess := neoHookean(attrs, F, true)
	return finish(psi, grad, hess, spd)
}

// cofactor returns ∂J/∂F flattened: the columns f1×f2, f2×f0, f0×f1.
func cofactor(f [3]r3.Vec) *mat.VecDense {
	g := mat.NewVecDense(fem.TensorDim, nil)
	for c, v := range [3]r3.Vec{r3.Cross(f[1], f[2]), r3.Cross(f[2], f[0]), r3.Cross(f[0], f[1])} {
		g.SetVec(3*c, v.X)
		g.SetVec(3*c+1, v.Y)
		g.SetVec(3*c+2, v.Z)
	}
	return g
}

func neoHookean(attrs *element.Attributes, F mat.Matrix, withHessian bool) (float64, *mat.VecDense, *mat.SymDense) {
	lambda, mu := attrs.Material.Lame()
	alpha := 1 + mu/lambda

	f := columns(F)
	g := cofactor(f)
	J := r3.Dot(f[0], r3.Cross(f[1], f[2]))
	d := J - alpha

	psi := 0.5*mu*(ddot(F, F)-3) + 0.5*lambda*d*d

	grad := element.Flatten(F)
	grad.ScaleVec(mu, grad)
	grad.AddScaledVec(grad, lambda*d, g)
	if !withHessian {
		return psi, grad, nil
	}

	// μ I + λ g gᵀ + λ (J - α) ∂²J/∂F²
	hess := mat.NewSymDense(fem.TensorDim, nil)
	for i := 0; i < fem.TensorDim; i++ {
		hess.SetSym(i, i, mu)
	}
	hess.SymRankOne(hess, lambda, g)
	s := lambda * d
	addBlock(hess, 0, 1, skew(f[2]), -s)
	addBlock(hess, 0, 2, skew(f[1]), s)
	addBlock(hess, 1, 2, skew(f[0]), -s)
	return psi, grad, hess
}
