package material

import (
	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"gonum.org/v1/gonum/mat"
)

// Fiber adds a fiber reinforcement along the material orientation a to
// the Neo-Hookean matrix,
//
//	Ψ = Ψ_NH + k/2 (|Fa|² - 1)².
type Fiber struct {
	NeoHookean
}

func (Fiber) Kind() Kind { return KindFiber }

type fiberTerm struct {
	k, stretch float64       // stiffness, |Fa|² - 1
	a          [3]float64    // unit orientation
	b          *mat.VecDense // flattened (Fa) aᵀ
}

func newFiberTerm(attrs *element.Attributes, F mat.Matrix) fiberTerm {
	dir := attrs.Material.FiberDirection()
	t := fiberTerm{
		k: attrs.Material.FiberStiffness,
		a: [3]float64{dir.X, dir.Y, dir.Z},
		b: mat.NewVecDense(fem.TensorDim, nil),
	}
	var w [3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			w[r] += F.At(r, c) * t.a[c]
		}
	}
	t.stretch = w[0]*w[0] + w[1]*w[1] + w[2]*w[2] - 1
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			t.b.SetVec(3*c+r, w[r]*t.a[c])
		}
	}
	return t
}

func (t fiberTerm) psi() float64 {
	return 0.5 * t.k * t.stretch * t.stretch
}

func (f Fiber) ComputePsi(attrs *element.Attributes, F mat.Matrix) float64 {
	return f.NeoHookean.ComputePsi(attrs, F) + newFiberTerm(attrs, F).psi()
}

func (f Fiber) ComputePsiDeriv(attrs *element.Attributes, F mat.Matrix) (float64, *mat.VecDense) {
	psi, grad, _ := neoHookean(attrs, F, false)
	t := newFiberTerm(attrs, F)
	grad.AddScaledVec(grad, 2*t.k*t.stretch, t.b)
	return psi + t.psi(), grad
}

func (f Fiber) ComputePsiDerivHessian(attrs *element.Attributes, F mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	psi, grad, hess := neoHookean(attrs, F, true)
	t := newFiberTerm(attrs, F)
	grad.AddScaledVec(grad, 2*t.k*t.stretch, t.b)

	// 4k b bᵀ + 2k (|Fa|²-1) (a aᵀ ⊗ I)
	hess.SymRankOne(hess, 4*t.k, t.b)
	s := 2 * t.k * t.stretch
	for c := 0; c < 3; c++ {
		for cc := c; cc < 3; cc++ {
			for r := 0; r < 3; r++ {
				i, j := 3*c+r, 3*cc+r
				hess.SetSym(i, j, hess.At(i, j)+s*t.a[c]*t.a[cc])
			}
		}
	}
	return finish(psi+t.psi(), grad, hess, spd)
}
