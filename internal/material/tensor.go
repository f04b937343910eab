package material

import (
	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// unit returns the 3x3 tensor whose flattened entry k is one.
func unit(k int) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	m.Set(k%3, k/3, 1)
	return m
}

func ddot(a, b mat.Matrix) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			sum += a.At(i, j) * b.At(i, j)
		}
	}
	return sum
}

// addScaledIdentity adds s·I to m in place.
func addScaledIdentity(m *mat.Dense, s float64) {
	for i := 0; i < 3; i++ {
		m.Set(i, i, m.At(i, i)+s)
	}
}

// greenStrain returns E = ½(FᵀF - I).
func greenStrain(F mat.Matrix) *mat.Dense {
	var E mat.Dense
	E.Mul(F.T(), F)
	addScaledIdentity(&E, -1)
	E.Scale(0.5, &E)
	return &E
}

// kirchhoffStress returns S = 2μE + λ tr(E) I.
func kirchhoffStress(E mat.Matrix, lambda, mu float64) *mat.Dense {
	var S mat.Dense
	S.Scale(2*mu, E)
	addScaledIdentity(&S, lambda*mat.Trace(E))
	return &S
}

// deviator returns m - tr(m)/3 I.
func deviator(m mat.Matrix) *mat.Dense {
	d := mat.DenseCopyOf(m)
	addScaledIdentity(d, -mat.Trace(m)/3)
	return d
}

// hessianFromDirectional assembles a 9x9 Hessian column by column from
// the directional derivative of the first Piola stress.
func hessianFromDirectional(dP func(dF *mat.Dense) *mat.Dense) *mat.SymDense {
	cols := mat.NewDense(fem.TensorDim, fem.TensorDim, nil)
	for k := 0; k < fem.TensorDim; k++ {
		cols.SetCol(k, element.Flatten(dP(unit(k))).RawVector().Data)
	}
	return symmetrize(cols)
}

func symmetrize(d mat.Matrix) *mat.SymDense {
	n, _ := d.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, 0.5*(d.At(i, j)+d.At(j, i)))
		}
	}
	return s
}

func columns(F mat.Matrix) [3]r3.Vec {
	var c [3]r3.Vec
	for j := 0; j < 3; j++ {
		c[j] = r3.Vec{X: F.At(0, j), Y: F.At(1, j), Z: F.At(2, j)}
	}
	return c
}

// skew returns the cross-product matrix of a, [a]x b = a × b.
func skew(a r3.Vec) [3][3]float64 {
	return [3][3]float64{
		{0, -a.Z, a.Y},
		{a.Z, 0, -a.X},
		{-a.Y, a.X, 0},
	}
}

// addBlock adds s·b to the 3x3 block (bi, bj) of a 9x9 matrix.
func addBlock(h *mat.SymDense, bi, bj int, b [3][3]float64, s float64) {
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			i, j := 3*bi+r, 3*bj+c
			if i > j {
				continue
			}
			h.SetSym(i, j, h.At(i, j)+s*b[r][c])
		}
	}
}
