package element

import (
	"github.com/san-kum/femdyn/internal/fem"
	"gonum.org/v1/gonum/mat"
)

// edgeMatrix builds [u1-u0, u2-u0, u3-u0] from a nodal vector.
func edgeMatrix(u mat.Vector) *mat.Dense {
	ds := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		for r := 0; r < 3; r++ {
			ds.Set(r, j, u.AtVec(3*(j+1)+r)-u.AtVec(r))
		}
	}
	return ds
}

// ComputeDeformationGradient returns F = I + Ds(u)·Minv for the nodal
// displacement u. The rest configuration and rigid translations map to
// the identity.
func ComputeDeformationGradient(minv mat.Matrix, u mat.Vector) *mat.Dense {
	var F mat.Dense
	F.Mul(edgeMatrix(u), minv)
	for i := 0; i < 3; i++ {
		F.Set(i, i, F.At(i, i)+1)
	}
	return &F
}

// ComputeVelocityGradient returns L = Ds(v)·Minv for nodal velocities v.
// It vanishes at zero velocity and has the same derivative with respect
// to v as F has with respect to u.
func ComputeVelocityGradient(minv mat.Matrix, v mat.Vector) *mat.Dense {
	var L mat.Dense
	L.Mul(edgeMatrix(v), minv)
	return &L
}

// ShapeGradientOperator builds the 9x12 map dF/du consistent with Minv.
//
//	F[r][c] = δ + Σ_j (u[3(j+1)+r] - u[r]) · Minv[j][c]
func ShapeGradientOperator(minv mat.Matrix) *mat.Dense {
	d := mat.NewDense(fem.TensorDim, fem.Dof, nil)
	for c := 0; c < 3; c++ {
		var sum float64
		for j := 0; j < 3; j++ {
			m := minv.At(j, c)
			sum += m
			for r := 0; r < 3; r++ {
				d.Set(3*c+r, 3*(j+1)+r, m)
			}
		}
		for r := 0; r < 3; r++ {
			d.Set(3*c+r, r, -sum)
		}
	}
	return d
}
