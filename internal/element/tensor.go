package element

import (
	"github.com/san-kum/femdyn/internal/fem"
	"gonum.org/v1/gonum/mat"
)

// Flatten stacks the columns of a 3x3 tensor into a 9-vector.
func Flatten(m mat.Matrix) *mat.VecDense {
	v := mat.NewVecDense(fem.TensorDim, nil)
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			v.SetVec(3*c+r, m.At(r, c))
		}
	}
	return v
}

// Unflatten is the inverse of Flatten.
func Unflatten(v mat.Vector) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for c := 0; c < 3; c++ {
		for r := 0; r < 3; r++ {
			m.Set(r, c, v.AtVec(3*c+r))
		}
	}
	return m
}

// Identity3 returns a fresh 3x3 identity.
func Identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}

// Tensor converts a fixed-size tensor to a gonum matrix.
func Tensor(t [3][3]float64) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.Set(r, c, t[r][c])
		}
	}
	return m
}

// Array copies a 3x3 matrix into a fixed-size tensor.
func Array(m mat.Matrix) [3][3]float64 {
	var t [3][3]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			t[r][c] = m.At(r, c)
		}
	}
	return t
}
