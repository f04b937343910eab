package fem

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// NodesPerElement is the number of nodes of a linear tetrahedron.
	NodesPerElement = 4
	// Dof is the number of displacement components per element.
	Dof = 3 * NodesPerElement
	// TensorDim is the length of a flattened 3x3 tensor.
	TensorDim = 9
)

// History is an ordered sequence of nodal displacement vectors, oldest first.
type History []*mat.VecDense

// NewHistory builds a history from raw 12-component slices.
func NewHistory(states ...[]float64) (History, error) {
	h := make(History, len(states))
	for i, s := range states {
		if len(s) != Dof {
			return nil, fmt.Errorf("%w: state %d has %d components, want %d", ErrDimensionMismatch, i, len(s), Dof)
		}
		data := make([]float64, Dof)
		copy(data, s)
		h[i] = mat.NewVecDense(Dof, data)
	}
	return h, nil
}

// Rest returns a history of n zero displacement vectors.
func Rest(n int) History {
	h := make(History, n)
	for i := range h {
		h[i] = mat.NewVecDense(Dof, nil)
	}
	return h
}

// Validate checks that the history holds exactly n finite 12-vectors.
func (h History) Validate(n int) error {
	if len(h) != n {
		return fmt.Errorf("%w: got %d states, want %d", ErrHistoryLength, len(h), n)
	}
	for i, u := range h {
		if u == nil || u.Len() != Dof {
			return fmt.Errorf("%w: state %d is not a %d-vector", ErrDimensionMismatch, i, Dof)
		}
		if !IsFinite(u.RawVector().Data...) {
			return fmt.Errorf("%w: state %d", ErrInvalidState, i)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (h History) Clone() History {
	c := make(History, len(h))
	for i, u := range h {
		c[i] = mat.VecDenseCopyOf(u)
	}
	return c
}

// Level selects which derivatives an evaluation produces.
type Level uint8

const (
	LevelObjective Level = iota
	LevelGradient
	LevelHessian
)

func (l Level) String() string {
	switch l {
	case LevelObjective:
		return "objective"
	case LevelGradient:
		return "gradient"
	case LevelHessian:
		return "hessian"
	default:
		return fmt.Sprintf("level(%d)", uint8(l))
	}
}

// IsFinite reports whether no value is NaN or Inf.
func IsFinite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MatrixIsFinite reports whether every entry of m is finite.
func MatrixIsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !IsFinite(m.At(i, j)) {
				return false
			}
		}
	}
	return true
}
