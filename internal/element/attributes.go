package element

import (
	"fmt"
	"math"

	"github.com/san-kum/femdyn/internal/fem"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Rest volumes below degenerateRatio·(longest edge)³ are rejected.
const degenerateRatio = 1e-10

// Attributes is the geometric and material data of one tetrahedron.
// Volume, Minv and DFDX are always derived together from the same rest
// shape; use Reshape to change them.
type Attributes struct {
	Volume  float64
	Density float64

	Minv *mat.Dense // 3x3 inverse rest edge matrix
	DFDX *mat.Dense // 9x12 shape-gradient operator

	ExtForce *mat.VecDense // 12-vector external nodal load
	Material Material

	// Plastic is nil for purely elastic elements.
	Plastic *PlasticCell
}

// Option configures optional attributes.
type Option func(*Attributes) error

// WithExternalForce sets the external nodal load.
func WithExternalForce(f []float64) Option {
	return func(a *Attributes) error {
		if len(f) != fem.Dof {
			return fmt.Errorf("%w: external force has %d components, want %d", fem.ErrDimensionMismatch, len(f), fem.Dof)
		}
		if !fem.IsFinite(f...) {
			return fmt.Errorf("%w: external force", fem.ErrInvalidState)
		}
		data := make([]float64, fem.Dof)
		copy(data, f)
		a.ExtForce = mat.NewVecDense(fem.Dof, data)
		return nil
	}
}

// WithPlasticState attaches an empty plastic state cell.
func WithPlasticState() Option {
	return func(a *Attributes) error {
		a.Plastic = NewPlasticCell()
		return nil
	}
}

// NewAttributes precomputes the element data for the rest vertices.
func NewAttributes(rest [4]r3.Vec, density float64, m Material, opts ...Option) (*Attributes, error) {
	if density <= 0 || !fem.IsFinite(density) {
		return nil, fmt.Errorf("%w: density must be positive, got %g", fem.ErrParameterBounds, density)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	a := &Attributes{
		Density:  density,
		Material: m,
		ExtForce: mat.NewVecDense(fem.Dof, nil),
	}
	if err := a.Reshape(rest); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Reshape recomputes Volume, Minv and DFDX for a new rest shape. It must
// not run concurrently with evaluation of this element.
func (a *Attributes) Reshape(rest [4]r3.Vec) error {
	var longest float64
	dm := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		e := r3.Sub(rest[j+1], rest[0])
		dm.Set(0, j, e.X)
		dm.Set(1, j, e.Y)
		dm.Set(2, j, e.Z)
		longest = math.Max(longest, r3.Norm(e))
	}
	for i := 1; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			longest = math.Max(longest, r3.Norm(r3.Sub(rest[j], rest[i])))
		}
	}

	vol := math.Abs(mat.Det(dm)) / 6
	if !fem.IsFinite(vol) || vol <= degenerateRatio*longest*longest*longest {
		return fmt.Errorf("%w: volume %g", fem.ErrDegenerateElement, vol)
	}

	var minv mat.Dense
	if err := minv.Inverse(dm); err != nil {
		return fmt.Errorf("%w: %v", fem.ErrDegenerateElement, err)
	}

	a.Volume = vol
	a.Minv = &minv
	a.DFDX = ShapeGradientOperator(&minv)
	return nil
}

// NodalMass is the lumped mass per node.
func (a *Attributes) NodalMass() float64 {
	return a.Volume * a.Density / fem.NodesPerElement
}
