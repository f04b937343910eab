package material

import (
	"math"

	"github.com/san-kum/femdyn/internal/element"
	"gonum.org/v1/gonum/mat"
)

// Trial states within yieldTol·radius of the yield surface are elastic.
const yieldTol = 1e-10

// Plastic is StVK evaluated on the elastic strain E - Ep, where Ep is
// the plastic strain held in the element's plastic cell. Evaluation
// only reads a snapshot of the cell; ReturnMap is the single writer.
type Plastic struct{}

func (Plastic) Kind() Kind { return KindPlastic }

func elasticStrain(attrs *element.Attributes, F mat.Matrix) *mat.Dense {
	E := greenStrain(F)
	if attrs.Plastic != nil {
		E.Sub(E, element.Tensor(attrs.Plastic.Snapshot().Strain))
	}
	return E
}

func (Plastic) ComputePsi(attrs *element.Attributes, F mat.Matrix) float64 {
	lambda, mu := attrs.Material.Lame()
	return stvkPsi(elasticStrain(attrs, F), lambda, mu)
}

func (Plastic) ComputePsiDeriv(attrs *element.Attributes, F mat.Matrix) (float64, *mat.VecDense) {
	lambda, mu := attrs.Material.Lame()
	return stvkDeriv(F, elasticStrain(attrs, F), lambda, mu)
}

func (Plastic) ComputePsiDerivHessian(attrs *element.Attributes, F mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	lambda, mu := attrs.Material.Lame()
	Ee := elasticStrain(attrs, F)
	psi, grad := stvkDeriv(F, Ee, lambda, mu)
	hess := stvkHessian(F, kirchhoffStress(Ee, lambda, mu), lambda, mu)
	return finish(psi, grad, hess, spd)
}

// ReturnMap advances the plastic state of an element to the committed
// deformation F with a von Mises radial return and linear kinematic
// hardening. It reports whether the element yielded. Elements without a
// plastic cell or with a non-positive yield stress stay elastic.
//
// ReturnMap writes the cell and must not overlap evaluation of the same
// element.
func ReturnMap(attrs *element.Attributes, F mat.Matrix) bool {
	m := attrs.Material
	if attrs.Plastic == nil || m.YieldStress <= 0 {
		return false
	}
	lambda, mu := m.Lame()
	radius := math.Sqrt(2.0/3.0) * m.YieldStress

	yielded := false
	attrs.Plastic.Commit(func(s *element.PlasticState) {
		Ee := greenStrain(F)
		Ee.Sub(Ee, element.Tensor(s.Strain))

		xi := deviator(kirchhoffStress(Ee, lambda, mu))
		xi.Sub(xi, element.Tensor(s.Shift))
		norm := mat.Norm(xi, 2)
		excess := norm - radius
		if excess <= yieldTol*radius {
			return
		}

		dgamma := excess / (2*mu + 2.0/3.0*m.Hardening)
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				n := xi.At(r, c) / norm
				s.Strain[r][c] += dgamma * n
				s.Shift[r][c] += 2.0 / 3.0 * m.Hardening * dgamma * n
			}
		}
		s.Yields++
		yielded = true
	})
	return yielded
}
