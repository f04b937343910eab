package element

import (
	"fmt"

	"github.com/san-kum/femdyn/internal/fem"
	"gonum.org/v1/gonum/spatial/r3"
)

// Material carries the constitutive parameters of one element. The
// integrators never read it; only force and damping models do.
type Material struct {
	Young   float64 // Young's modulus
	Poisson float64 // Poisson ratio
	Damping float64 // velocity damping coefficient

	Fiber          r3.Vec  // fiber orientation (need not be normalized)
	FiberStiffness float64 // fiber stiffness, 0 disables the fiber term

	YieldStress float64 // von Mises yield stress
	Hardening   float64 // kinematic hardening modulus
}

// Lame converts (E, ν) to the Lamé parameters.
func (m Material) Lame() (lambda, mu float64) {
	return Enu2Lambda(m.Young, m.Poisson), Enu2Mu(m.Young, m.Poisson)
}

func Enu2Lambda(E, nu float64) float64 {
	return E * nu / ((1 + nu) * (1 - 2*nu))
}

func Enu2Mu(E, nu float64) float64 {
	return E / (2 * (1 + nu))
}

// Validate checks parameter bounds.
func (m Material) Validate() error {
	if m.Young <= 0 {
		return fmt.Errorf("%w: young modulus must be positive, got %g", fem.ErrParameterBounds, m.Young)
	}
	if m.Poisson <= 0 || m.Poisson >= 0.5 {
		return fmt.Errorf("%w: poisson ratio must lie in (0, 0.5), got %g", fem.ErrParameterBounds, m.Poisson)
	}
	if m.Damping < 0 || m.FiberStiffness < 0 || m.YieldStress < 0 || m.Hardening < 0 {
		return fmt.Errorf("%w: damping, fiber stiffness, yield stress and hardening must be non-negative", fem.ErrParameterBounds)
	}
	if !fem.IsFinite(m.Young, m.Poisson, m.Damping, m.FiberStiffness, m.YieldStress, m.Hardening,
		m.Fiber.X, m.Fiber.Y, m.Fiber.Z) {
		return fmt.Errorf("%w: material", fem.ErrInvalidState)
	}
	return nil
}

// FiberDirection returns the normalized fiber orientation, defaulting to x.
func (m Material) FiberDirection() r3.Vec {
	n := r3.Norm(m.Fiber)
	if n == 0 {
		return r3.Vec{X: 1}
	}
	return r3.Scale(1/n, m.Fiber)
}
