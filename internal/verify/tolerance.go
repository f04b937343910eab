package verify

import (
	"fmt"

	"github.com/san-kum/femdyn/internal/fem"
)

// Sampler chooses the tensor a decorated model is checked at.
type Sampler uint8

const (
	// SampleRandom checks at F = AᵀA with A uniform in [-1, 1].
	SampleRandom Sampler = iota
	// SampleState checks at the tensor being evaluated.
	SampleState
)

func (s Sampler) String() string {
	switch s {
	case SampleRandom:
		return "random"
	case SampleState:
		return "state"
	}
	return fmt.Sprintf("sampler(%d)", uint8(s))
}

func ParseSampler(name string) (Sampler, error) {
	switch name {
	case "random", "":
		return SampleRandom, nil
	case "state":
		return SampleState, nil
	}
	return 0, fmt.Errorf("%w: unknown sampler %q", fem.ErrParameterBounds, name)
}

// Tolerance configures one verifier. The defaults differ per integrator
// and are tuned empirically; treat them as starting points.
type Tolerance struct {
	Ratio   float64 // relative perturbation, also the minimum step
	GradTol float64 // bound on the relative gradient error
	HessTol float64 // bound on the relative Hessian error

	// Abs accepts a mismatch whose absolute norm is at most Abs even
	// when the relative error is large. Zero disables it.
	Abs float64

	Sampler Sampler
}

// BackwardEulerDefaults is the tolerance set used with the implicit integrator.
func BackwardEulerDefaults() Tolerance {
	return Tolerance{Ratio: 1e-6, GradTol: 1e-3, HessTol: 1e-5, Sampler: SampleRandom}
}

// QuasiStaticDefaults uses a tighter step and a looser Hessian bound.
func QuasiStaticDefaults() Tolerance {
	return Tolerance{Ratio: 1e-8, GradTol: 1e-3, HessTol: 1e-3, Sampler: SampleState}
}

func (t Tolerance) Validate() error {
	if t.Ratio <= 0 || t.GradTol <= 0 || t.HessTol <= 0 || t.Abs < 0 {
		return fmt.Errorf("%w: verifier tolerance %+v", fem.ErrParameterBounds, t)
	}
	return nil
}
