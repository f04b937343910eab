package fem

import (
	"errors"
	"fmt"
)

// Domain errors for element evaluation.
var (
	// ErrInvalidState indicates a NaN or Inf in an input or output vector.
	ErrInvalidState = errors.New("fem: invalid state (NaN or Inf detected)")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("fem: parameter out of valid bounds")

	// ErrDegenerateElement indicates a rest tetrahedron with (near) zero volume.
	ErrDegenerateElement = errors.New("fem: degenerate rest tetrahedron")

	// ErrHistoryLength indicates the displacement history does not match the integrator.
	ErrHistoryLength = errors.New("fem: displacement history has wrong length")

	// ErrDimensionMismatch indicates a vector or matrix with the wrong shape.
	ErrDimensionMismatch = errors.New("fem: dimension mismatch")

	// ErrVerification indicates analytic derivatives disagree with finite differences.
	ErrVerification = errors.New("fem: finite-difference verification failed")

	// ErrEigenDecomposition indicates the symmetric eigensolver did not converge.
	ErrEigenDecomposition = errors.New("fem: eigen decomposition failed")

	// ErrUnknownKind indicates a model name or tag that is not registered.
	ErrUnknownKind = errors.New("fem: unknown model kind")
)

// EvalError wraps an error with element evaluation context. Element is
// negative when the failing call was not part of a batch.
type EvalError struct {
	Element    int
	Integrator string
	Op         string
	Wrapped    error
}

func (e *EvalError) Error() string {
	if e.Element < 0 {
		return fmt.Sprintf("%s.%s: %v", e.Integrator, e.Op, e.Wrapped)
	}
	return fmt.Sprintf("element %d (%s.%s): %v", e.Element, e.Integrator, e.Op, e.Wrapped)
}

func (e *EvalError) Unwrap() error {
	return e.Wrapped
}

// ValidationError reports a finite-difference mismatch together with
// everything needed to reproduce it.
type ValidationError struct {
	Model   string
	F       []float64 // column-major 3x3
	GradErr float64
	HessErr float64

	Grad, GradFD []float64
	Hess, HessFD []float64 // row-major 9x9

	// Column j of HessFD differences the gradient along vec(F)_j.

	// Element state for diagnosis.
	Young, Poisson float64
	PlasticStrain  []float64
	HardeningShift []float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: model %s, gradient error %.3e, hessian error %.3e",
		ErrVerification, e.Model, e.GradErr, e.HessErr)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrVerification
}
