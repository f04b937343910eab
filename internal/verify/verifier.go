package verify

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/material"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Report is the outcome of one finite-difference comparison.
type Report struct {
	Kind    material.Kind
	F       *mat.Dense
	GradErr float64
	HessErr float64

	Grad   *mat.VecDense
	GradFD *mat.VecDense
	Hess   *mat.SymDense
	HessFD *mat.Dense
}

type Verifier struct {
	tol    Tolerance
	logger *slog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

type Option func(*Verifier)

func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

func WithSeed(seed int64) Option {
	return func(v *Verifier) { v.rng = rand.New(rand.NewSource(seed)) }
}

func New(tol Tolerance, opts ...Option) (*Verifier, error) {
	if err := tol.Validate(); err != nil {
		return nil, err
	}
	v := &Verifier{
		tol:    tol,
		logger: slog.Default(),
		rng:    rand.New(rand.NewSource(1)),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func (v *Verifier) Tolerance() Tolerance { return v.tol }

// Sample returns the tensor to check a model at when it is evaluated at F.
func (v *Verifier) Sample(F mat.Matrix) *mat.Dense {
	if v.tol.Sampler == SampleState {
		return mat.DenseCopyOf(F)
	}

	v.mu.Lock()
	A := mat.NewDense(3, 3, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			A.Set(r, c, 2*v.rng.Float64()-1)
		}
	}
	v.mu.Unlock()

	var S mat.Dense
	S.Mul(A.T(), A)
	return &S
}

// Check compares the analytic gradient and Hessian of model at F with
// forward differences. A mismatch returns the report together with a
// *fem.ValidationError.
func (v *Verifier) Check(model material.Model, attrs *element.Attributes, F mat.Matrix) (*Report, error) {
	psi, grad, hess, err := model.ComputePsiDerivHessian(attrs, F, false)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Kind:   model.Kind(),
		F:      mat.DenseCopyOf(F),
		Grad:   grad,
		Hess:   hess,
		GradFD: mat.NewVecDense(fem.TensorDim, nil),
		HessFD: mat.NewDense(fem.TensorDim, fem.TensorDim, nil),
	}

	// Hessian columns difference the first-order path against itself.
	_, base := model.ComputePsiDeriv(attrs, F)

	ratio := v.tol.Ratio
	f := element.Flatten(F)
	for i := 0; i < fem.TensorDim; i++ {
		step := f.AtVec(i) * ratio
		if math.Abs(step) < ratio {
			step = ratio
		}
		fp := mat.VecDenseCopyOf(f)
		fp.SetVec(i, fp.AtVec(i)+step)

		psiP, gradP := model.ComputePsiDeriv(attrs, element.Unflatten(fp))
		rep.GradFD.SetVec(i, (psiP-psi)/step)

		col := mat.NewVecDense(fem.TensorDim, nil)
		col.SubVec(gradP, base)
		col.ScaleVec(1/step, col)
		rep.HessFD.SetCol(i, col.RawVector().Data)
	}

	var dg mat.VecDense
	dg.SubVec(rep.GradFD, grad)
	rep.GradErr = v.relative(floats.Norm(dg.RawVector().Data, 2), floats.Norm(rep.GradFD.RawVector().Data, 2))

	var dh mat.Dense
	dh.Sub(rep.HessFD, hess)
	rep.HessErr = v.relative(mat.Norm(&dh, 2), mat.Norm(rep.HessFD, 2))

	if rep.passed(v.tol) {
		return rep, nil
	}
	verr := v.validationError(rep, attrs)
	v.logFailure(rep, attrs)
	return rep, verr
}

// relative returns diff/ref, or zero when diff is within the absolute
// allowance. A zero reference falls back to the absolute difference.
func (v *Verifier) relative(diff, ref float64) float64 {
	if diff <= v.tol.Abs {
		return 0
	}
	if ref == 0 {
		return diff
	}
	return diff / ref
}

func (r *Report) passed(tol Tolerance) bool {
	// NaN comparisons are false, so test for acceptance explicitly.
	return r.GradErr <= tol.GradTol && r.HessErr <= tol.HessTol
}

func (v *Verifier) validationError(rep *Report, attrs *element.Attributes) *fem.ValidationError {
	strain, shift := attrs.Plastic.Snapshot().Flat()
	return &fem.ValidationError{
		Model:          rep.Kind.String(),
		F:              element.Flatten(rep.F).RawVector().Data,
		GradErr:        rep.GradErr,
		HessErr:        rep.HessErr,
		Grad:           rep.Grad.RawVector().Data,
		GradFD:         rep.GradFD.RawVector().Data,
		Hess:           mat.DenseCopyOf(rep.Hess).RawMatrix().Data,
		HessFD:         rep.HessFD.RawMatrix().Data,
		Young:          attrs.Material.Young,
		Poisson:        attrs.Material.Poisson,
		PlasticStrain:  strain,
		HardeningShift: shift,
	}
}

func (v *Verifier) logFailure(rep *Report, attrs *element.Attributes) {
	args := []any{
		slog.String("model", rep.Kind.String()),
		slog.Float64("grad_err", rep.GradErr),
		slog.Float64("hess_err", rep.HessErr),
		slog.String("F", fmt.Sprint(mat.Formatted(rep.F, mat.Squeeze()))),
		slog.Any("grad", rep.Grad.RawVector().Data),
		slog.Any("grad_fd", rep.GradFD.RawVector().Data),
	}
	switch {
	case rep.Kind.IsPlastic():
		strain, shift := attrs.Plastic.Snapshot().Flat()
		args = append(args,
			slog.Any("plastic_strain", strain),
			slog.Any("hardening_shift", shift))
	case rep.Kind.IsDamping():
		args = append(args, slog.Float64("damping", attrs.Material.Damping))
	default:
		args = append(args,
			slog.Float64("young", attrs.Material.Young),
			slog.Float64("poisson", attrs.Material.Poisson))
	}
	v.logger.Error("finite-difference check failed", args...)
	v.logger.Debug("hessian mismatch",
		slog.String("hess", fmt.Sprint(mat.Formatted(rep.Hess, mat.Squeeze()))),
		slog.String("hess_fd", fmt.Sprint(mat.Formatted(rep.HessFD, mat.Squeeze()))))
}
