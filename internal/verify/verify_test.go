package verify_test

import (
	"bytes"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/material"
	"github.com/san-kum/femdyn/internal/verify"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// brokenHessian reports twice the true Hessian.
type brokenHessian struct{ material.StVK }

func (b brokenHessian) ComputePsiDerivHessian(attrs *element.Attributes, F mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	psi, g, h, err := b.StVK.ComputePsiDerivHessian(attrs, F, spd)
	if err != nil {
		return 0, nil, nil, err
	}
	h.ScaleSym(2, h)
	return psi, g, h, nil
}

// brokenGradient reports a gradient with a flipped sign.
type brokenGradient struct{ material.Plastic }

func (b brokenGradient) ComputePsiDerivHessian(attrs *element.Attributes, F mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	psi, g, h, err := b.Plastic.ComputePsiDerivHessian(attrs, F, spd)
	if err != nil {
		return 0, nil, nil, err
	}
	g.ScaleVec(-1, g)
	return psi, g, h, nil
}

func unitAttributes() *element.Attributes {
	rest := [4]r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}, {X: 0, Y: 0, Z: 1}}
	attrs, err := element.NewAttributes(rest, 1000, element.Material{
		Young:          1e4,
		Poisson:        0.3,
		Damping:        0.5,
		Fiber:          r3.Vec{X: 1, Y: 1, Z: 0},
		FiberStiffness: 1e3,
		YieldStress:    50,
		Hardening:      100,
	}, element.WithPlasticState())
	Expect(err).NotTo(HaveOccurred())
	return attrs
}

func stretched() *mat.Dense {
	return element.Tensor([3][3]float64{
		{1.2, 0.05, 0},
		{0.02, 0.9, 0.1},
		{0, -0.03, 1.05},
	})
}

var _ = Describe("Tolerance", func() {
	It("uses the per-integrator defaults", func() {
		be := verify.BackwardEulerDefaults()
		Expect(be.Ratio).To(Equal(1e-6))
		Expect(be.GradTol).To(Equal(1e-3))
		Expect(be.HessTol).To(Equal(1e-5))
		Expect(be.Sampler).To(Equal(verify.SampleRandom))

		qs := verify.QuasiStaticDefaults()
		Expect(qs.Ratio).To(Equal(1e-8))
		Expect(qs.HessTol).To(Equal(1e-3))
		Expect(qs.Sampler).To(Equal(verify.SampleState))
	})

	It("rejects non-positive bounds", func() {
		_, err := verify.New(verify.Tolerance{Ratio: 0, GradTol: 1, HessTol: 1})
		Expect(errors.Is(err, fem.ErrParameterBounds)).To(BeTrue())
	})

	It("parses sampler names", func() {
		s, err := verify.ParseSampler("state")
		Expect(err).NotTo(HaveOccurred())
		Expect(s.String()).To(Equal("state"))

		_, err = verify.ParseSampler("sobol")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Verifier", func() {
	var (
		attrs *element.Attributes
		v     *verify.Verifier
	)

	BeforeEach(func() {
		attrs = unitAttributes()
		var err error
		v, err = verify.New(verify.BackwardEulerDefaults(), verify.WithSeed(7))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Sample", func() {
		It("draws symmetric positive semidefinite tensors", func() {
			for i := 0; i < 20; i++ {
				S := v.Sample(element.Identity3())
				Expect(mat.EqualApprox(S, S.T(), 1e-14)).To(BeTrue())
				var eig mat.EigenSym
				Expect(eig.Factorize(mat.NewSymDense(3, element.Flatten(S).RawVector().Data), false)).To(BeTrue())
				for _, ev := range eig.Values(nil) {
					Expect(ev).To(BeNumerically(">=", -1e-12))
				}
			}
		})

		It("returns the evaluated tensor for the state sampler", func() {
			sv, err := verify.New(verify.QuasiStaticDefaults())
			Expect(err).NotTo(HaveOccurred())
			F := stretched()
			Expect(mat.Equal(sv.Sample(F), F)).To(BeTrue())
		})

		It("is reproducible for a fixed seed", func() {
			other, err := verify.New(verify.BackwardEulerDefaults(), verify.WithSeed(7))
			Expect(err).NotTo(HaveOccurred())
			Expect(mat.Equal(v.Sample(nil), other.Sample(nil))).To(BeTrue())
		})
	})

	DescribeTable("accepts correct analytic derivatives",
		func(kind material.Kind) {
			model, err := material.New(kind)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 5; i++ {
				rep, err := v.Check(model, attrs, v.Sample(nil))
				Expect(err).NotTo(HaveOccurred())
				Expect(rep.GradErr).To(BeNumerically("<=", 1e-3))
				Expect(rep.HessErr).To(BeNumerically("<=", 1e-5))
			}
		},
		Entry("linear", material.KindLinear),
		Entry("stvk", material.KindStVK),
		Entry("neohookean", material.KindNeoHookean),
		Entry("fiber", material.KindFiber),
		Entry("plastic", material.KindPlastic),
		Entry("dirichlet", material.KindDirichlet),
		Entry("none", material.KindNone),
	)

	It("checks at the real state with quasi-static settings", func() {
		qs, err := verify.New(verify.QuasiStaticDefaults())
		Expect(err).NotTo(HaveOccurred())
		model, _ := material.New(material.KindNeoHookean)
		rep, err := qs.Check(model, attrs, qs.Sample(stretched()))
		Expect(err).NotTo(HaveOccurred())
		Expect(mat.Equal(rep.F, stretched())).To(BeTrue())
	})

	It("reports a wrong Hessian", func() {
		rep, err := v.Check(brokenHessian{}, attrs, stretched())
		Expect(errors.Is(err, fem.ErrVerification)).To(BeTrue())
		Expect(rep.HessErr).To(BeNumerically(">", 0.1))
		Expect(rep.GradErr).To(BeNumerically("<=", 1e-3))

		var verr *fem.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
		Expect(verr.Model).To(Equal("stvk"))
		Expect(verr.F).To(HaveLen(fem.TensorDim))
		Expect(verr.Hess).To(HaveLen(fem.TensorDim * fem.TensorDim))
		Expect(verr.Young).To(Equal(1e4))
	})

	It("stores the Hessians row-major", func() {
		rep, err := v.Check(brokenHessian{}, attrs, stretched())
		var verr *fem.ValidationError
		Expect(errors.As(err, &verr)).To(BeTrue())
		for i := 0; i < fem.TensorDim; i++ {
			for j := 0; j < fem.TensorDim; j++ {
				Expect(verr.HessFD[i*fem.TensorDim+j]).To(Equal(rep.HessFD.At(i, j)))
				Expect(verr.Hess[i*fem.TensorDim+j]).To(Equal(rep.Hess.At(i, j)))
			}
		}
	})

	It("logs plastic state for a failing plastic model", func() {
		var buf bytes.Buffer
		logged, err := verify.New(verify.BackwardEulerDefaults(),
			verify.WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
		Expect(err).NotTo(HaveOccurred())

		_, err = logged.Check(brokenGradient{}, attrs, stretched())
		Expect(errors.Is(err, fem.ErrVerification)).To(BeTrue())
		Expect(buf.String()).To(ContainSubstring(`"model":"plastic"`))
		Expect(buf.String()).To(ContainSubstring("plastic_strain"))
		Expect(buf.String()).NotTo(ContainSubstring(`"young"`))
	})

	It("uses the absolute error when the estimate is zero", func() {
		// Nonzero gradient where the finite difference sees nothing.
		rep, err := v.Check(constantGradient{}, attrs, stretched())
		Expect(err).To(HaveOccurred())
		Expect(rep.GradErr).To(Equal(1.0))
		Expect(rep.HessErr).To(BeZero())
	})
})

var _ = Describe("Wrap", func() {
	It("returns the model unchanged without a verifier", func() {
		m := material.StVK{}
		Expect(verify.Wrap(m, nil)).To(Equal(material.Model(m)))
	})

	It("keeps the kind of the decorated model", func() {
		v, _ := verify.New(verify.BackwardEulerDefaults())
		wrapped := verify.Wrap(material.NeoHookean{}, v)
		Expect(wrapped.Kind()).To(Equal(material.KindNeoHookean))
		Expect(wrapped.(*verify.Checked).Unwrap()).To(Equal(material.Model(material.NeoHookean{})))
	})

	It("passes through correct Hessians", func() {
		attrs := unitAttributes()
		v, _ := verify.New(verify.BackwardEulerDefaults())
		wrapped := verify.Wrap(material.StVK{}, v)

		_, g, h, err := wrapped.ComputePsiDerivHessian(attrs, stretched(), false)
		Expect(err).NotTo(HaveOccurred())
		_, g0, h0, _ := material.StVK{}.ComputePsiDerivHessian(attrs, stretched(), false)
		Expect(mat.Equal(g, g0)).To(BeTrue())
		Expect(mat.Equal(h, h0)).To(BeTrue())
	})

	It("aborts evaluation on a mismatch", func() {
		attrs := unitAttributes()
		v, _ := verify.New(verify.BackwardEulerDefaults())
		wrapped := verify.Wrap(brokenHessian{}, v)

		_, g, h, err := wrapped.ComputePsiDerivHessian(attrs, stretched(), false)
		Expect(errors.Is(err, fem.ErrVerification)).To(BeTrue())
		Expect(g).To(BeNil())
		Expect(h).To(BeNil())
	})
})

// constantGradient has zero energy but claims a unit gradient.
type constantGradient struct{ material.NoDamping }

func (constantGradient) ComputePsiDerivHessian(*element.Attributes, mat.Matrix, bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	g := mat.NewVecDense(fem.TensorDim, nil)
	g.SetVec(0, 1)
	return 0, g, mat.NewSymDense(fem.TensorDim, nil), nil
}
