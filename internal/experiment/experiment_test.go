package experiment

import (
	"context"
	"testing"

	"github.com/san-kum/femdyn/internal/config"
	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/material"
	"github.com/san-kum/femdyn/internal/sim"
	"github.com/san-kum/femdyn/internal/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"backward_euler", "quasi_static"}, r.ListIntegrators())
	assert.Equal(t, material.Names(), r.ListModels())

	m, err := r.GetModel("stvk")
	require.NoError(t, err)
	assert.Equal(t, material.KindStVK, m.Kind())

	_, err = r.GetModel("mooney")
	assert.ErrorIs(t, err, fem.ErrUnknownKind)
	_, err = r.GetIntegrator("rk4", config.DefaultConfig())
	assert.ErrorIs(t, err, fem.ErrUnknownKind)
	_, err = r.Tolerance("rk4", config.DefaultConfig())
	assert.ErrorIs(t, err, fem.ErrUnknownKind)

	tol, err := r.Tolerance("quasi_static", config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, verify.QuasiStaticDefaults(), tol)
}

func TestBuildDefault(t *testing.T) {
	s, err := Build(config.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "backward_euler", s.Integrator.Name())
	assert.Equal(t, material.KindNeoHookean, s.Force.Kind())
	assert.Equal(t, material.KindDirichlet, s.Damping.Kind())
	assert.Nil(t, s.Verifier)
	assert.Nil(t, s.Attrs.Plastic)
	assert.Len(t, s.History, 3)
	assert.InDelta(t, 1.0/6, s.Attrs.Volume, 1e-15)

	c, err := s.Evaluate(fem.LevelHessian)
	require.NoError(t, err)
	lambda, mu := s.Attrs.Material.Lame()
	want := s.Attrs.Volume * mu * mu / (2 * lambda)
	assert.InDelta(t, want, c.Objective, 1e-12*want)
}

func TestBuildScenarioPreset(t *testing.T) {
	s, err := Build(config.GetPreset("scenario"))
	require.NoError(t, err)
	assert.InDelta(t, 1e-3, s.Attrs.Volume, 1e-15)
	assert.Equal(t, 1e-4, s.History[2].AtVec(3))

	c, err := s.Evaluate(fem.LevelHessian)
	require.NoError(t, err)
	assert.True(t, fem.IsFinite(c.Objective))
	assert.True(t, fem.IsFinite(c.Gradient.RawVector().Data...))
	assert.True(t, fem.MatrixIsFinite(c.Hessian))

	rep, err := s.Check()
	require.NoError(t, err)
	assert.Equal(t, material.KindStVK, rep.Kind)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *config.Config)
		want error
	}{
		{"unknown integrator", func(c *config.Config) { c.Integrator = "rk4" }, fem.ErrUnknownKind},
		{"unknown force", func(c *config.Config) { c.Force = "mooney" }, fem.ErrUnknownKind},
		{"damping as force", func(c *config.Config) { c.Force = "dirichlet" }, fem.ErrParameterBounds},
		{"force as damping", func(c *config.Config) { c.Damping = "stvk" }, fem.ErrParameterBounds},
		{"history length", func(c *config.Config) { c.History = [][]float64{make([]float64, fem.Dof)} }, fem.ErrHistoryLength},
		{"degenerate element", func(c *config.Config) { c.Element.Vertices[3] = []float64{1, 1, 0} }, fem.ErrDegenerateElement},
		{"invalid dt", func(c *config.Config) { c.Dt = -1 }, fem.ErrParameterBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.edit(cfg)
			_, err := Build(cfg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuildDebugWrapsForce(t *testing.T) {
	s, err := Build(config.GetPreset("fiber"))
	require.NoError(t, err)
	require.NotNil(t, s.Verifier)

	checked, ok := s.Force.(*verify.Checked)
	require.True(t, ok, "force model is %T", s.Force)
	assert.Equal(t, material.KindFiber, checked.Unwrap().Kind())
	assert.Equal(t, verify.BackwardEulerDefaults(), s.Verifier.Tolerance())

	_, err = s.Evaluate(fem.LevelHessian)
	assert.NoError(t, err)
}

// skewedStVK reports a Hessian with one entry off.
type skewedStVK struct{ material.StVK }

func (m skewedStVK) ComputePsiDerivHessian(attrs *element.Attributes, F mat.Matrix, spd bool) (float64, *mat.VecDense, *mat.SymDense, error) {
	psi, g, h, err := m.StVK.ComputePsiDerivHessian(attrs, F, spd)
	if err != nil {
		return 0, nil, nil, err
	}
	h.SetSym(0, 0, 10*h.At(0, 0)+1)
	return psi, g, h, nil
}

func TestBuildDebugAborts(t *testing.T) {
	r := NewRegistry()
	r.RegisterModel("skewed", func() (material.Model, error) { return skewedStVK{}, nil })

	cfg := config.GetPreset("stretch")
	cfg.Force = "skewed"
	cfg.Debug = true
	s, err := Build(cfg, WithRegistry(r))
	require.NoError(t, err)

	_, err = s.Evaluate(fem.LevelHessian)
	assert.ErrorIs(t, err, fem.ErrVerification)

	_, err = s.Evaluate(fem.LevelGradient)
	assert.NoError(t, err)

	cfg.Debug = false
	s, err = Build(cfg, WithRegistry(r))
	require.NoError(t, err)
	_, err = s.Evaluate(fem.LevelHessian)
	assert.NoError(t, err)
	_, err = s.Check()
	assert.ErrorIs(t, err, fem.ErrVerification)
}

func TestSweepLoading(t *testing.T) {
	cfg := config.GetPreset("scenario")
	s, err := Build(cfg)
	require.NoError(t, err)

	amounts := s.SweepAmounts()
	require.Len(t, amounts, cfg.Sweep.Steps)
	assert.InDelta(t, cfg.Sweep.Max, amounts[len(amounts)-1], 1e-18)

	load := s.SweepLoading()
	h, err := load(4, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1e-4+amounts[4], h[2].AtVec(3), 1e-18)
	assert.Equal(t, 1e-4, s.History[2].AtVec(3), "base history modified")

	_, err = load(len(amounts), 0)
	assert.ErrorIs(t, err, fem.ErrParameterBounds)
}

func TestSweepPlastic(t *testing.T) {
	s, err := Build(config.GetPreset("plastic"))
	require.NoError(t, err)
	require.NotNil(t, s.Attrs.Plastic)

	var steps int
	trace, err := s.Sweep(context.Background(), fem.LevelGradient, sim.ObserverFunc(func(int, *sim.Result, int) { steps++ }))
	require.NoError(t, err)
	assert.Equal(t, 25, trace.StepsTaken)
	assert.Equal(t, 25, steps)

	var yields int
	for _, y := range trace.Yields {
		yields += y
	}
	assert.Positive(t, yields)
	assert.Equal(t, yields, s.Attrs.Plastic.Snapshot().Yields)
}

func TestSweepElasticGrows(t *testing.T) {
	s, err := Build(config.GetPreset("stretch"))
	require.NoError(t, err)

	trace, err := s.Sweep(context.Background(), fem.LevelGradient)
	require.NoError(t, err)
	for i := 1; i < len(trace.Objectives); i++ {
		assert.Greater(t, trace.Objectives[i], trace.Objectives[i-1], "step %d", i)
	}
	for _, y := range trace.Yields {
		assert.Zero(t, y)
	}
}
