package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/femdyn/internal/config"
	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/integrators"
	"github.com/san-kum/femdyn/internal/material"
	"github.com/san-kum/femdyn/internal/sim"
	"github.com/san-kum/femdyn/internal/verify"
	"gonum.org/v1/gonum/mat"
)

// Scenario is a single configured element ready for evaluation.
type Scenario struct {
	Config     *config.Config
	Attrs      *element.Attributes
	Force      material.Model
	Damping    material.Model
	Integrator integrators.Integrator
	History    fem.History

	// Verifier is the self-check wrapped around Force when debug is on.
	Verifier *verify.Verifier

	registry *Registry
	logger   *slog.Logger
}

type Option func(*Scenario)

func WithRegistry(r *Registry) Option {
	return func(s *Scenario) { s.registry = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Scenario) { s.logger = l }
}

// Build resolves every name in cfg and precomputes the element data.
func Build(cfg *config.Config, opts ...Option) (*Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scenario{Config: cfg, registry: NewRegistry(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.Integrator, err = s.registry.GetIntegrator(cfg.Integrator, cfg); err != nil {
		return nil, err
	}
	if s.Force, err = s.registry.GetModel(cfg.Force); err != nil {
		return nil, err
	}
	if s.Force.Kind().IsDamping() {
		return nil, fmt.Errorf("%w: %q is a damping model", fem.ErrParameterBounds, cfg.Force)
	}
	if s.Damping, err = s.registry.GetModel(cfg.Damping); err != nil {
		return nil, err
	}
	if !s.Damping.Kind().IsDamping() {
		return nil, fmt.Errorf("%w: %q is not a damping model", fem.ErrParameterBounds, cfg.Damping)
	}

	var elemOpts []element.Option
	if len(cfg.Element.ExternalForce) > 0 {
		elemOpts = append(elemOpts, element.WithExternalForce(cfg.Element.ExternalForce))
	}
	if cfg.Element.Plastic || s.Force.Kind().IsPlastic() {
		elemOpts = append(elemOpts, element.WithPlasticState())
	}
	if s.Attrs, err = element.NewAttributes(cfg.RestVertices(), cfg.Material.Density, cfg.MaterialParams(), elemOpts...); err != nil {
		return nil, err
	}

	if s.History, err = s.history(); err != nil {
		return nil, err
	}

	if cfg.Debug {
		if s.Verifier, err = s.NewVerifier(); err != nil {
			return nil, err
		}
		s.Force = verify.Wrap(s.Force, s.Verifier)
	}

	s.logger.Debug("scenario built",
		slog.String("integrator", s.Integrator.Name()),
		slog.String("force", s.Force.Kind().String()),
		slog.String("damping", s.Damping.Kind().String()),
		slog.Float64("volume", s.Attrs.Volume),
		slog.Bool("debug", cfg.Debug))
	return s, nil
}

func (s *Scenario) history() (fem.History, error) {
	n := s.Integrator.HistoryLen()
	if len(s.Config.History) == 0 {
		return fem.Rest(n), nil
	}
	if len(s.Config.History) != n {
		return nil, fmt.Errorf("%w: %s needs %d states, config has %d",
			fem.ErrHistoryLength, s.Integrator.Name(), n, len(s.Config.History))
	}
	return fem.NewHistory(s.Config.History...)
}

// NewVerifier builds a verifier with the tolerances configured for the
// scenario's integrator.
func (s *Scenario) NewVerifier() (*verify.Verifier, error) {
	tol, err := s.registry.Tolerance(s.Integrator.Name(), s.Config)
	if err != nil {
		return nil, err
	}
	return verify.New(tol, verify.WithLogger(s.logger), verify.WithSeed(s.Config.Seed))
}

func (s *Scenario) Element() sim.Element {
	return sim.Element{Attrs: s.Attrs, Force: s.Force, Damping: s.Damping, History: s.History}
}

func (s *Scenario) Evaluate(level fem.Level) (integrators.Contribution, error) {
	return s.Integrator.Evaluate(level, s.Attrs, s.Force, s.Damping, s.History)
}

// DeformationGradient is F at the newest displacement.
func (s *Scenario) DeformationGradient() *mat.Dense {
	return element.ComputeDeformationGradient(s.Attrs.Minv, s.History[len(s.History)-1])
}

// Check runs the finite-difference verifier on the force model at the
// current deformation, independent of the debug setting.
func (s *Scenario) Check() (*verify.Report, error) {
	v := s.Verifier
	if v == nil {
		var err error
		if v, err = s.NewVerifier(); err != nil {
			return nil, err
		}
	}
	model := s.Force
	if c, ok := model.(*verify.Checked); ok {
		model = c.Unwrap()
	}
	return v.Check(model, s.Attrs, v.Sample(s.DeformationGradient()))
}

func (s *Scenario) Evaluator(opts ...sim.Option) *sim.Evaluator {
	base := []sim.Option{sim.WithLogger(s.logger), sim.WithWorkers(s.Config.Workers)}
	return sim.NewEvaluator(s.Integrator, append(base, opts...)...)
}

// SweepAmounts is the perturbation applied at each sweep step.
func (s *Scenario) SweepAmounts() []float64 {
	sw := s.Config.Sweep
	amounts := make([]float64, sw.Steps)
	for k := range amounts {
		amounts[k] = sw.Max * float64(k+1) / float64(sw.Steps)
	}
	return amounts
}

// SweepLoading perturbs the configured component of the newest state.
func (s *Scenario) SweepLoading() sim.Loading {
	amounts := s.SweepAmounts()
	dof := 3*s.Config.Sweep.Node + s.Config.Sweep.Axis
	return func(step, _ int) (fem.History, error) {
		if step >= len(amounts) {
			return nil, fmt.Errorf("%w: sweep step %d of %d", fem.ErrParameterBounds, step, len(amounts))
		}
		h := s.History.Clone()
		u := h[len(h)-1]
		u.SetVec(dof, u.AtVec(dof)+amounts[step])
		return h, nil
	}
}

// Sweep evaluates the scenario along the configured perturbation,
// committing plastic flow between steps for plastic models.
func (s *Scenario) Sweep(ctx context.Context, level fem.Level, observers ...sim.Observer) (*sim.Trace, error) {
	if s.Config.Sweep.Steps == 0 {
		return nil, fmt.Errorf("%w: sweep needs at least one step", fem.ErrParameterBounds)
	}
	cfg := sim.Config{
		Steps:          s.Config.Sweep.Steps,
		Level:          level,
		AdvancePlastic: s.Force.Kind().IsPlastic(),
	}
	return s.Evaluator().Run(ctx, []sim.Element{s.Element()}, s.SweepLoading(), cfg, observers...)
}
