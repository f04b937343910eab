package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/femdyn/internal/config"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/integrators"
	"github.com/san-kum/femdyn/internal/material"
	"github.com/san-kum/femdyn/internal/verify"
)

type IntegratorFactory func(cfg *config.Config) (integrators.Integrator, error)

type Registry struct {
	models      map[string]func() (material.Model, error)
	integrators map[string]IntegratorFactory
	tolerances  map[string]func(cfg *config.Config) config.ToleranceConfig
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func() (material.Model, error)),
		integrators: make(map[string]IntegratorFactory),
		tolerances:  make(map[string]func(cfg *config.Config) config.ToleranceConfig),
	}

	for _, name := range material.Names() {
		kind, _ := material.ParseKind(name)
		r.models[name] = func() (material.Model, error) { return material.New(kind) }
	}

	r.integrators["backward_euler"] = func(cfg *config.Config) (integrators.Integrator, error) {
		return integrators.NewBackwardEuler(cfg.Dt, cfg.GravityVec(), cfg.Filtering)
	}
	r.integrators["quasi_static"] = func(cfg *config.Config) (integrators.Integrator, error) {
		return integrators.NewQuasiStatic(cfg.GravityVec(), cfg.Filtering)
	}

	r.tolerances["backward_euler"] = func(cfg *config.Config) config.ToleranceConfig { return cfg.Verify.BackwardEuler }
	r.tolerances["quasi_static"] = func(cfg *config.Config) config.ToleranceConfig { return cfg.Verify.QuasiStatic }

	return r
}

// RegisterModel adds or replaces a named model factory.
func (r *Registry) RegisterModel(name string, fn func() (material.Model, error)) {
	r.models[name] = fn
}

func (r *Registry) GetModel(name string) (material.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: model %q", fem.ErrUnknownKind, name)
	}
	return fn()
}

func (r *Registry) GetIntegrator(name string, cfg *config.Config) (integrators.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("%w: integrator %q", fem.ErrUnknownKind, name)
	}
	return fn(cfg)
}

// Tolerance returns the verifier settings configured for an integrator.
func (r *Registry) Tolerance(name string, cfg *config.Config) (verify.Tolerance, error) {
	fn, ok := r.tolerances[name]
	if !ok {
		return verify.Tolerance{}, fmt.Errorf("%w: integrator %q", fem.ErrUnknownKind, name)
	}
	return fn(cfg).Tolerance()
}

func (r *Registry) ListModels() []string {
	return sortedKeys(r.models)
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
