package config

import (
	"fmt"
	"os"

	"github.com/san-kum/femdyn/internal/element"
	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/verify"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt         = 0.01
	DefaultDensity    = 1000.0
	DefaultYoung      = 1e5
	DefaultPoisson    = 0.3
	DefaultDamping    = 0.1
	DefaultSweepSteps = 20
	DefaultSweepMax   = 1e-2
)

type Config struct {
	Integrator string    `yaml:"integrator"`
	Dt         float64   `yaml:"dt"`
	Gravity    []float64 `yaml:"gravity"`
	Filtering  bool      `yaml:"filtering"`
	Debug      bool      `yaml:"debug"`

	Force   string `yaml:"force"`
	Damping string `yaml:"damping"`

	Material MaterialConfig `yaml:"material"`
	Element  ElementConfig  `yaml:"element"`

	// History lists displacement states oldest first. Empty means rest.
	History [][]float64 `yaml:"history,omitempty"`

	Verify  VerifyConfig `yaml:"verify"`
	Sweep   SweepConfig  `yaml:"sweep"`
	Seed    int64        `yaml:"seed"`
	Workers int          `yaml:"workers"`
}

type MaterialConfig struct {
	Density        float64   `yaml:"density"`
	Young          float64   `yaml:"young"`
	Poisson        float64   `yaml:"poisson"`
	Damping        float64   `yaml:"damping"`
	Fiber          []float64 `yaml:"fiber,omitempty"`
	FiberStiffness float64   `yaml:"fiber_stiffness,omitempty"`
	YieldStress    float64   `yaml:"yield_stress,omitempty"`
	Hardening      float64   `yaml:"hardening,omitempty"`
}

type ElementConfig struct {
	Vertices      [][]float64 `yaml:"vertices"`
	ExternalForce []float64   `yaml:"external_force,omitempty"`
	Plastic       bool        `yaml:"plastic,omitempty"`
}

type VerifyConfig struct {
	BackwardEuler ToleranceConfig `yaml:"backward_euler"`
	QuasiStatic   ToleranceConfig `yaml:"quasi_static"`
}

type ToleranceConfig struct {
	Ratio   float64 `yaml:"ratio"`
	GradTol float64 `yaml:"grad_tol"`
	HessTol float64 `yaml:"hess_tol"`
	Abs     float64 `yaml:"abs,omitempty"`
	Sampler string  `yaml:"sampler"`
}

// SweepConfig perturbs one component of the newest displacement from
// zero to Max in Steps increments.
type SweepConfig struct {
	Steps int     `yaml:"steps"`
	Max   float64 `yaml:"max"`
	Node  int     `yaml:"node"`
	Axis  int     `yaml:"axis"`
}

func UnitTetrahedron() [][]float64 {
	return [][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

func DefaultConfig() *Config {
	return &Config{
		Integrator: "backward_euler",
		Dt:         DefaultDt,
		Gravity:    []float64{0, 0, 0},
		Force:      "neohookean",
		Damping:    "dirichlet",
		Material: MaterialConfig{
			Density: DefaultDensity,
			Young:   DefaultYoung,
			Poisson: DefaultPoisson,
			Damping: DefaultDamping,
		},
		Element: ElementConfig{Vertices: UnitTetrahedron()},
		Verify: VerifyConfig{
			BackwardEuler: fromTolerance(verify.BackwardEulerDefaults()),
			QuasiStatic:   fromTolerance(verify.QuasiStaticDefaults()),
		},
		Sweep: SweepConfig{Steps: DefaultSweepSteps, Max: DefaultSweepMax, Node: 1},
		Seed:  1,
	}
}

func fromTolerance(t verify.Tolerance) ToleranceConfig {
	return ToleranceConfig{Ratio: t.Ratio, GradTol: t.GradTol, HessTol: t.HessTol, Abs: t.Abs, Sampler: t.Sampler.String()}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks shapes and numeric bounds. Model and integrator names
// are resolved later by the experiment registry.
func (c *Config) Validate() error {
	if !(c.Dt > 0) || !fem.IsFinite(c.Dt) {
		return fmt.Errorf("%w: dt must be positive, got %g", fem.ErrParameterBounds, c.Dt)
	}
	if len(c.Gravity) != 3 || !fem.IsFinite(c.Gravity...) {
		return fmt.Errorf("%w: gravity must be 3 finite components, got %v", fem.ErrParameterBounds, c.Gravity)
	}
	if c.Material.Density <= 0 {
		return fmt.Errorf("%w: density must be positive, got %g", fem.ErrParameterBounds, c.Material.Density)
	}
	if len(c.Material.Fiber) != 0 && len(c.Material.Fiber) != 3 {
		return fmt.Errorf("%w: fiber needs 3 components, got %d", fem.ErrDimensionMismatch, len(c.Material.Fiber))
	}
	if err := c.MaterialParams().Validate(); err != nil {
		return err
	}
	if len(c.Element.Vertices) != fem.NodesPerElement {
		return fmt.Errorf("%w: element needs %d vertices, got %d", fem.ErrDimensionMismatch, fem.NodesPerElement, len(c.Element.Vertices))
	}
	for i, v := range c.Element.Vertices {
		if len(v) != 3 || !fem.IsFinite(v...) {
			return fmt.Errorf("%w: vertex %d must be 3 finite components", fem.ErrDimensionMismatch, i)
		}
	}
	if n := len(c.Element.ExternalForce); n != 0 && n != fem.Dof {
		return fmt.Errorf("%w: external force needs %d components, got %d", fem.ErrDimensionMismatch, fem.Dof, n)
	}
	for i, u := range c.History {
		if len(u) != fem.Dof {
			return fmt.Errorf("%w: history state %d has %d components, want %d", fem.ErrDimensionMismatch, i, len(u), fem.Dof)
		}
	}
	for name, t := range map[string]ToleranceConfig{
		"backward_euler": c.Verify.BackwardEuler,
		"quasi_static":   c.Verify.QuasiStatic,
	} {
		if _, err := t.Tolerance(); err != nil {
			return fmt.Errorf("verify.%s: %w", name, err)
		}
	}
	if c.Sweep.Steps < 0 || c.Sweep.Node < 0 || c.Sweep.Node >= fem.NodesPerElement || c.Sweep.Axis < 0 || c.Sweep.Axis > 2 {
		return fmt.Errorf("%w: sweep %+v", fem.ErrParameterBounds, c.Sweep)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", fem.ErrParameterBounds)
	}
	return nil
}

func (t ToleranceConfig) Tolerance() (verify.Tolerance, error) {
	s, err := verify.ParseSampler(t.Sampler)
	if err != nil {
		return verify.Tolerance{}, err
	}
	tol := verify.Tolerance{Ratio: t.Ratio, GradTol: t.GradTol, HessTol: t.HessTol, Abs: t.Abs, Sampler: s}
	return tol, tol.Validate()
}

// GravityVec returns the gravity as a fixed-size vector.
func (c *Config) GravityVec() [3]float64 {
	var g [3]float64
	copy(g[:], c.Gravity)
	return g
}

func (c *Config) MaterialParams() element.Material {
	m := element.Material{
		Young:          c.Material.Young,
		Poisson:        c.Material.Poisson,
		Damping:        c.Material.Damping,
		FiberStiffness: c.Material.FiberStiffness,
		YieldStress:    c.Material.YieldStress,
		Hardening:      c.Material.Hardening,
	}
	if len(c.Material.Fiber) == 3 {
		m.Fiber = r3.Vec{X: c.Material.Fiber[0], Y: c.Material.Fiber[1], Z: c.Material.Fiber[2]}
	}
	return m
}

func (c *Config) RestVertices() [4]r3.Vec {
	var rest [4]r3.Vec
	for i, v := range c.Element.Vertices {
		if i >= fem.NodesPerElement || len(v) != 3 {
			break
		}
		rest[i] = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}
	return rest
}

func (c *Config) Clone() *Config {
	out := *c
	out.Gravity = append([]float64(nil), c.Gravity...)
	out.Material.Fiber = append([]float64(nil), c.Material.Fiber...)
	out.Element.Vertices = cloneRows(c.Element.Vertices)
	out.Element.ExternalForce = append([]float64(nil), c.Element.ExternalForce...)
	out.History = cloneRows(c.History)
	return &out
}

func cloneRows(rows [][]float64) [][]float64 {
	if rows == nil {
		return nil
	}
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = append([]float64(nil), r...)
	}
	return out
}
