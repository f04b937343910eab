package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/femdyn/internal/fem"
	"github.com/san-kum/femdyn/internal/verify"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Integrator != "backward_euler" {
		t.Errorf("expected integrator backward_euler, got %s", cfg.Integrator)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if cfg.Debug {
		t.Error("debug should be off by default")
	}
}

func TestDefaultTolerances(t *testing.T) {
	cfg := DefaultConfig()
	be, err := cfg.Verify.BackwardEuler.Tolerance()
	if err != nil {
		t.Fatal(err)
	}
	if be != verify.BackwardEulerDefaults() {
		t.Errorf("backward euler tolerance = %+v", be)
	}
	qs, err := cfg.Verify.QuasiStatic.Tolerance()
	if err != nil {
		t.Fatal(err)
	}
	if qs != verify.QuasiStaticDefaults() {
		t.Errorf("quasi static tolerance = %+v", qs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Config)
		want error
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }, fem.ErrParameterBounds},
		{"short gravity", func(c *Config) { c.Gravity = []float64{0, -9.81} }, fem.ErrParameterBounds},
		{"negative density", func(c *Config) { c.Material.Density = -1 }, fem.ErrParameterBounds},
		{"poisson too large", func(c *Config) { c.Material.Poisson = 0.5 }, fem.ErrParameterBounds},
		{"three vertices", func(c *Config) { c.Element.Vertices = c.Element.Vertices[:3] }, fem.ErrDimensionMismatch},
		{"flat vertex", func(c *Config) { c.Element.Vertices[2] = []float64{0, 1} }, fem.ErrDimensionMismatch},
		{"short external force", func(c *Config) { c.Element.ExternalForce = []float64{1, 2, 3} }, fem.ErrDimensionMismatch},
		{"short history", func(c *Config) { c.History = [][]float64{{1, 2}} }, fem.ErrDimensionMismatch},
		{"bad fiber", func(c *Config) { c.Material.Fiber = []float64{1} }, fem.ErrDimensionMismatch},
		{"zero hessian tolerance", func(c *Config) { c.Verify.QuasiStatic.HessTol = 0 }, fem.ErrParameterBounds},
		{"unknown sampler", func(c *Config) { c.Verify.BackwardEuler.Sampler = "sobol" }, fem.ErrParameterBounds},
		{"sweep node", func(c *Config) { c.Sweep.Node = 4 }, fem.ErrParameterBounds},
		{"negative workers", func(c *Config) { c.Workers = -2 }, fem.ErrParameterBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	cfg := GetPreset("scenario")
	cfg.Debug = true
	cfg.Element.ExternalForce = make([]float64, fem.Dof)
	cfg.Element.ExternalForce[11] = -3

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.Debug || got.Element.Vertices[1][0] != scenarioLeg || got.History[2][3] != 1e-4 {
		t.Errorf("round trip lost fields: %+v", got)
	}
	if got.Element.ExternalForce[11] != -3 {
		t.Errorf("external force = %v", got.Element.ExternalForce)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte("integrator: quasi_static\ngravity: [0, -9.81, 0]\nmaterial:\n  young: 2e5\n  poisson: 0.25\n  density: 500\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Integrator != "quasi_static" || cfg.GravityVec() != [3]float64{0, -9.81, 0} {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Dt != DefaultDt || len(cfg.Element.Vertices) != 4 {
		t.Error("defaults lost")
	}
	if m := cfg.MaterialParams(); m.Young != 2e5 || m.Poisson != 0.25 {
		t.Errorf("material = %+v", m)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("dt: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, fem.ErrParameterBounds) {
		t.Errorf("expected ErrParameterBounds, got %v", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("scenario")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Element.Vertices[3][2] != scenarioLeg {
		t.Errorf("expected leg %g, got %g", scenarioLeg, cfg.Element.Vertices[3][2])
	}

	cfg.History[2][3] = 99
	if Presets["scenario"].History[2][3] == 99 {
		t.Error("GetPreset returned shared state")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValid(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("ListPresets() = %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("presets not sorted: %v", names)
		}
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestRestVertices(t *testing.T) {
	rest := GetPreset("scenario").RestVertices()
	if rest[1].X != scenarioLeg || rest[2].Y != scenarioLeg || rest[0].Z != 0 {
		t.Errorf("RestVertices() = %v", rest)
	}
}
