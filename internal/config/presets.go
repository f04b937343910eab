package config

import "sort"

// scenarioLeg gives a right tetrahedron of volume 1e-3.
const scenarioLeg = 0.18171205928321397

func rightTetrahedron(leg float64) [][]float64 {
	return [][]float64{{0, 0, 0}, {leg, 0, 0}, {0, leg, 0}, {0, 0, leg}}
}

func preset(edit func(c *Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

var Presets = map[string]*Config{
	"rest": preset(func(c *Config) {}),
	"drop": preset(func(c *Config) {
		c.Gravity = []float64{0, 0, -9.81}
		c.Force = "stvk"
	}),
	"stretch": preset(func(c *Config) {
		c.Integrator = "quasi_static"
		c.Force = "stvk"
		c.Damping = "none"
		c.Filtering = true
		c.History = [][]float64{{0, 0, 0, 0.1, 0, 0, 0, 0, 0, 0, 0, 0}}
		c.Sweep = SweepConfig{Steps: 40, Max: 0.6, Node: 1, Axis: 0}
	}),
	"scenario": preset(func(c *Config) {
		c.Force = "stvk"
		c.Element.Vertices = rightTetrahedron(scenarioLeg)
		c.History = [][]float64{
			make([]float64, 12),
			make([]float64, 12),
			{0, 0, 0, 1e-4, 0, 0, 0, 0, 0, 0, 0, 0},
		}
		c.Sweep = SweepConfig{Steps: 20, Max: 1e-3, Node: 1, Axis: 0}
	}),
	"fiber": preset(func(c *Config) {
		c.Force = "fiber"
		c.Material.Fiber = []float64{1, 1, 0}
		c.Material.FiberStiffness = 5e4
		c.Debug = true
	}),
	"plastic": preset(func(c *Config) {
		c.Integrator = "quasi_static"
		c.Force = "plastic"
		c.Damping = "none"
		c.Material.YieldStress = 50
		c.Material.Hardening = 1e3
		c.Element.Plastic = true
		c.Sweep = SweepConfig{Steps: 25, Max: 0.05, Node: 1, Axis: 0}
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
