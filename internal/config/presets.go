package config

import "sort"

var Presets = map[string]*Config{
	"two-body": preset(func(c *Config) {
		c.Scenario = "two-body"
	}),
	"inner": preset(func(c *Config) {
		c.Scenario = "inner"
	}),
	"bench-8": preset(func(c *Config) {
		c.Scenario = "bench-8"
		c.Iterations = 1000
		c.Accelerator.StepsPerTick = 8
	}),
	"bench-64": preset(func(c *Config) {
		c.Scenario = "bench-64"
		c.Iterations = 100
		c.SampleEvery = 10
		c.Backend = "cpu"
	}),
	"legacy": preset(func(c *Config) {
		c.Scenario = "inner"
		c.Refinements = 3
		c.Accelerator.Masks.DX = false
	}),
}

func preset(apply func(*Config)) *Config {
	c := DefaultConfig()
	apply(c)
	return c
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *cfg
	return &cp
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
