package scenario

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/celestial/internal/physics"
	"gopkg.in/yaml.v3"
)

// BodySpec describes one body of a scenario. Exactly one source is used, in
// order of precedence: State, Random, then the catalog entry named by Preset
// (or by Name when Preset is empty).
type BodySpec struct {
	Name   string        `yaml:"name"`
	Preset string        `yaml:"preset,omitempty"`
	State  *physics.Body `yaml:"state,omitempty"`
	Random bool          `yaml:"random,omitempty"`
}

// Spec is a named, ordered list of bodies. The order defines the accelerator
// BPE index of each body.
type Spec struct {
	Name   string     `yaml:"name"`
	Bodies []BodySpec `yaml:"bodies"`
}

// Index returns the position of the named body, or -1.
func (s Spec) Index(name string) int {
	for i, b := range s.Bodies {
		if b.Name == name {
			return i
		}
	}
	return -1
}

// HasFiller reports whether any body is randomized.
func (s Spec) HasFiller() bool {
	for _, b := range s.Bodies {
		if b.Random {
			return true
		}
	}
	return false
}

// Build materializes the initial state. Random bodies draw from a source
// seeded with seed, so equal seeds give equal sets.
func Build(spec Spec, seed int64) ([]physics.Body, error) {
	if len(spec.Bodies) == 0 {
		return nil, fmt.Errorf("scenario %q has no bodies", spec.Name)
	}

	rng := rand.New(rand.NewSource(seed))
	bodies := make([]physics.Body, len(spec.Bodies))

	for i, bs := range spec.Bodies {
		switch {
		case bs.State != nil:
			bodies[i] = *bs.State
		case bs.Random:
			bodies[i] = Filler(rng)
		default:
			key := bs.Preset
			if key == "" {
				key = bs.Name
			}
			b, ok := Lookup(key)
			if !ok {
				return nil, fmt.Errorf("scenario %q: unknown body %q", spec.Name, key)
			}
			bodies[i] = b
		}
	}

	return bodies, nil
}

// Filler returns a body with every component drawn uniformly from [0, 1e8)
// in steps of 100. Fillers only pad N for benchmarking.
func Filler(rng *rand.Rand) physics.Body {
	u := func() float32 {
		return float32(rng.Intn(1000000)) / 1000000 * 1e8
	}
	return physics.Body{
		X: u(), Y: u(), Z: u(),
		VX: u(), VY: u(), VZ: u(),
		Mass: u(),
		Size: 1,
	}
}

var inner = []string{"sun", "earth", "moon", "venus"}

func named(names ...string) []BodySpec {
	specs := make([]BodySpec, len(names))
	for i, n := range names {
		specs[i] = BodySpec{Name: n}
	}
	return specs
}

// Bench returns a scenario of n bodies: the inner system truncated to n, or
// padded with random fillers beyond four.
func Bench(n int) Spec {
	spec := Spec{Name: fmt.Sprintf("bench-%d", n)}
	if n <= len(inner) {
		spec.Bodies = named(inner[:n]...)
		return spec
	}

	spec.Bodies = named(inner...)
	for i := len(inner); i < n; i++ {
		spec.Bodies = append(spec.Bodies, BodySpec{Name: fmt.Sprintf("filler-%d", i), Random: true})
	}
	return spec
}

var presets = map[string]Spec{
	"two-body": {Name: "two-body", Bodies: named("sun", "earth")},
	"inner":    {Name: "inner", Bodies: named(inner...)},
}

// Preset resolves a built-in scenario. "bench-N" is accepted for any N >= 2.
func Preset(name string) (Spec, bool) {
	if s, ok := presets[name]; ok {
		return s, true
	}
	if rest, ok := strings.CutPrefix(name, "bench-"); ok {
		n, err := strconv.Atoi(rest)
		if err == nil && n >= 2 {
			return Bench(n), true
		}
	}
	return Spec{}, false
}

// ListPresets returns the fixed preset names, sorted.
func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns a preset by name, or loads a YAML scenario file when name
// is a path ending in .yaml or .yml.
func Resolve(name string) (Spec, error) {
	if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
		return LoadFile(name)
	}
	s, ok := Preset(name)
	if !ok {
		return Spec{}, fmt.Errorf("unknown scenario: %s (available: %v, bench-N)", name, ListPresets())
	}
	return s, nil
}

func LoadFile(path string) (Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Spec{}, err
	}
	var s Spec
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Spec{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}
