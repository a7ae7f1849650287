package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/emulator"
	"github.com/san-kum/celestial/internal/metrics"
	"github.com/san-kum/celestial/internal/mmio"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/scenario"
	"github.com/san-kum/celestial/internal/sim"
)

// Device is an accelerator backend that may hold OS resources.
type Device interface {
	accel.Device
	Close() error
}

type DeviceOptions struct {
	Path     string
	Base     int64
	Emulator emulator.Config
}

// Emulated is the in-process backend. Close is a no-op.
type Emulated struct {
	*emulator.Device
}

func (Emulated) Close() error { return nil }

type Registry struct {
	devices map[string]func(DeviceOptions) (Device, error)
	metrics map[string]func(scenario.Spec) (sim.Metric, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		devices: make(map[string]func(DeviceOptions) (Device, error)),
		metrics: make(map[string]func(scenario.Spec) (sim.Metric, error)),
	}

	r.devices["emulator"] = func(o DeviceOptions) (Device, error) {
		return Emulated{emulator.New(o.Emulator)}, nil
	}
	r.devices["mmio"] = func(o DeviceOptions) (Device, error) {
		d, err := mmio.Open(o.Path, o.Base, mmio.WindowSize)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	r.metrics["energy"] = func(scenario.Spec) (sim.Metric, error) {
		return metrics.NewEnergy(float64(physics.G)), nil
	}
	r.metrics["energy_drift"] = func(scenario.Spec) (sim.Metric, error) {
		return metrics.NewEnergyDrift(float64(physics.G)), nil
	}
	r.metrics["momentum_drift"] = func(scenario.Spec) (sim.Metric, error) {
		return metrics.NewMomentumDrift(), nil
	}
	r.metrics["stability"] = func(scenario.Spec) (sim.Metric, error) {
		return metrics.NewStability(1e15), nil
	}
	r.metrics["earth_moon"] = func(spec scenario.Spec) (sim.Metric, error) {
		earth, moon := spec.Index("earth"), spec.Index("moon")
		if earth < 0 || moon < 0 {
			return nil, fmt.Errorf("scenario %s has no earth-moon pair", spec.Name)
		}
		return metrics.NewSeparation("earth_moon", earth, moon), nil
	}

	return r
}

func (r *Registry) GetDevice(name string, opts DeviceOptions) (Device, error) {
	fn, ok := r.devices[name]
	if !ok {
		return nil, fmt.Errorf("unknown device: %s", name)
	}
	return fn(opts)
}

func (r *Registry) GetMetric(name string, spec scenario.Spec) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(spec)
}

// Metrics returns every metric that applies to spec, sorted by name.
func (r *Registry) Metrics(spec scenario.Spec) []sim.Metric {
	var out []sim.Metric
	for _, name := range r.ListMetrics() {
		if m, err := r.GetMetric(name, spec); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (r *Registry) ListDevices() []string { return sortedKeys(r.devices) }
func (r *Registry) ListMetrics() []string { return sortedKeys(r.metrics) }

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
