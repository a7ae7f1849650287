package experiment

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/emulator"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/scenario"
)

func TestRegistryDevices(t *testing.T) {
	r := NewRegistry()
	if diff := cmp.Diff([]string{"emulator", "mmio"}, r.ListDevices()); diff != "" {
		t.Errorf("devices (-want +got):\n%s", diff)
	}

	dev, err := r.GetDevice("emulator", DeviceOptions{Emulator: emulator.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	locked, err := dev.Read8(accel.RegLocked)
	if err != nil || locked != 0 {
		t.Errorf("fresh emulator: locked=%d err=%v", locked, err)
	}

	if _, err := r.GetDevice("fpga", DeviceOptions{}); err == nil {
		t.Error("expected error for unknown device")
	}
	if _, err := r.GetDevice("mmio", DeviceOptions{Path: t.TempDir() + "/missing"}); err == nil {
		t.Error("expected error opening a missing mmio path")
	}
}

func TestRegistryMetrics(t *testing.T) {
	r := NewRegistry()

	inner, _ := scenario.Preset("inner")
	if got := len(r.Metrics(inner)); got != len(r.ListMetrics()) {
		t.Errorf("inner should support every metric, got %d of %d", got, len(r.ListMetrics()))
	}

	twoBody, _ := scenario.Preset("two-body")
	if _, err := r.GetMetric("earth_moon", twoBody); err == nil {
		t.Error("two-body has no moon")
	}
	if got := len(r.Metrics(twoBody)); got != len(r.ListMetrics())-1 {
		t.Errorf("two-body should skip earth_moon, got %d metrics", got)
	}
	if _, err := r.GetMetric("lyapunov", inner); err == nil {
		t.Error("expected error for unknown metric")
	}
}

func TestRegistryEnergyUsesSIConstant(t *testing.T) {
	r := NewRegistry()
	spec, _ := scenario.Preset("two-body")
	bodies, err := scenario.Build(spec, 1)
	if err != nil {
		t.Fatal(err)
	}

	m, err := r.GetMetric("energy", spec)
	if err != nil {
		t.Fatal(err)
	}
	m.Observe(0, bodies)

	want := physics.TotalEnergy(bodies, float64(physics.G))
	if got := m.Value(); got != want || got >= 0 {
		t.Errorf("expected bound two-body energy %g, got %g", want, got)
	}
}
