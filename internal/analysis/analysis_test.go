package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/scenario"
	"github.com/san-kum/celestial/internal/sim"
)

func TestDominantPeriodSine(t *testing.T) {
	data := make([]float64, 500)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*float64(i)/50)
	}

	period, err := DominantPeriod(data, 0.1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(period-5) > 0.05 {
		t.Errorf("expected period 5, got %f", period)
	}
}

func TestDominantPeriodErrors(t *testing.T) {
	if _, err := DominantPeriod([]float64{1, 2}, 1); err != ErrShortSeries {
		t.Errorf("expected ErrShortSeries, got %v", err)
	}
	if _, err := DominantPeriod([]float64{4, 4, 4, 4, 4, 4}, 1); err == nil {
		t.Error("expected error for a flat series")
	}
}

func TestEarthOrbitalPeriod(t *testing.T) {
	spec, _ := scenario.Preset("two-body")
	bodies, err := scenario.Build(spec, 1)
	if err != nil {
		t.Fatal(err)
	}

	cfg := sim.DefaultConfig()
	cfg.Iterations = 3 * 365
	cfg.SampleEvery = 1

	result, err := sim.New().Run(context.Background(), bodies, cfg)
	if err != nil {
		t.Fatal(err)
	}

	xs := Component(result.Samples, spec.Index("earth"), X)
	if len(xs) != cfg.Iterations+1 {
		t.Fatalf("expected %d samples, got %d", cfg.Iterations+1, len(xs))
	}

	period, err := DominantPeriod(xs, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(period-365.25) > 0.1*365.25 {
		t.Errorf("expected a period near one year, got %.1f days", period)
	}
}

func TestComponentAndDistances(t *testing.T) {
	samples := []sim.Sample{
		{Step: 0, Bodies: []physics.Body{{X: 0}, {X: 3, Y: 4, VZ: 7}}},
		{Step: 1, Bodies: []physics.Body{{X: 1}}},
	}

	if got := Component(samples, 1, VZ); len(got) != 1 || got[0] != 7 {
		t.Errorf("unexpected component %v", got)
	}
	if got := Distances(samples, 0, 1); len(got) != 1 || got[0] != 5 {
		t.Errorf("unexpected distances %v", got)
	}
}

func TestParseAxis(t *testing.T) {
	for _, name := range []string{"x", "y", "z", "vx", "vy", "vz"} {
		a, err := ParseAxis(name)
		if err != nil || a.String() != name {
			t.Errorf("ParseAxis(%q) = %v, %v", name, a, err)
		}
	}
	if _, err := ParseAxis("w"); err == nil {
		t.Error("expected error for unknown axis")
	}
}
