package sim

import (
	"context"
	"testing"
)

func TestEnsembleMatchesSequential(t *testing.T) {
	initial, _ := build(t, "inner")

	cfgs := make([]Config, 4)
	for r := range cfgs {
		cfgs[r] = DefaultConfig()
		cfgs[r].Iterations = 30
		cfgs[r].Kernel.Refinements = r
	}

	results, err := NewEnsemble(nil, 2).Run(context.Background(), initial, cfgs)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(cfgs) {
		t.Fatalf("expected %d results, got %d", len(cfgs), len(results))
	}

	for r, cfg := range cfgs {
		bodies, _ := build(t, "inner")
		want, err := New().Run(context.Background(), bodies, cfg)
		if err != nil {
			t.Fatal(err)
		}
		got := results[r].Final()
		for i := range got {
			if got[i] != want.Final()[i] {
				t.Errorf("refinements=%d body %d: ensemble %+v, sequential %+v", r, i, got[i], want.Final()[i])
			}
		}
	}

	fresh, _ := build(t, "inner")
	if initial[1] != fresh[1] {
		t.Error("ensemble mutated the shared initial state")
	}
}

func TestEnsembleError(t *testing.T) {
	initial, _ := build(t, "two-body")
	good := DefaultConfig()
	good.Iterations = 5

	if _, err := NewEnsemble(nil, 0).Run(context.Background(), initial, []Config{good, {Dt: 0}}); err == nil {
		t.Error("expected error from invalid member config")
	}
}
