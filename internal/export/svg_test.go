package export

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/sim"
)

func samples(bodies ...[]physics.Body) []sim.Sample {
	out := make([]sim.Sample, len(bodies))
	for i, b := range bodies {
		out[i] = sim.Sample{Step: i, Bodies: b}
	}
	return out
}

func TestOrbits(t *testing.T) {
	s := samples(
		[]physics.Body{{X: 0, Y: 0}, {X: 10, Y: 0}},
		[]physics.Body{{X: 0, Y: 0}, {X: 0, Y: 10}},
		[]physics.Body{{X: 0, Y: 0}, {X: -10, Y: 0}},
	)

	var sb strings.Builder
	if err := Orbits(&sb, s, []string{"sun", "earth"}, 200, 100); err != nil {
		t.Fatal(err)
	}
	out := sb.String()

	for _, want := range []string{`width="200"`, `<g id="sun">`, `<g id="earth">`, `>earth</text>`, "</svg>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if got := strings.Count(out, "<path"); got != 2 {
		t.Errorf("expected 2 paths, got %d", got)
	}
	if got := strings.Count(out, "<circle"); got != 2 {
		t.Errorf("expected 2 markers, got %d", got)
	}
	// frame centered on (0, 5), span 24 over 100px: earth ends at x=100-41.7
	if !strings.Contains(out, `cx="58.3" cy="70.8"`) {
		t.Errorf("unexpected earth marker position:\n%s", out)
	}
}

func TestOrbitsSkipsNonFinite(t *testing.T) {
	nan := float32(math.NaN())
	s := samples(
		[]physics.Body{{X: 0}, {X: nan}},
		[]physics.Body{{X: 1}, {X: nan}},
	)

	var sb strings.Builder
	if err := Orbits(&sb, s, nil, 100, 100); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(sb.String(), "body-1") {
		t.Error("non-finite body should be skipped")
	}
	if !strings.Contains(sb.String(), `<g id="body-0">`) {
		t.Error("expected default name for unnamed body")
	}
}

func TestOrbitsErrors(t *testing.T) {
	var sb strings.Builder
	if err := Orbits(&sb, samples([]physics.Body{{}}), nil, 10, 10); err == nil {
		t.Error("expected error for a single sample")
	}
	nan := float32(math.NaN())
	if err := Orbits(&sb, samples([]physics.Body{{X: nan}}, []physics.Body{{X: nan}}), nil, 10, 10); err == nil {
		t.Error("expected error when nothing is finite")
	}
}
