// Package export renders stored trajectories as SVG.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/celestial/internal/sim"
)

var palette = []string{"#ffcc00", "#00aaff", "#cccccc", "#ff8844", "#66ff66", "#ff66cc"}

type point struct{ X, Y float64 }

// Orbits writes the x-y path of every body in samples, scaled to share one
// frame. Bodies whose coordinates are not finite are skipped.
func Orbits(w io.Writer, samples []sim.Sample, names []string, width, height int) error {
	if len(samples) < 2 {
		return fmt.Errorf("need at least 2 samples, got %d", len(samples))
	}
	n := len(samples[0].Bodies)

	paths := make([][]point, n)
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range samples {
		for i := 0; i < n && i < len(s.Bodies); i++ {
			p := point{float64(s.Bodies[i].X), float64(s.Bodies[i].Y)}
			if !finite(p.X) || !finite(p.Y) {
				continue
			}
			paths[i] = append(paths[i], p)
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return fmt.Errorf("no finite positions to draw")
	}

	// square frame with 10% padding
	span := math.Max(maxX-minX, maxY-minY)
	if span == 0 {
		span = 1
	}
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	span *= 1.2
	side := float64(min(width, height))
	project := func(p point) (float64, float64) {
		x := float64(width)/2 + (p.X-cx)/span*side
		y := float64(height)/2 - (p.Y-cy)/span*side
		return x, y
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for i, path := range paths {
		if len(path) == 0 {
			continue
		}
		color := palette[i%len(palette)]
		name := fmt.Sprintf("body-%d", i)
		if i < len(names) {
			name = names[i]
		}

		fmt.Fprintf(&sb, `<g id="%s">`+"\n", name)
		if len(path) > 1 {
			fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, color)
			for j, p := range path {
				x, y := project(p)
				if j == 0 {
					fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
				} else {
					fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
				}
			}
			sb.WriteString(`"/>` + "\n")
		}
		x, y := project(path[len(path)-1])
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`+"\n", x, y, color)
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" fill="%s" font-size="11" font-family="monospace">%s</text>`+"\n", x+5, y-5, color, name)
		sb.WriteString("</g>\n")
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
