package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/validate"
)

// RenderReport renders one line per check with its relative error and a
// PASS/FAIL tag, followed by a summary line.
func RenderReport(s Styles, title string, r *validate.Report) string {
	var b strings.Builder
	b.WriteString(s.Header.Render(title) + "\n")

	if r == nil || len(r.Results) == 0 {
		b.WriteString(s.Muted.Render("no checks") + "\n")
		return b.String()
	}

	for _, res := range r.Results {
		tag := s.Pass.Render("PASS")
		if !res.Passed() {
			tag = s.Fail.Render("FAIL")
		}
		fmt.Fprintf(&b, "%s %-22s ref %13.6g  obs %13.6g  err %8.4f%%  tol %5.1f%%\n",
			tag, res.Name, res.Reference, res.Observed,
			res.RelativeError()*100, res.Tolerance*100)
	}

	failed := len(r.Failures())
	summary := fmt.Sprintf("%d/%d checks passed", len(r.Results)-failed, len(r.Results))
	if failed > 0 {
		b.WriteString(s.Fail.Render(summary) + "\n")
	} else {
		b.WriteString(s.Pass.Render(summary) + "\n")
	}
	return b.String()
}

// RenderWait summarizes a completion wait.
func RenderWait(s Styles, w accel.WaitResult) string {
	outcome := s.Pass.Render(w.Outcome.String())
	if w.Outcome != accel.Completed {
		outcome = s.Fail.Render(w.Outcome.String())
	}
	lines := []string{
		s.Field("outcome", outcome),
		s.Field("polls", fmt.Sprint(w.Polls)),
		s.Field("keep-alives", fmt.Sprint(w.KeepAlives)),
		s.Field("elapsed", w.Elapsed.String()),
	}
	if w.Outcome != accel.Completed {
		lines = append(lines, s.Field("remaining", fmt.Sprint(w.LastIteration)))
	}
	return strings.Join(lines, "\n") + "\n"
}

// RenderBodies lists the state of each body, one per line.
func RenderBodies(s Styles, names []string, bodies []physics.Body) string {
	var b strings.Builder
	for i, body := range bodies {
		name := fmt.Sprintf("#%d", i)
		if i < len(names) {
			name = names[i]
		}
		fmt.Fprintf(&b, "%s pos (%12.5g %12.5g %12.5g)  vel (%11.5g %11.5g %11.5g)\n",
			s.Label.Render(name), body.X, body.Y, body.Z, body.VX, body.VY, body.VZ)
	}
	return b.String()
}

// Plot draws series with asciigraph. Series longer than width are plotted
// at the graph's own resolution.
func Plot(series []float64, caption string, width, height int) string {
	if len(series) < 2 {
		return ""
	}
	opts := []asciigraph.Option{asciigraph.Height(height), asciigraph.Caption(caption)}
	if width > 0 {
		opts = append(opts, asciigraph.Width(width))
	}
	return asciigraph.Plot(series, opts...)
}
