package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles are the lipgloss styles derived from a Theme.
type Styles struct {
	Theme  Theme
	Header lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Muted  lipgloss.Style
	Pass   lipgloss.Style
	Fail   lipgloss.Style
	Warn   lipgloss.Style
	Panel  lipgloss.Style
	Graph  lipgloss.Style
}

func NewStyles(t Theme) Styles {
	return Styles{
		Theme: t,
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Border),
		Label: lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		Value: lipgloss.NewStyle().Foreground(t.Text).Bold(true),
		Muted: lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		Pass:  lipgloss.NewStyle().Bold(true).Foreground(t.Success),
		Fail:  lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		Warn:  lipgloss.NewStyle().Bold(true).Foreground(t.Warning),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		Graph: lipgloss.NewStyle().Foreground(t.Accent),
	}
}

// Field renders one "label value" line.
func (s Styles) Field(label, value string) string {
	return s.Label.Render(label) + s.Value.Render(value)
}

// ProgressBar renders fraction in [0, 1] as a bar of width cells.
func (s Styles) ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	if fraction >= 1 {
		return s.Pass.Render(bar)
	}
	return s.Warn.Render(bar)
}

// Sparkline renders the last width values as block characters scaled
// between their min and max.
func (s Styles) Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 || math.IsNaN(span) {
		span = 1
	}

	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(chars)-1))
		idx = min(max(idx, 0), len(chars)-1)
		b.WriteRune(chars[idx])
	}
	return s.Graph.Render(b.String())
}

// Separator renders a muted rule of width cells.
func (s Styles) Separator(width int) string {
	if width < 7 {
		return s.Muted.Render(strings.Repeat("─", max(width, 0)))
	}
	mid := width / 2
	return s.Muted.Render(strings.Repeat("─", mid-3) + " ◆ " + strings.Repeat("─", width-mid-3))
}
