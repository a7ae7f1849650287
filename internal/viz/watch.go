package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/sim"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	historyCapacity = 600
	trailCapacity   = 400
)

type TickMsg time.Time

type point struct{ x, y int }

// WatchConfig configures a live run.
type WatchConfig struct {
	Names []string
	Dt    float32
	// Iterations stops the run; zero runs until quit.
	Iterations int
	Kernel     physics.Kernel
	// StepsPerFrame is the number of integration steps per redraw.
	StepsPerFrame int
	FPS           int
	Theme         string
	// Pair, when it holds two body indexes, graphs their separation.
	Pair []int
}

// Model integrates a body set live and draws it.
type Model struct {
	cfg     WatchConfig
	styles  Styles
	initial []physics.Body
	bodies  []physics.Body
	step    int

	canvas *Canvas
	camera *Camera
	follow int
	trails [][]point

	energy0       float64
	energyHistory []float64
	pairHistory   []float64

	running  bool
	finished bool
}

func NewModel(bodies []physics.Body, cfg WatchConfig) Model {
	if cfg.StepsPerFrame < 1 {
		cfg.StepsPerFrame = 1
	}
	if cfg.FPS < 1 {
		cfg.FPS = 30
	}
	m := Model{
		cfg:     cfg,
		styles:  NewStyles(GetTheme(cfg.Theme)),
		initial: physics.Clone(bodies),
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		follow:  -1,
	}
	m.reset()
	return m
}

func (m *Model) reset() {
	m.bodies = physics.Clone(m.initial)
	m.step = 0
	m.camera = FitCamera(m.bodies)
	m.follow = -1
	m.trails = make([][]point, len(m.bodies))
	m.energy0 = physics.TotalEnergy(m.bodies, float64(m.cfg.Kernel.G))
	m.energyHistory = make([]float64, 0, historyCapacity)
	m.pairHistory = make([]float64, 0, historyCapacity)
	m.running = true
	m.finished = false
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.cfg.FPS), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.tick() }

// Step is the number of integration steps taken so far.
func (m Model) Step() int { return m.step }

// Bodies returns a copy of the current state.
func (m Model) Bodies() []physics.Body { return physics.Clone(m.bodies) }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "+", "=":
			m.camera.ZoomIn()
		case "-", "_":
			m.camera.ZoomOut()
		case "x":
			m.camera.RotateX(0.1)
		case "X":
			m.camera.RotateX(-0.1)
		case "z":
			m.camera.RotateZ(0.1)
		case "Z":
			m.camera.RotateZ(-0.1)
		case "tab":
			m.follow++
			if m.follow >= len(m.bodies) {
				m.follow = -1
			}
			m.clearTrails()
		case "t":
			m.styles = NewStyles(NextTheme(m.styles.Theme.Name))
		}
	case TickMsg:
		if m.running && !m.finished {
			m.advance()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) clearTrails() {
	for i := range m.trails {
		m.trails[i] = m.trails[i][:0]
	}
}

// advance runs one frame worth of steps and records history.
func (m *Model) advance() {
	for n := 0; n < m.cfg.StepsPerFrame; n++ {
		if m.cfg.Iterations > 0 && m.step >= m.cfg.Iterations {
			m.finished = true
			break
		}
		sim.Step(m.bodies, m.cfg.Dt, m.cfg.Kernel)
		m.step++
	}

	e := physics.TotalEnergy(m.bodies, float64(m.cfg.Kernel.G))
	drift := 0.0
	if m.energy0 != 0 {
		drift = math.Abs(e-m.energy0) / math.Abs(m.energy0)
	}
	m.energyHistory = append(m.energyHistory, drift)
	if len(m.energyHistory) > historyCapacity {
		m.energyHistory = m.energyHistory[1:]
	}

	if a, b, ok := m.pair(); ok {
		m.pairHistory = append(m.pairHistory, physics.Distance(m.bodies[a], m.bodies[b]))
		if len(m.pairHistory) > historyCapacity {
			m.pairHistory = m.pairHistory[1:]
		}
	}

	m.updateCenter()
	w, h := m.canvas.Dots()
	for i, b := range m.bodies {
		if x, y, ok := m.camera.Project(Position(b), w, h); ok {
			m.trails[i] = append(m.trails[i], point{x, y})
			if len(m.trails[i]) > trailCapacity {
				m.trails[i] = m.trails[i][1:]
			}
		}
	}
}

func (m Model) pair() (int, int, bool) {
	p := m.cfg.Pair
	if len(p) != 2 || p[0] == p[1] {
		return 0, 0, false
	}
	for _, i := range p {
		if i < 0 || i >= len(m.bodies) {
			return 0, 0, false
		}
	}
	return p[0], p[1], true
}

func (m *Model) updateCenter() {
	if m.follow >= 0 && m.follow < len(m.bodies) {
		m.camera.Center = Position(m.bodies[m.follow])
	} else {
		m.camera.Center = Vec3{}
	}
}

func (m *Model) draw() {
	m.canvas.Clear()
	w, h := m.canvas.Dots()
	for _, trail := range m.trails {
		for _, p := range trail {
			m.canvas.Set(p.x, p.y)
		}
	}
	for i, b := range m.bodies {
		if x, y, ok := m.camera.Project(Position(b), w, h); ok {
			r := 1
			if i == 0 {
				r = 2
			}
			m.canvas.Disc(x, y, r)
		}
	}
}

func (m Model) name(i int) string {
	if i < len(m.cfg.Names) {
		return m.cfg.Names[i]
	}
	return fmt.Sprintf("#%d", i)
}

func (m Model) View() string {
	s := m.styles
	m.updateCenter()
	m.draw()
	canvasView := s.Panel.Render(m.canvas.String())

	var b strings.Builder
	status := s.Pass.Render("RUNNING")
	switch {
	case m.finished:
		status = s.Value.Render("FINISHED")
	case !m.running:
		status = s.Warn.Render("PAUSED")
	}
	b.WriteString(s.Header.Render("CELESTIAL") + "\n")
	b.WriteString(status + "\n\n")

	days := float64(m.step) * float64(m.cfg.Dt) / 86400
	b.WriteString(s.Field("step", fmt.Sprint(m.step)) + "\n")
	b.WriteString(s.Field("elapsed", fmt.Sprintf("%.1f d", days)) + "\n")
	if m.cfg.Iterations > 0 {
		b.WriteString(s.Field("progress", s.ProgressBar(float64(m.step)/float64(m.cfg.Iterations), 16)) + "\n")
	}
	b.WriteString(s.Field("zoom", fmt.Sprintf("%.2fx", m.camera.Zoom)) + "\n")
	center := "origin"
	if m.follow >= 0 {
		center = m.name(m.follow)
	}
	b.WriteString(s.Field("center", center) + "\n")

	if len(m.energyHistory) > 1 {
		last := m.energyHistory[len(m.energyHistory)-1]
		b.WriteString(s.Field("energy drift", fmt.Sprintf("%.3e", last)) + "\n")
		b.WriteString(s.Graph.Render(Plot(m.energyHistory, "energy drift", 30, 4)) + "\n")
	}
	if a, c, ok := m.pair(); ok && len(m.pairHistory) > 1 {
		caption := m.name(a) + "-" + m.name(c) + " distance (m)"
		b.WriteString(s.Graph.Render(Plot(m.pairHistory, caption, 30, 4)) + "\n")
	}

	b.WriteString("\n" + s.Separator(32) + "\n")
	for i, body := range m.bodies {
		b.WriteString(s.Field(m.name(i), fmt.Sprintf("%.3g AU", Position(body).Length()/1.496e11)) + "\n")
	}
	b.WriteString(s.Muted.Render("\nSP:Pause R:Reset Q:Quit\n+/-:Zoom X/Z:Rotate\nTab:Center T:Theme"))

	stats := lipgloss.NewStyle().Padding(0, 2).Render(b.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, stats)
}

// Watch runs the live view until the user quits.
func Watch(bodies []physics.Body, cfg WatchConfig) error {
	_, err := tea.NewProgram(NewModel(bodies, cfg), tea.WithAltScreen()).Run()
	return err
}
