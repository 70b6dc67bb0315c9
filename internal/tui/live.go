// Package tui shows a running coupling simulation in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/ibmcouple/internal/coupling"
	"github.com/san-kum/ibmcouple/internal/geom"
	"github.com/san-kum/ibmcouple/internal/metrics"
)

const (
	canvasWidth     = 60
	canvasHeight    = 24
	historyCapacity = 300
	frameInterval   = time.Second / 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a driver on every tick and draws the particles in the x-y
// plane of the container.
type Model struct {
	driver *coupling.Driver
	box    geom.Box
	name   string
	limit  int

	canvas   *Canvas
	last     *coupling.StepReport
	clock    float64
	energy   []float64
	running  bool
	showHelp bool
	err      error
}

// NewModel builds a live view. limit caps the number of steps; zero means
// run until quit.
func NewModel(driver *coupling.Driver, box geom.Box, name string, limit int) Model {
	return Model{
		driver:  driver,
		box:     box,
		name:    name,
		limit:   limit,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		energy:  make([]float64, 0, historyCapacity),
		running: true,
	}
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "n":
			if !m.running {
				m.step()
			}
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) done() bool {
	return m.err != nil || (m.limit > 0 && m.driver.Steps() >= m.limit)
}

func (m *Model) step() {
	if m.done() {
		m.running = false
		return
	}
	report, err := m.driver.Tick(context.Background())
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.last = report
	m.clock += report.FluidDt
	m.energy = append(m.energy, metrics.Total(report))
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}
}

// project maps a container point to canvas dots, y up.
func (m *Model) project(x, y float64) (int, int) {
	w, h := m.canvas.Dots()
	lo, dims := m.box.Min(), m.box.Dimensions
	px := (x - lo.X) / dims.X * float64(w-1)
	py := (1 - (y-lo.Y)/dims.Y) * float64(h-1)
	return int(px), int(py)
}

func (m *Model) draw() {
	m.canvas.Clear()
	w, h := m.canvas.Dots()
	m.canvas.Rect(0, 0, w-1, h-1)
	if m.last == nil {
		return
	}
	scale := float64(w-1) / m.box.Dimensions.X
	for _, p := range m.last.Particles {
		cx, cy := m.project(p.Center.X, p.Center.Y)
		m.canvas.DrawCircle(cx, cy, p.Radius*scale)
	}
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("FAILED")
	case m.done():
		return pausedStyle.Render("DONE")
	case !m.running:
		return pausedStyle.Render("PAUSED")
	}
	return runningStyle.Render("RUNNING")
}

func (m Model) View() string {
	m.draw()
	canvasView := canvasStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")
	s.WriteString(m.status() + "\n\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(5), asciigraph.Width(30), asciigraph.Caption("Kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d", m.driver.Steps()))
	row("Time", fmt.Sprintf("%.4fs", m.clock))
	if m.last != nil {
		row("Fluid dt", fmt.Sprintf("%g", m.last.FluidDt))
		row("Sub-steps", fmt.Sprintf("%d", m.last.NSub))
		row("Particles", fmt.Sprintf("%d", len(m.last.Particles)))
		if m.last.Bootstrap {
			row("Phase", "bootstrap")
		}
	}
	if m.err != nil {
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("SP:Pause N:Step ?:Help Q:Quit"))

	body := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsStyle.Render(s.String()))
	if m.showHelp {
		help := helpStyle.Render("space  pause/resume\nn      single step while paused\nq      quit")
		return lipgloss.JoinVertical(lipgloss.Left, help, body)
	}
	return body
}
