package tui

import (
	"fmt"
	"strings"
	"time"

	"lumen/internal/audio"
	"lumen/internal/render"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	beatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Bold(true)
)

// Panel identifies which selector has keyboard focus.
type Panel int

const (
	ColorPanel Panel = iota
	EffectPanel
)

const (
	meterRefresh = 100 * time.Millisecond
	bandCount    = 8
	meterWidth   = 24
)

type tickMsg time.Time

// DashboardModel is the Bubble Tea model for the live control dashboard:
// meters on the left, color and effect pickers on the right. Selection
// changes hot-swap the matching compositor layer immediately.
type DashboardModel struct {
	engine     *audio.Engine
	compositor *render.Compositor
	colors     *render.Registry
	effects    *render.Registry

	colorNames  []string
	effectNames []string
	colorIndex  int
	effectIndex int
	focus       Panel

	width  int
	height int
	ready  bool
}

// NewDashboardModel builds the dashboard for a running engine and
// compositor. The initial selections are highlighted in the pickers.
func NewDashboardModel(engine *audio.Engine, compositor *render.Compositor, colors, effects *render.Registry, background, overlay string) DashboardModel {
	m := DashboardModel{
		engine:      engine,
		compositor:  compositor,
		colors:      colors,
		effects:     effects,
		colorNames:  colors.Names(),
		effectNames: effects.Names(),
	}
	for i, name := range m.colorNames {
		if name == background {
			m.colorIndex = i
		}
	}
	for i, name := range m.effectNames {
		if name == overlay {
			m.effectIndex = i
		}
	}
	return m
}

func (m DashboardModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(meterRefresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case tickMsg:
		// Meters re-render on every tick; nothing to update, the view
		// reads the engine directly.
		return m, tick()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("q", "ctrl+c"))):
			return m, tea.Quit

		case key.Matches(msg, key.NewBinding(key.WithKeys("tab"))):
			if m.focus == ColorPanel {
				m.focus = EffectPanel
			} else {
				m.focus = ColorPanel
			}

		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			m.moveSelection(-1)

		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			m.moveSelection(1)

		case key.Matches(msg, key.NewBinding(key.WithKeys("g"))):
			m.toggleGate()
		}
	}

	return m, nil
}

// moveSelection steps the focused picker and hot-swaps the matching layer.
func (m *DashboardModel) moveSelection(delta int) {
	width, height := m.compositor.Size()

	if m.focus == ColorPanel {
		m.colorIndex = wrap(m.colorIndex+delta, len(m.colorNames))
		name := m.colorNames[m.colorIndex]
		m.compositor.SetBackground(m.colors.Build(name, width, height))
	} else {
		m.effectIndex = wrap(m.effectIndex+delta, len(m.effectNames))
		name := m.effectNames[m.effectIndex]
		m.compositor.SetOverlay(m.effects.Build(name, width, height))
	}
}

func (m *DashboardModel) toggleGate() {
	if m.engine == nil {
		return
	}
	if m.engine.GetGateThreshold() > 0 {
		m.engine.SetGateThreshold(0)
		m.engine.DisableGate()
	} else {
		m.engine.SetGateThreshold(0.02)
		m.engine.EnableGate()
	}
}

func (m DashboardModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	title := titleStyle.Render("Lumen Control")
	help := infoStyle.Render("↑/↓: Select • Tab: Switch Panel • g: Gate • q: Quit")

	left := m.renderMeters()
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderPicker("Colors", m.colorNames, m.colorIndex, m.focus == ColorPanel),
		"",
		m.renderPicker("Effects", m.effectNames, m.effectIndex, m.focus == EffectPanel),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "   ", right)

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

// renderMeters formats the live feature readout.
func (m DashboardModel) renderMeters() string {
	var sb strings.Builder

	if m.engine == nil || !m.engine.Running() {
		sb.WriteString(dimStyle.Render("Audio off: visuals running without reactivity"))
		sb.WriteString("\n")
		return sb.String()
	}

	snap := m.engine.Features()
	if snap == nil {
		return dimStyle.Render("No features yet\n")
	}

	beat := dimStyle.Render("·")
	if snap.BeatDetected {
		beat = beatStyle.Render("●")
	}

	sb.WriteString(fmt.Sprintf("Volume %s %s\n", meterBar(snap.Volume), beat))
	sb.WriteString(fmt.Sprintf("BPM    %6.1f\n", snap.Beat.BPM))
	sb.WriteString(fmt.Sprintf("Conf   %s\n", meterBar(snap.Beat.Confidence)))
	sb.WriteString(fmt.Sprintf("Phase  %s\n", meterBar(snap.BeatProgress)))
	sb.WriteString("\n")

	for band, level := range bandLevels(snap.Spectrum) {
		sb.WriteString(fmt.Sprintf("B%d %s\n", band, meterBar(level)))
	}

	return sb.String()
}

func (m DashboardModel) renderPicker(label string, names []string, selected int, focused bool) string {
	var sb strings.Builder

	header := label
	if focused {
		header = highlightStyle.Render(label)
	}
	sb.WriteString(header)
	sb.WriteString("\n")

	for i, name := range names {
		line := fmt.Sprintf("  %s", name)
		if i == selected {
			line = highlightStyle.Render(fmt.Sprintf("▶ %s", name))
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// meterBar renders a level in [0,1] as a fixed-width bar.
func meterBar(level float64) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level * meterWidth)
	return "[" + strings.Repeat("█", filled) + strings.Repeat(" ", meterWidth-filled) + "]"
}

// bandLevels folds the spectrum into a fixed number of display bands,
// normalized against the loudest band.
func bandLevels(spectrum []float64) []float64 {
	levels := make([]float64, bandCount)
	if len(spectrum) == 0 {
		return levels
	}

	per := len(spectrum) / bandCount
	if per == 0 {
		per = 1
	}
	peak := 0.0
	for band := range levels {
		start := band * per
		if start >= len(spectrum) {
			break
		}
		end := min(start+per, len(spectrum))
		sum := 0.0
		for _, v := range spectrum[start:end] {
			sum += v
		}
		levels[band] = sum / float64(end-start)
		if levels[band] > peak {
			peak = levels[band]
		}
	}
	if peak > 0 {
		for band := range levels {
			levels[band] /= peak
		}
	}
	return levels
}

func wrap(i, n int) int {
	if n == 0 {
		return 0
	}
	return ((i % n) + n) % n
}

// StartDashboard launches the control dashboard and blocks until quit.
func StartDashboard(model DashboardModel) error {
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
