// Package tui is a terminal browser for solved runs: it steps through the
// slices of a surface and the saved curves of a run.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pdesim/internal/experiment"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type mode int

const (
	modeSurface mode = iota
	modeCurves
)

const (
	plotWidth  = 70
	plotHeight = 14
	sparkWidth = 48
	playEvery  = 80 * time.Millisecond
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(playEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

type model struct {
	title   string
	surface *experiment.Surface
	curves  []experiment.Curve

	mode    mode
	slice   int
	cursor  int
	curve   int
	playing bool
	width   int
}

func newModel(title string, surface *experiment.Surface, curves []experiment.Curve) model {
	m := model{title: title, surface: surface, curves: curves, width: plotWidth}
	if !m.hasSurface() {
		m.mode = modeCurves
	} else {
		m.cursor = len(surface.Y) / 2
	}
	return m
}

func (m model) hasSurface() bool {
	return m.surface != nil && len(m.surface.X) > 0 && len(m.surface.Y) > 0
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = min(max(msg.Width-12, 20), plotWidth)
		return m, nil
	case tickMsg:
		if !m.playing || m.mode != modeSurface {
			m.playing = false
			return m, nil
		}
		if m.slice >= len(m.surface.X)-1 {
			m.playing = false
			return m, nil
		}
		m.slice++
		return m, tick()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab":
		if m.hasSurface() && len(m.curves) > 0 {
			m.mode = 1 - m.mode
			m.playing = false
		}
		return m, nil
	}

	if m.mode == modeCurves {
		switch msg.String() {
		case "right", "l", "down", "j":
			if m.curve < len(m.curves)-1 {
				m.curve++
			}
		case "left", "h", "up", "k":
			if m.curve > 0 {
				m.curve--
			}
		}
		return m, nil
	}

	last := len(m.surface.X) - 1
	switch msg.String() {
	case "right", "l":
		m.slice = min(m.slice+1, last)
	case "left", "h":
		m.slice = max(m.slice-1, 0)
	case "up", "k":
		m.cursor = min(m.cursor+1, len(m.surface.Y)-1)
	case "down", "j":
		m.cursor = max(m.cursor-1, 0)
	case "g":
		m.slice = 0
	case "G":
		m.slice = last
	case " ":
		m.playing = !m.playing
		if m.playing {
			if m.slice == last {
				m.slice = 0
			}
			return m, tick()
		}
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(cyan.Render("   ╺━━━╸ "+m.title+" ╺━━━╸") + "\n\n")

	switch {
	case m.mode == modeSurface && m.hasSurface():
		m.viewSurface(&b)
	case len(m.curves) > 0:
		m.viewCurves(&b)
	default:
		b.WriteString(dim.Render("   nothing to show") + "\n")
	}

	help := "   ←/→ slice  ↑/↓ column  g/G ends  space play  tab curves  q quit"
	if m.mode == modeCurves {
		help = "   ←/→ curve  tab surface  q quit"
	}
	b.WriteString("\n" + dim.Render(help) + "\n")
	return b.String()
}

func (m model) viewSurface(b *strings.Builder) {
	sf := m.surface
	row := sf.Values[m.slice]

	b.WriteString(fmt.Sprintf("   %s %s  %s\n",
		dim.Render(sf.XLabel),
		white.Render(fmt.Sprintf("%.4g", sf.X[m.slice])),
		dimmer.Render(fmt.Sprintf("[%d/%d]", m.slice+1, len(sf.X)))))
	b.WriteString(progress(m.slice, len(sf.X), m.width) + "\n\n")

	b.WriteString(plot(row, m.width, fmt.Sprintf("value over %s", sf.YLabel)) + "\n\n")

	column := make([]float64, len(sf.X))
	for i := range sf.X {
		column[i] = sf.Values[i][m.cursor]
	}
	b.WriteString(fmt.Sprintf("   %s %s  %s %s\n",
		dim.Render(sf.YLabel+" ="),
		yellow.Render(fmt.Sprintf("%.4g", sf.Y[m.cursor])),
		dim.Render("value"),
		white.Render(fmt.Sprintf("%.6g", row[m.cursor]))))
	b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("along "+sf.XLabel), magenta.Render(sparkline(column, sparkWidth))))
	if m.playing {
		b.WriteString("   " + yellow.Render("▶ playing") + "\n")
	}
}

func (m model) viewCurves(b *strings.Builder) {
	c := m.curves[m.curve]
	b.WriteString(fmt.Sprintf("   %s %s  %s\n",
		dim.Render("curve"),
		white.Render(c.Name),
		dimmer.Render(fmt.Sprintf("[%d/%d]", m.curve+1, len(m.curves)))))
	if len(c.X) > 0 {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim.Render("x in"),
			white.Render(fmt.Sprintf("[%.4g, %.4g]", c.X[0], c.X[len(c.X)-1]))))
	}
	b.WriteString("\n" + plot(c.Y, m.width, c.Name) + "\n")
}

func plot(data []float64, width int, caption string) string {
	if len(data) == 0 {
		return dim.Render("   (empty)")
	}
	return asciigraph.Plot(data,
		asciigraph.Height(plotHeight),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

func progress(i, n, width int) string {
	filled := width
	if n > 1 {
		filled = i * width / (n - 1)
	}
	return "   " + cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", width-filled))
}

func sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		minVal = min(minVal, v)
		maxVal = max(maxVal, v)
	}
	rang := maxVal - minVal
	if rang == 0 {
		rang = 1
	}
	step := max(len(data)/width, 1)
	var sb strings.Builder
	for i := 0; i < width && i*step < len(data); i++ {
		idx := int((data[i*step] - minVal) / rang * 7)
		sb.WriteRune(chars[min(max(idx, 0), 7)])
	}
	return sb.String()
}

// Run opens the browser full screen and blocks until it is closed.
func Run(title string, surface *experiment.Surface, curves []experiment.Curve) error {
	p := tea.NewProgram(newModel(title, surface, curves), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
