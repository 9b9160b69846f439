// Package viz renders run progress in the terminal: a bubbletea live monitor
// fed from the integration loop, and styled post-run summaries with ASCII
// energy plots.
package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

const historyCapacity = 600

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Progress is one live sample from the integration loop.
type Progress struct {
	Time      float64
	Iteration int
	Total     float64
	Potential float64
	Kinetic   float64
	MechError float64
	ChemError float64
	Area      float64
	Volume    float64
	NVertices int
}

// Done signals run termination to the monitor.
type Done struct {
	Success bool
	Reason  string
}

// Live is the bubbletea model for the run monitor. Feed it Progress values
// through the channel returned by NewLive; close the loop by sending Done.
type Live struct {
	name    string
	updates <-chan tea.Msg

	latest   Progress
	have     bool
	finished bool
	success  bool
	reason   string
	history  []float64
}

func NewLive(name string, updates <-chan tea.Msg) *Live {
	return &Live{name: name, updates: updates}
}

func (m *Live) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.updates
		if !ok {
			return Done{Success: m.success, Reason: m.reason}
		}
		return msg
	}
}

func (m *Live) Init() tea.Cmd { return m.waitForUpdate() }

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case Progress:
		m.latest = msg
		m.have = true
		m.history = append(m.history, msg.Total)
		if len(m.history) > historyCapacity {
			m.history = m.history[1:]
		}
		return m, m.waitForUpdate()
	case Done:
		m.finished = true
		m.success = msg.Success
		m.reason = msg.Reason
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *Live) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("membrane · "+m.name) + "\n")

	if !m.have {
		b.WriteString(valueStyle.Render("waiting for first sample...") + "\n")
		return b.String()
	}

	p := m.latest
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("time", fmt.Sprintf("%.4f", p.Time))
	row("iteration", fmt.Sprintf("%d", p.Iteration))
	row("total energy", fmt.Sprintf("%.6g", p.Total))
	row("potential", fmt.Sprintf("%.6g", p.Potential))
	row("kinetic", fmt.Sprintf("%.6g", p.Kinetic))
	row("mech error", fmt.Sprintf("%.3g", p.MechError))
	row("chem error", fmt.Sprintf("%.3g", p.ChemError))
	row("area", fmt.Sprintf("%.6g", p.Area))
	row("volume", fmt.Sprintf("%.6g", p.Volume))
	row("vertices", fmt.Sprintf("%d", p.NVertices))

	if len(m.history) >= 2 {
		plot := asciigraph.Plot(m.history,
			asciigraph.Height(8),
			asciigraph.Width(64),
			asciigraph.Caption("total energy"))
		b.WriteString(graphStyle.Render(plot) + "\n")
	}

	if m.finished {
		style := doneStyle
		if !m.success {
			style = failStyle
		}
		b.WriteString(style.Render("run ended: "+m.reason) + "\n")
	} else {
		b.WriteString(helpStyle.Render("q to quit") + "\n")
	}
	return b.String()
}
