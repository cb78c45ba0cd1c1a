package main

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/itohio/ballbeam/pkg/display"
	"github.com/itohio/ballbeam/pkg/monitor"
	"github.com/itohio/ballbeam/pkg/protocol"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	gainStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	refStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	chartStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

const help = "s:set reference  c:clear  r:restart autotune  q:quit"

// frameStore keeps the latest frame. Frames are produced inside Update, so
// no locking is needed.
type frameStore struct {
	frame display.Frame
}

// Render implements display.Renderer.
func (v *frameStore) Render(f display.Frame) {
	v.frame = f
}

type tickMsg struct{}

// model runs the monitor passes from Update: the poll tick and operator
// commands share the Bubble Tea event loop.
type model struct {
	mon          *monitor.Monitor
	view         *frameStore
	pollInterval time.Duration

	entering bool
	input    textinput.Model

	width, height int
	status        string
	err           error
}

func newModel(m *monitor.Monitor, view *frameStore, pollInterval time.Duration) model {
	ti := textinput.New()
	ti.CharLimit = 24
	ti.Prompt = "reference> "

	if pollInterval <= 0 {
		pollInterval = monitor.DefaultPollInterval
	}

	return model{
		mon:          m,
		view:         view,
		pollInterval: pollInterval,
		input:        ti,
		width:        80,
		height:       24,
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.mon.Tick()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.entering {
			switch msg.Type {
			case tea.KeyEnter:
				m.entering = false
				m.input.Blur()
				m.setReference(strings.TrimSpace(m.input.Value()))
				m.input.SetValue("")
				return m, nil
			case tea.KeyEsc:
				m.entering = false
				m.input.Blur()
				m.input.SetValue("")
				return m, nil
			}
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s", "enter":
			m.entering = true
			m.err = nil
			return m, m.input.Focus()
		case "c":
			m.mon.Clear()
			m.err = nil
			m.status = "history cleared"
		case "r":
			if err := m.mon.RestartAutotune(); err != nil {
				m.err = err
				m.status = ""
			} else {
				m.err = nil
				m.status = "autotune restart sent"
			}
		}
	}
	return m, nil
}

// setReference sends text as the new reference. Invalid input shows up on the
// reference label, so only transport failures are kept as errors.
func (m *model) setReference(text string) {
	err := m.mon.SetReference(text)
	switch {
	case errors.Is(err, protocol.ErrInvalidReference):
		m.err = nil
		m.status = ""
	case err != nil:
		m.err = err
		m.status = ""
	default:
		m.err = nil
		m.status = "reference sent"
	}
}

func (m model) View() string {
	f := m.view.frame

	var b strings.Builder
	b.WriteString(titleStyle.Render("Ball and Beam PID Monitor") + "\n")

	gains := gainStyle.Render(strings.Join([]string{f.KpLabel, f.KiLabel, f.KdLabel}, "   "))
	ref := refStyle.Render(f.RefLabel)
	if f.RefError {
		ref = errorStyle.Render(f.RefLabel)
	}
	b.WriteString(gains + "   " + ref + "\n")

	b.WriteString("Position\n")
	// Border, header lines and footer lines
	chartH := max(m.height-9, minPlotHeight+1)
	chartW := max(m.width-2, gutterWidth+minPlotWidth)
	b.WriteString(chartStyle.Render(renderChart(f, chartW, chartH, true)) + "\n")

	if m.entering {
		b.WriteString(m.input.View() + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render("error: "+m.err.Error()) + "\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(help)
	return b.String()
}
