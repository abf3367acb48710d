// Package tui provides the -follow view: a scrolling terminal UI over the
// live activity trace of an agent turn.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LineMsg carries one rendered trace line from the event loop.
type LineMsg string

// StreamDoneMsg signals that the event stream ended.
type StreamDoneMsg struct{}

var (
	followTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	followFooterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	followBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63"))
)

type keyMap struct {
	Quit key.Binding
	Top  key.Binding
	End  key.Binding
}

var followKeys = keyMap{
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Top:  key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	End:  key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
}

// Model is the bubbletea model for follow mode. It appends trace lines as
// they arrive and auto-scrolls unless the user has scrolled away from the
// bottom.
type Model struct {
	lines    <-chan string
	vp       viewport.Model
	content  []string
	width    int
	height   int
	ready    bool
	finished bool
}

// NewModel creates a follow-mode model reading trace lines from lines.
// The channel must be closed when the stream ends.
func NewModel(lines <-chan string) Model {
	return Model{lines: lines}
}

// waitForLine blocks on the next trace line.
func waitForLine(lines <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lines
		if !ok {
			return StreamDoneMsg{}
		}
		return LineMsg(line)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForLine(m.lines)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := msg.Height - 4 // title, border, footer
		if vpHeight < 1 {
			vpHeight = 1
		}
		if !m.ready {
			m.vp = viewport.New(msg.Width-2, vpHeight)
			m.ready = true
		} else {
			m.vp.Width = msg.Width - 2
			m.vp.Height = vpHeight
		}
		m.vp.SetContent(strings.Join(m.content, "\n"))
		return m, nil

	case LineMsg:
		wasAtBottom := m.vp.AtBottom()
		m.content = append(m.content, string(msg))
		if m.ready {
			m.vp.SetContent(strings.Join(m.content, "\n"))
			if wasAtBottom {
				m.vp.GotoBottom()
			}
		}
		return m, waitForLine(m.lines)

	case StreamDoneMsg:
		m.finished = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, followKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, followKeys.Top):
			m.vp.GotoTop()
			return m, nil
		case key.Matches(msg, followKeys.End):
			m.vp.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if !m.ready {
		return "Waiting for events..."
	}

	title := followTitleStyle.Render("cc-trace · live activity")
	if m.finished {
		title += followFooterStyle.Render("  (stream ended)")
	}
	footer := followFooterStyle.Render("q quit · g/G top/bottom · arrows scroll")

	return title + "\n" +
		followBorderStyle.Width(m.width - 2).Render(m.vp.View()) + "\n" +
		footer
}
