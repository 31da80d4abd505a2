// Package ui renders interactive build progress for terminal sessions.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Event is one unit of build progress: a function finished compiling.
type Event struct {
	Func  string
	Done  int
	Total int
}

type progressModel struct {
	title   string
	events  <-chan Event
	spinner spinner.Model
	prog    progress.Model
	recent  []string
	done    int
	total   int
	width   int
	quit    bool
}

type eventMsg Event
type doneMsg struct{}

const recentShown = 5

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	funcStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	muteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okMarkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// NewProgressModel returns a Bubble Tea model that renders compilation
// progress from events. The channel must be closed when the build ends.
func NewProgressModel(title string, total int, events <-chan Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		total:   total,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		m.done = msg.Done
		if msg.Total > 0 {
			m.total = msg.Total
		}
		m.recent = append(m.recent, msg.Func)
		if len(m.recent) > recentShown {
			m.recent = m.recent[len(m.recent)-recentShown:]
		}
		return m, m.listenForEvent()
	case doneMsg:
		m.quit = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.quit {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 4; w > 10 {
			m.prog.Width = w
		}
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quit = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteByte('\n')

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.done) / float64(m.total)
	}
	b.WriteString(m.prog.ViewAs(ratio))
	b.WriteByte('\n')

	for _, name := range m.recent {
		line := fmt.Sprintf("%s %s", okMarkStyle.Render("✓"), funcStyle.Render(name))
		b.WriteString(truncate(line, m.width))
		b.WriteByte('\n')
	}
	if !m.quit {
		b.WriteString(m.spinner.View())
		b.WriteString(muteStyle.Render(fmt.Sprintf(" compiling %d/%d", m.done, m.total)))
		b.WriteByte('\n')
	}
	return b.String()
}

func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width-1, "…")
}

// RunProgress drives the model until events closes. Callers feed events from
// the driver's progress callback on another goroutine.
func RunProgress(title string, total int, events <-chan Event) error {
	p := tea.NewProgram(NewProgressModel(title, total, events))
	_, err := p.Run()
	return err
}
