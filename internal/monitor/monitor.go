package monitor

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sdpower/ccusage-statusline-go/internal/types"
)

const DefaultInterval = 5 * time.Second

// Renderer produces one statusline.
type Renderer interface {
	Render(ctx context.Context, hook *types.HookData) (string, error)
}

type Options struct {
	Interval time.Duration
	Hook     *types.HookData
	NoColor  bool
	Clock    func() time.Time
}

// Model is the watch-mode state: the last rendered line and when it was
// produced. Renders are triggered by a tick, by a file change or by 'r'.
type Model struct {
	ctx        context.Context
	renderer   Renderer
	options    Options
	changes    <-chan struct{}
	line       string
	err        error
	lastUpdate time.Time
	renders    int
	quitting   bool
}

type tickMsg time.Time

type changeMsg struct{}

type renderedMsg struct {
	line string
	err  error
	at   time.Time
}

// NewModel builds the model; changes may be nil when nothing is watched.
func NewModel(ctx context.Context, r Renderer, changes <-chan struct{}, opts Options) Model {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return Model{ctx: ctx, renderer: r, options: opts, changes: changes}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.render(),
		tickCmd(m.options.Interval),
		waitForChange(m.changes),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.render()
		}

	case tickMsg:
		return m, tea.Batch(tickCmd(m.options.Interval), m.render())

	case changeMsg:
		return m, tea.Batch(waitForChange(m.changes), m.render())

	case renderedMsg:
		m.renders++
		m.lastUpdate = msg.at
		m.err = msg.err
		if msg.err == nil {
			m.line = msg.line
		}
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	footerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	if m.options.NoColor {
		headerStyle = lipgloss.NewStyle().MarginBottom(1)
		footerStyle = lipgloss.NewStyle()
		errorStyle = lipgloss.NewStyle()
	}

	content := headerStyle.Render("Claude Code Statusline") + "\n"

	switch {
	case m.renders == 0:
		content += "Loading..."
	case m.line == "" && m.err != nil:
		content += errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	default:
		content += m.line
		if m.err != nil {
			content += "\n" + errorStyle.Render(fmt.Sprintf("Last refresh failed: %v", m.err))
		}
	}

	content += "\n\n"
	if !m.lastUpdate.IsZero() {
		content += footerStyle.Render(fmt.Sprintf("Updated %s  •  ", m.lastUpdate.Format("15:04:05")))
	}
	content += footerStyle.Render(fmt.Sprintf("↻ every %ds  •  Press 'q' to quit, 'r' to refresh",
		int(m.options.Interval.Seconds())))
	return content + "\n"
}

// Line returns the last successfully rendered statusline.
func (m Model) Line() string {
	return m.line
}

func (m Model) render() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, 30*time.Second)
		defer cancel()

		line, err := m.renderer.Render(ctx, m.options.Hook)
		return renderedMsg{line: line, err: err, at: m.options.Clock()}
	}
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changeMsg{}
	}
}
