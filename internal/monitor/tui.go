package monitor

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/coverfuzz/kernel/internal/events"
)

// Color palette, ported from the teacher's internal/ui/styles.go.
var (
	colorCyan    = lipgloss.Color("#00FFFF")
	colorMagenta = lipgloss.Color("#FF00FF")
	colorGreen   = lipgloss.Color("#00FF00")
	colorDimText = lipgloss.Color("#666666")
	colorBright  = lipgloss.Color("#FFFFFF")
	colorHeaderBg = lipgloss.Color("#16213E")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorMagenta).Background(colorHeaderBg).Padding(0, 2)
	labelStyle = lipgloss.NewStyle().Foreground(colorDimText).Width(18)
	valueStyle = lipgloss.NewStyle().Foreground(colorBright).Bold(true)
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorCyan).Padding(1, 2)
	runningStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
)

// tickMsg drives the dashboard's periodic redraw, independent of when
// events actually arrive.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// statsMsg carries a fresh Snapshot into the bubbletea event loop.
type statsMsg Snapshot

// dashboardModel is the bubbletea Model rendering a campaign's live
// stats, styled after the teacher's ui.Dashboard.
type dashboardModel struct {
	width, height int
	snap          Snapshot
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.EnterAltScreen)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case statsMsg:
		m.snap = Snapshot(msg)
	case tickMsg:
		return m, tickCmd()
	}
	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "starting campaign...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("coverfuzz") + "  " + runningStyle.Render("● RUNNING"))
	b.WriteString("\n\n")

	row := func(label string, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
	}

	var body strings.Builder
	body.WriteString(row("uptime", m.snap.Uptime.Round(time.Second).String()))
	body.WriteString(row("execs/sec", fmt.Sprintf("%.1f", m.snap.ExecsPerSec)))
	body.WriteString(row("total execs", fmt.Sprintf("%d", m.snap.Execs)))
	body.WriteString(row("corpus size", fmt.Sprintf("%d", m.snap.CorpusSize)))
	body.WriteString(row("solutions", fmt.Sprintf("%d", m.snap.SolutionsCount)))
	body.WriteString(row("coverage", fmt.Sprintf("%.1f%%", m.snap.CoveragePct)))

	b.WriteString(panelStyle.Render(body.String()))
	b.WriteString("\n\npress q to quit\n")
	return b.String()
}

// TUIMonitor is an events.Manager that aggregates stats and renders them
// through a bubbletea program, grounded on the teacher's
// internal/ui.Dashboard wired to a live stats source instead of a
// simulated one.
type TUIMonitor struct {
	stats   *Stats
	program *tea.Program
	done    chan struct{}
}

// NewTUIMonitor starts rendering a dashboard in the current terminal.
// Fire feeds it events asynchronously; Process is a no-op since
// rendering happens on bubbletea's own goroutine.
func NewTUIMonitor() *TUIMonitor {
	program := tea.NewProgram(dashboardModel{})
	m := &TUIMonitor{stats: NewStats(), program: program, done: make(chan struct{})}

	go func() {
		defer close(m.done)
		_, _ = program.Run()
	}()

	return m
}

// Fire implements events.Manager.
func (m *TUIMonitor) Fire(e events.Event) error {
	m.stats.Record(e)
	m.program.Send(statsMsg(m.stats.Snapshot()))
	return nil
}

// Process implements events.Manager; the TUI has no inbound peer
// traffic to drain, so this is a no-op.
func (m *TUIMonitor) Process() error { return nil }

// Stop tears down the bubbletea program and waits for it to exit.
func (m *TUIMonitor) Stop() {
	m.program.Quit()
	<-m.done
}
