package tui

import (
	"context"
	"fmt"
	"strings"

	"rsi-board/internal/board"
	"rsi-board/internal/domain"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Ranges are the presets cycled with the [ and ] keys.
var Ranges = []int{1, 3, 7, 30, 90, 365}

const barWidth = 30

type Source interface {
	Subscribe() (<-chan domain.Snapshot, func())
	Config() domain.LoadConfig
}

type Loader interface {
	RequestLoad(ctx context.Context, cfg domain.LoadConfig) bool
}

type snapshotMsg domain.Snapshot

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	zoneStyles  = map[string]lipgloss.Style{
		"overbought": lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		"oversold":   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		"neutral":    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}
)

// Model renders the latest board snapshot as a table of RSI readings.
type Model struct {
	ctx     context.Context
	loader  Loader
	updates <-chan domain.Snapshot
	cancel  func()

	snap    domain.Snapshot
	pending domain.LoadConfig
	spinner spinner.Model
	width   int
	height  int
}

func NewModel(ctx context.Context, source Source, loader Loader) *Model {
	updates, cancel := source.Subscribe()
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Model{
		ctx:     ctx,
		loader:  loader,
		updates: updates,
		cancel:  cancel,
		pending: source.Config(),
		spinner: sp,
	}
}

// Close drops the board subscription and ends any pending snapshot read.
// Safe to call more than once and from any goroutine.
func (m *Model) Close() {
	m.cancel()
}

func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSnapshot())
}

func (m *Model) waitForSnapshot() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = domain.Snapshot(msg)
		return m, m.waitForSnapshot()
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.Close()
		return m, tea.Quit
	case "r":
		cfg := m.pending
		cfg.Force = true
		m.loader.RequestLoad(m.ctx, cfg)
	case "enter":
		m.loader.RequestLoad(m.ctx, m.pending)
	case "+", "=":
		if m.pending.Period < domain.MaxPeriod {
			m.pending.Period++
		}
	case "-":
		if m.pending.Period > 1 {
			m.pending.Period--
		}
	case "]":
		m.pending.RangeDays = stepRange(m.pending.RangeDays, 1)
	case "[":
		m.pending.RangeDays = stepRange(m.pending.RangeDays, -1)
	}
	return m, nil
}

// stepRange returns the next preset above (dir > 0) or below current.
func stepRange(current, dir int) int {
	if dir > 0 {
		for _, r := range Ranges {
			if r > current {
				return r
			}
		}
		return Ranges[len(Ranges)-1]
	}
	for i := len(Ranges) - 1; i >= 0; i-- {
		if Ranges[i] < current {
			return Ranges[i]
		}
	}
	return Ranges[0]
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Crypto RSI(%d) over %d days", m.snap.Config.Period, m.snap.Config.RangeDays)))
	b.WriteString("\n")

	status := m.snap.Status
	if m.snap.Phase != domain.PhaseIdle && m.snap.Phase != "" {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n\n")

	rows := board.Rows(m.snap)
	if len(rows) == 0 {
		b.WriteString("No RSI data yet.\n")
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %-24s %7s  %-10s", "SYMBOL", "NAME", "RSI", "ZONE")))
		b.WriteString("\n")
		for _, r := range rows {
			line := fmt.Sprintf("%-8s %-24s %7.2f  %-10s %s", r.Label, truncate(r.DisplayName, 24), r.RSI, r.Zone, bar(r.RSI))
			b.WriteString(zoneStyles[r.Zone].Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf(
		"next: RSI(%d) %dd  •  -/+ period  •  [/] range  •  enter load  •  r force refresh  •  q quit",
		m.pending.Period, m.pending.RangeDays)))
	b.WriteString("\n")
	return b.String()
}

func bar(v float64) string {
	n := int(v / 100 * barWidth)
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	return strings.Repeat("█", n) + strings.Repeat("░", barWidth-n)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
