// Package tui provides the interactive terminal dashboard for xenctl. It is
// built on the bubbletea/lipgloss stack and renders two tabs: Peers and
// Activity. Data is refreshed every second by polling a monitor.Recorder
// attached to the running Server — no network round trip, since the
// dashboard runs in the same process as the Server it watches.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emmt/xen/pkg/monitor"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("57")).
			Padding(0, 2)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			PaddingRight(1)

	rowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			PaddingRight(1)

	altRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Background(lipgloss.Color("236")).
			PaddingRight(1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(1)
)

type tab int

const (
	tabPeers tab = iota
	tabActivity
	tabCount // sentinel — must stay last
)

const refreshInterval = time.Second

type tickMsg time.Time

type dataMsg struct {
	peerCount int
	events    []monitor.Event
}

// Model is the top-level bubbletea model for the dashboard.
type Model struct {
	tabs      []string
	activeTab tab
	addr      string
	rec       *monitor.Recorder
	peerCount int
	events    []monitor.Event
	width     int
	height    int
	lastPoll  time.Time
}

// New returns a Model that polls rec for a Server listening on addr.
func New(addr string, rec *monitor.Recorder) Model {
	return Model{
		tabs: []string{"Peers", "Activity"},
		addr: addr,
		rec:  rec,
	}
}

// Init starts the periodic poll tick.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), poll(m.rec))
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func poll(rec *monitor.Recorder) tea.Cmd {
	return func() tea.Msg {
		count, events := rec.Snapshot()
		return dataMsg{peerCount: count, events: events}
	}
}

// Update processes messages and returns an updated model plus any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "left", "h":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1":
			m.activeTab = tabPeers
		case "2":
			m.activeTab = tabActivity
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(tick(), poll(m.rec))

	case dataMsg:
		m.peerCount = msg.peerCount
		m.events = msg.events
		m.lastPoll = time.Now()
		return m, nil
	}

	return m, nil
}

// View renders the entire dashboard to a string.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading…"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render(fmt.Sprintf("  Xen Dashboard — %s  ", m.addr)))
	sb.WriteString("\n")

	var tabParts []string
	for i, name := range m.tabs {
		label := fmt.Sprintf(" %d: %s ", i+1, name)
		if tab(i) == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
	}
	sb.WriteString(strings.Join(tabParts, ""))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	contentHeight := m.height - 5
	if contentHeight < 1 {
		contentHeight = 1
	}
	content := clipLines(m.renderActiveTab(), contentHeight)
	sb.WriteString(content)
	sb.WriteString("\n")

	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())

	return sb.String()
}

func (m Model) renderActiveTab() string {
	switch m.activeTab {
	case tabPeers:
		return m.renderPeers()
	case tabActivity:
		return m.renderActivity()
	default:
		return ""
	}
}

func (m Model) renderPeers() string {
	if m.peerCount == 0 {
		return dimStyle.Render("no peers connected")
	}
	return fmt.Sprintf("%s %d", headerCellStyle.Render("connected peers:"), m.peerCount)
}

func (m Model) renderActivity() string {
	if len(m.events) == 0 {
		return dimStyle.Render("no traffic yet")
	}
	var sb strings.Builder
	sb.WriteString(headerCellStyle.Render(fmt.Sprintf("%-9s %-5s %-4s %-7s %s", "TIME", "DIR", "CAT", "SERIAL", "TEXT")))
	sb.WriteString("\n")
	start := 0
	if len(m.events) > 50 {
		start = len(m.events) - 50
	}
	for i, e := range m.events[start:] {
		line := fmt.Sprintf("%-9s %-5s %-4s %-7d %s",
			e.When.Format("15:04:05"), e.Direction, e.Category, e.Serial, e.Text)
		if i%2 == 0 {
			sb.WriteString(rowStyle.Render(line))
		} else {
			sb.WriteString(altRowStyle.Render(line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderStatus() string {
	parts := []string{fmt.Sprintf("listening: %s", m.addr)}
	if !m.lastPoll.IsZero() {
		parts = append(parts, fmt.Sprintf("last poll: %s", m.lastPoll.Format("15:04:05")))
	}
	parts = append(parts, "q: quit  tab: switch  1/2: jump")
	return statusBarStyle.Render(strings.Join(parts, "  |  "))
}

func clipLines(s string, maxLines int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= maxLines {
		return s
	}
	return strings.Join(lines[:maxLines], "\n")
}
