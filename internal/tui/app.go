// Package tui renders a live trackstream.Session as a terminal
// dashboard: tabs per record kind, tables of the current bodies,
// Flysticks, markers, and system status.
package tui

import (
	"fmt"
	"time"

	"trackstream"
	"trackstream/frame"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	cyanColor   = lipgloss.Color("#00FFFF")
	grayColor   = lipgloss.Color("#666666")
	whiteColor  = lipgloss.Color("#FFFFFF")
	yellowColor = lipgloss.Color("#FFFF00")
	redColor    = lipgloss.Color("#FF6666")
)

var (
	statsStyle = lipgloss.NewStyle().Foreground(whiteColor)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(whiteColor).
			Background(lipgloss.Color("#1a1a2e")).
			Padding(0, 2)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cyanColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cyanColor).
			Padding(0, 1)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(grayColor).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(grayColor).
				Padding(0, 1)

	rowStyle       = lipgloss.NewStyle().Foreground(whiteColor)
	untrackedStyle = lipgloss.NewStyle().Foreground(grayColor)
	helpStyle      = lipgloss.NewStyle().Foreground(grayColor)
)

// Tab identifies one record-kind page of the dashboard.
type Tab int

const (
	TabBodies Tab = iota
	TabFlysticks
	TabMarkers
	TabStatus
	tabCount
)

func (t Tab) String() string {
	switch t {
	case TabBodies:
		return "Bodies"
	case TabFlysticks:
		return "Flysticks"
	case TabMarkers:
		return "Markers"
	case TabStatus:
		return "Status"
	default:
		return "?"
	}
}

// KeyMap defines keybindings.
type KeyMap struct {
	Tab  key.Binding
	Quit key.Binding
}

var keys = KeyMap{
	Tab:  key.NewBinding(key.WithKeys("tab")),
	Quit: key.NewBinding(key.WithKeys("q", "ctrl+c")),
}

// Model is the main TUI model, rendering one live Session.
type Model struct {
	session *trackstream.Session
	active  Tab
	width   int
	height  int
}

// NewModel creates a TUI model over a live, already-started Session.
func NewModel(s *trackstream.Session) Model {
	return Model{session: s}
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Tab):
			m.active = (m.active + 1) % tabCount
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tickCmd()
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	s := titleStyle.Render("trackstream monitor") + "\n\n"

	var tabs string
	for t := Tab(0); t < tabCount; t++ {
		label := t.String()
		if t == m.active {
			tabs += tabActiveStyle.Render(label) + " "
		} else {
			tabs += tabInactiveStyle.Render(label) + " "
		}
	}
	s += tabs + "\n\n"

	snap := m.session.Snapshot()
	if snap == nil {
		s += helpStyle.Render("Waiting for measurement data...") + "\n"
		s += "\n" + helpStyle.Render("Tab: switch view | q: quit")
		return s
	}

	s += m.renderStats(snap) + "\n\n"

	switch m.active {
	case TabBodies:
		s += renderBodies(snap.Bodies)
	case TabFlysticks:
		s += renderFlysticks(snap.Flysticks)
	case TabMarkers:
		s += renderMarkers(snap.Markers)
	case TabStatus:
		s += renderStatus(snap.Status)
	}

	s += "\n" + helpStyle.Render("Tab: switch view | q: quit")
	return s
}

func (m Model) renderStats(snap *frame.Snapshot) string {
	tracker := m.session.Stats()
	rate := tracker.FrameRate()
	loss := tracker.LossPercentage()

	lossStr := fmt.Sprintf("%.1f%%", loss)
	if loss > 1 {
		lossStr = lipgloss.NewStyle().Foreground(redColor).Render(lossStr)
	} else if loss > 0 {
		lossStr = lipgloss.NewStyle().Foreground(yellowColor).Render(lossStr)
	}

	line := fmt.Sprintf(
		"Frame: %d | Rate: %.1f fps | Loss: %s | Data: %s | Cmd: %s",
		snap.FrameCounter, rate, lossStr,
		m.session.LastDataError(), m.session.LastServerError(),
	)
	return statsStyle.Render(line)
}

func renderBodies(bodies []frame.Body) string {
	if len(bodies) == 0 {
		return helpStyle.Render("No bodies in this datagram.")
	}
	var rows []string
	rows = append(rows, rowStyle.Render(fmt.Sprintf("%-4s %-8s %-24s", "ID", "Quality", "Location")))
	for _, b := range bodies {
		style := rowStyle
		if !b.IsTracked() {
			style = untrackedStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%-4d %-8.3f %-24v", b.ID, b.Quality, b.Location)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderFlysticks(sticks []frame.Flystick) string {
	if len(sticks) == 0 {
		return helpStyle.Render("No Flysticks in this datagram.")
	}
	var rows []string
	rows = append(rows, rowStyle.Render(fmt.Sprintf("%-4s %-8s %-10s %s", "ID", "Quality", "Buttons", "Joysticks")))
	for _, f := range sticks {
		style := rowStyle
		if !f.IsTracked() {
			style = untrackedStyle
		}
		rows = append(rows, style.Render(fmt.Sprintf("%-4d %-8.3f %-10v %v", f.ID, f.Quality, f.Buttons, f.Joysticks)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderMarkers(markers []frame.Marker) string {
	if len(markers) == 0 {
		return helpStyle.Render("No markers in this datagram.")
	}
	var rows []string
	rows = append(rows, rowStyle.Render(fmt.Sprintf("%-4s %-8s %-24s", "ID", "Quality", "Location")))
	for _, mk := range markers {
		rows = append(rows, rowStyle.Render(fmt.Sprintf("%-4d %-8.3f %-24v", mk.ID, mk.Quality, mk.Location)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func renderStatus(st *frame.Status) string {
	if st == nil {
		return helpStyle.Render("No status record in this datagram.")
	}
	var rows []string
	rows = append(rows, rowStyle.Render(fmt.Sprintf(
		"Cameras: %d | Tracked bodies: %d | Tracked markers: %d",
		st.NumCameras, st.NumTrackedBodies, st.NumTrackedMarkers)))
	rows = append(rows, rowStyle.Render(fmt.Sprintf(
		"Camera errors: %d warnings: %d | Other errors: %d warnings: %d | Info: %d",
		st.NumCameraErrorMessages, st.NumCameraWarningMessages,
		st.NumOtherErrorMessages, st.NumOtherWarningMessages, st.NumInfoMessages)))
	for _, c := range st.Cameras {
		rows = append(rows, rowStyle.Render(fmt.Sprintf(
			"  cam %d: reflections %d used %d maxIntensity %d",
			c.ID, c.NumReflections, c.NumReflectionsUsed, c.MaxIntensity)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
