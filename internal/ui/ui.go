// Package ui provides the terminal user interface using Bubble Tea.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/litescript/ls-globe/internal/canvas"
	"github.com/litescript/ls-globe/internal/geo"
	"github.com/litescript/ls-globe/internal/land"
	"github.com/litescript/ls-globe/internal/rotation"
	"github.com/litescript/ls-globe/internal/scheduler"
	"github.com/litescript/ls-globe/internal/state"
	"github.com/litescript/ls-globe/internal/version"
)

const (
	headerHeight = 1
	nudgeStep    = 1.5 // degrees per frame added per arrow press
)

// StateReader exposes the latest state snapshot.
type StateReader interface {
	Snapshot() state.Snapshot
}

// Msg types for Bubble Tea
type (
	// tickMsg drives one scheduler tick.
	tickMsg time.Time

	// LandLoadedMsg delivers the result of a background land load.
	LandLoadedMsg struct {
		Result land.Result
	}

	// VisitorMsg sets or clears the visitor pin.
	VisitorMsg struct {
		Lon, Lat float64
		Clear    bool
	}
)

// Model is the root Bubble Tea model. The scheduler it drives is only
// touched from Update, which keeps it single-writer.
type Model struct {
	sched    *scheduler.Scheduler
	surface  *canvas.Surface
	state    StateReader
	interval time.Duration
	now      func() time.Time

	keys keyMap
	help help.Model

	width  int
	height int
	ready  bool
	land   string
}

// New creates the globe model. interval is the frame tick period.
func New(sched *scheduler.Scheduler, surface *canvas.Surface, st StateReader, interval time.Duration) Model {
	return Model{
		sched:    sched,
		surface:  surface,
		state:    st,
		interval: interval,
		now:      time.Now,
		keys:     defaultKeyMap(),
		help:     help.New(),
		land:     "land: loading",
	}
}

// WithClock returns a copy of m that timestamps input with now.
func (m Model) WithClock(now func() time.Time) Model {
	m.now = now
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if ev, ok := m.pointerEvent(msg); ok {
			m.sched.HandlePointer(ev)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m = m.resize()

	case tickMsg:
		m.sched.Tick(time.Time(msg))
		return m, m.tickCmd()

	case LandLoadedMsg:
		m.sched.SetLand(msg.Result.Rings)
		m.land = describeLand(msg.Result)

	case VisitorMsg:
		if msg.Clear {
			m.sched.ClearVisitorLocation()
		} else {
			m.sched.SetVisitorLocation(msg.Lon, msg.Lat)
		}
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Left):
		m.sched.Nudge(-nudgeStep, 0, m.now())
	case key.Matches(msg, m.keys.Right):
		m.sched.Nudge(nudgeStep, 0, m.now())
	case key.Matches(msg, m.keys.Up):
		m.sched.Nudge(0, nudgeStep, m.now())
	case key.Matches(msg, m.keys.Down):
		m.sched.Nudge(0, -nudgeStep, m.now())
	case key.Matches(msg, m.keys.Reset):
		m.sched.Reset()
	case key.Matches(msg, m.keys.Pin):
		c := m.sched.Rotation().Center()
		m.sched.SetVisitorLocation(geo.NormalizeLon(c.Lon), c.Lat)
	case key.Matches(msg, m.keys.Clear):
		m.sched.ClearVisitorLocation()
	case key.Matches(msg, m.keys.Graticule):
		m.sched.SetGraticule(!m.sched.Graticule())
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m = m.resize()
	}
	return m, nil
}

// pointerEvent converts a terminal mouse event into view-space pixels.
// Only the left button starts a drag; motion and release are passed
// through and ignored by the controller unless a drag is in progress.
func (m Model) pointerEvent(msg tea.MouseMsg) (rotation.PointerEvent, bool) {
	var kind rotation.PointerKind
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		kind = rotation.PointerDown
	case msg.Action == tea.MouseActionMotion:
		kind = rotation.PointerMove
	case msg.Action == tea.MouseActionRelease:
		kind = rotation.PointerUp
	default:
		return rotation.PointerEvent{}, false
	}

	mapping := m.surface.Mapping(m.sched.View())
	x, y, ok := mapping.CellToView(msg.X, msg.Y-headerHeight)
	if !ok {
		return rotation.PointerEvent{}, false
	}
	return rotation.PointerEvent{Kind: kind, X: x, Y: y, Time: m.now()}, true
}

// resize fits the canvas between header and footer.
func (m Model) resize() Model {
	if !m.ready {
		return m
	}
	m.help.Width = m.width
	rows := m.height - headerHeight - m.footerHeight()
	if rows < 1 {
		rows = 1
	}
	m.surface.SetSize(m.width, rows)
	return m
}

func (m Model) footerHeight() int {
	return 1 + lipgloss.Height(m.help.View(m.keys))
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.renderHeader() + "\n" + m.surface.String() + "\n" + m.renderFooter()
}

func (m Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("135"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#9D4EDD"))

	r := m.sched.Rotation()
	v := m.sched.Velocity()
	parts := []string{
		titleStyle.Render(" ls-globe ") + dimStyle.Render("v"+version.Version),
		accentStyle.Render(m.sched.State().String()),
		dimStyle.Render(fmt.Sprintf("λ₀ %6.1f°  φ₀ %5.1f°", geo.NormalizeLon(r.Lon0), r.Lat0)),
		dimStyle.Render(fmt.Sprintf("%.2f°/frame", v.Magnitude())),
	}
	if p, ok := m.sched.Visitor(); ok {
		parts = append(parts, accentStyle.Render(fmt.Sprintf("pin %.2f, %.2f", p.Lon, p.Lat)))
	}
	return strings.Join(parts, dimStyle.Render(" | "))
}

func (m Model) renderFooter() string {
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("60"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#E84A27"))
	accentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#7B2CBF"))

	var status string
	if strings.Contains(m.land, "fallback") {
		status = errorStyle.Render(m.land)
	} else {
		status = dimStyle.Render(m.land)
	}
	if m.state != nil {
		snap := m.state.Snapshot()
		if n := len(snap.Events); n > 0 {
			status += dimStyle.Render("  |  ") + accentStyle.Render(describeEvent(snap.Events[n-1]))
		}
		if snap.AvgBuildTime > 0 {
			status += dimStyle.Render(fmt.Sprintf("  |  build %v", snap.AvgBuildTime.Round(time.Microsecond)))
		}
	}
	return " " + status + "\n" + m.help.View(m.keys)
}

func describeLand(res land.Result) string {
	if res.Fallback {
		if res.Err != nil {
			return fmt.Sprintf("land: fallback, %d rings (%s failed)", len(res.Rings), res.Source)
		}
		return fmt.Sprintf("land: fallback, %d rings", len(res.Rings))
	}
	return fmt.Sprintf("land: %s, %d rings", res.Source, len(res.Rings))
}

func describeEvent(e state.Event) string {
	s := string(e.Type)
	if e.Route != "" {
		s += " " + e.Route
	}
	if e.Detail != "" {
		s += " " + e.Detail
	}
	return s + " " + e.Timestamp.Format("15:04:05")
}

// Sender delivers messages into a running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Commander forwards visitor pin requests from other goroutines into the
// program's update loop.
type Commander struct {
	sender Sender
}

// NewCommander wraps s.
func NewCommander(s Sender) Commander {
	return Commander{sender: s}
}

// SetVisitorLocation queues a pin at lon/lat.
func (c Commander) SetVisitorLocation(lon, lat float64) {
	c.sender.Send(VisitorMsg{Lon: lon, Lat: lat})
}

// ClearVisitorLocation queues removal of the pin.
func (c Commander) ClearVisitorLocation() {
	c.sender.Send(VisitorMsg{Clear: true})
}
