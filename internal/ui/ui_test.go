package ui

import (
	"math"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/litescript/ls-globe/internal/canvas"
	"github.com/litescript/ls-globe/internal/geo"
	"github.com/litescript/ls-globe/internal/land"
	"github.com/litescript/ls-globe/internal/projection"
	"github.com/litescript/ls-globe/internal/rotation"
	"github.com/litescript/ls-globe/internal/scene"
	"github.com/litescript/ls-globe/internal/scheduler"
	"github.com/litescript/ls-globe/internal/state"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	model   Model
	sched   *scheduler.Scheduler
	surface *canvas.Surface
	state   *state.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := rotation.New(rotation.DefaultConfig(), projection.Rotation{})
	builder := scene.NewBuilder(projection.DefaultView())
	raster := canvas.NewRaster(80, 24)
	raster.Color = false
	surface := canvas.NewSurface(raster)
	mgr := state.NewManager(state.DefaultConfig())
	sched := scheduler.New(scheduler.DefaultConfig(), ctrl, builder,
		scheduler.Surfaces{surface, mgr}, scheduler.WithObserver(mgr))

	m := New(sched, surface, mgr, time.Second/60).WithClock(func() time.Time { return t0 })
	return &harness{model: m, sched: sched, surface: surface, state: mgr}
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

// ready sizes the terminal and renders a first frame.
func (h *harness) ready(w, ht int) {
	h.send(tea.WindowSizeMsg{Width: w, Height: ht})
	h.send(tickMsg(t0))
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestView_BeforeResize(t *testing.T) {
	h := newHarness(t)
	if got := h.model.View(); got != "Initializing..." {
		t.Errorf("View() = %q, want Initializing...", got)
	}
}

func TestWindowSize_FitsCanvas(t *testing.T) {
	h := newHarness(t)
	h.ready(80, 30)

	// one header line, one status line, one short-help line
	lines := h.surface.Lines()
	if len(lines) != 27 {
		t.Fatalf("canvas rows = %d, want 27", len(lines))
	}
	if w := len([]rune(lines[0])); w != 80 {
		t.Errorf("canvas cols = %d, want 80", w)
	}
	view := h.model.View()
	if n := strings.Count(view, "\n") + 1; n != 30 {
		t.Errorf("View() has %d lines, want 30", n)
	}
}

func TestTick_AdvancesAndReschedules(t *testing.T) {
	h := newHarness(t)
	h.send(tea.WindowSizeMsg{Width: 80, Height: 30})

	cmd := h.send(tickMsg(t0))
	if cmd == nil {
		t.Fatal("tick should schedule the next tick")
	}
	if got := h.sched.Rotation().Lon0; math.Abs(got-0.12) > 1e-9 {
		t.Errorf("Lon0 after first tick = %v, want 0.12", got)
	}
	if h.sched.Frame().Tick != 0 {
		t.Errorf("first frame tick = %d, want 0", h.sched.Frame().Tick)
	}
}

func TestMouseDrag(t *testing.T) {
	h := newHarness(t)
	h.ready(80, 30)
	start := h.sched.Rotation().Lon0

	h.send(tea.MouseMsg{X: 20, Y: 14, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if h.sched.State() != rotation.StateDragging {
		t.Fatalf("state after press = %v, want dragging", h.sched.State())
	}

	h.send(tea.MouseMsg{X: 30, Y: 14, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	if got := h.sched.Rotation().Lon0; got >= start {
		t.Errorf("dragging right should decrease Lon0: %v -> %v", start, got)
	}
	if got := h.sched.Rotation().Lat0; got != 0 {
		t.Errorf("horizontal drag changed Lat0 to %v", got)
	}

	h.send(tea.MouseMsg{X: 30, Y: 14, Action: tea.MouseActionRelease, Button: tea.MouseButtonNone})
	if h.sched.State() != rotation.StateDecaying {
		t.Errorf("state after release = %v, want decaying", h.sched.State())
	}
}

func TestMouse_IgnoredInputs(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.MouseMsg
	}{
		{"right button", tea.MouseMsg{X: 20, Y: 14, Action: tea.MouseActionPress, Button: tea.MouseButtonRight}},
		{"wheel", tea.MouseMsg{X: 20, Y: 14, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp}},
		{"motion without press", tea.MouseMsg{X: 40, Y: 14, Action: tea.MouseActionMotion}},
		{"release without press", tea.MouseMsg{X: 40, Y: 14, Action: tea.MouseActionRelease}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.ready(80, 30)
			before := h.sched.Rotation()

			h.send(tt.msg)
			if h.sched.State() != rotation.StateAutorotate {
				t.Errorf("state = %v, want autorotate", h.sched.State())
			}
			if h.sched.Rotation() != before {
				t.Errorf("rotation changed: %+v -> %+v", before, h.sched.Rotation())
			}
		})
	}
}

func TestKeys_Nudge(t *testing.T) {
	tests := []struct {
		key        tea.KeyMsg
		vLon, vLat float64
	}{
		{tea.KeyMsg{Type: tea.KeyRight}, nudgeStep, 0},
		{tea.KeyMsg{Type: tea.KeyLeft}, -nudgeStep, 0},
		{tea.KeyMsg{Type: tea.KeyUp}, 0, nudgeStep},
		{tea.KeyMsg{Type: tea.KeyDown}, 0, -nudgeStep},
		{runeKey("l"), nudgeStep, 0},
		{runeKey("j"), 0, -nudgeStep},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			h := newHarness(t)
			h.ready(80, 30)

			h.send(tt.key)
			if h.sched.State() != rotation.StateDecaying {
				t.Errorf("state = %v, want decaying", h.sched.State())
			}
			v := h.sched.Velocity()
			if v.VLon != tt.vLon || v.VLat != tt.vLat {
				t.Errorf("velocity = %+v, want (%v, %v)", v, tt.vLon, tt.vLat)
			}
		})
	}
}

func TestKey_Reset(t *testing.T) {
	h := newHarness(t)
	h.ready(80, 30)
	h.send(tea.KeyMsg{Type: tea.KeyRight})
	h.send(tickMsg(t0.Add(100 * time.Millisecond)))

	h.send(runeKey("r"))
	if r := h.sched.Rotation(); r != (projection.Rotation{}) {
		t.Errorf("rotation after reset = %+v, want origin", r)
	}
	if h.sched.State() != rotation.StateAutorotate {
		t.Errorf("state after reset = %v, want autorotate", h.sched.State())
	}
}

func TestKey_PinAndClear(t *testing.T) {
	h := newHarness(t)
	h.ready(80, 30)

	h.send(runeKey("p"))
	p, ok := h.sched.Visitor()
	if !ok {
		t.Fatal("p should pin the visitor at the view center")
	}
	if math.Abs(p.Lon-0.12) > 1e-9 || p.Lat != 0 {
		t.Errorf("pin = %+v, want (0.12, 0)", p)
	}
	if h.sched.Frame().Visitor == nil {
		t.Error("pinned visitor should be drawn")
	}

	h.send(runeKey("c"))
	if _, ok := h.sched.Visitor(); ok {
		t.Error("c should clear the pin")
	}
}

func TestKey_Graticule(t *testing.T) {
	h := newHarness(t)
	h.ready(80, 30)
	if len(h.sched.Frame().Graticule) == 0 {
		t.Fatal("grid should be on by default")
	}

	h.send(runeKey("g"))
	if h.sched.Graticule() {
		t.Error("g should hide the grid")
	}
	if n := len(h.sched.Frame().Graticule); n != 0 {
		t.Errorf("frame has %d grid paths after hiding", n)
	}

	h.send(runeKey("g"))
	if !h.sched.Graticule() {
		t.Error("second g should show the grid again")
	}
}

func TestKey_HelpShrinksCanvas(t *testing.T) {
	h := newHarness(t)
	h.ready(80, 30)
	short := len(h.surface.Lines())

	h.send(runeKey("?"))
	if !h.model.help.ShowAll {
		t.Fatal("? should expand the help")
	}
	if full := len(h.surface.Lines()); full >= short {
		t.Errorf("canvas rows with full help = %d, want fewer than %d", full, short)
	}
}

func TestKey_Quit(t *testing.T) {
	for _, k := range []tea.KeyMsg{runeKey("q"), {Type: tea.KeyCtrlC}} {
		h := newHarness(t)
		cmd := h.send(k)
		if cmd == nil {
			t.Fatalf("%s: want quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: command did not quit", k)
		}
	}
}

func TestLandLoaded(t *testing.T) {
	h := newHarness(t)
	h.ready(80, 30)

	ring := geo.Ring{{Lon: -10, Lat: -10}, {Lon: 10, Lat: -10}, {Lon: 10, Lat: 10}, {Lon: -10, Lat: 10}}
	h.send(LandLoadedMsg{Result: land.Result{Rings: []geo.Ring{ring}, Source: "http"}})

	if n := len(h.sched.Frame().Land); n != 1 {
		t.Errorf("frame has %d land outlines, want 1", n)
	}
	if !strings.Contains(h.model.View(), "land: http, 1 rings") {
		t.Errorf("footer missing land status:\n%s", h.model.View())
	}
}

func TestLandLoaded_Fallback(t *testing.T) {
	h := newHarness(t)
	h.ready(80, 30)

	h.send(LandLoadedMsg{Result: land.Result{
		Rings:    land.FallbackRings(),
		Source:   "http",
		Fallback: true,
		Err:      land.ErrNoRings,
	}})
	want := "land: fallback, 5 rings (http failed)"
	if !strings.Contains(h.model.View(), want) {
		t.Errorf("footer missing %q:\n%s", want, h.model.View())
	}
}

func TestVisitorMsg(t *testing.T) {
	h := newHarness(t)
	h.ready(80, 30)

	h.send(VisitorMsg{Lon: 5, Lat: 120})
	p, ok := h.sched.Visitor()
	if !ok || p.Lon != 5 || p.Lat != 90 {
		t.Errorf("visitor = %+v (%v), want (5, 90)", p, ok)
	}

	h.send(VisitorMsg{Clear: true})
	if _, ok := h.sched.Visitor(); ok {
		t.Error("clear message should remove the pin")
	}
}

func TestView_HeaderAndEvents(t *testing.T) {
	h := newHarness(t)
	h.ready(80, 30)
	h.send(VisitorMsg{Lon: 0, Lat: 0})

	view := h.model.View()
	header := strings.SplitN(view, "\n", 2)[0]
	for _, want := range []string{"ls-globe", "autorotate", "pin 0.00, 0.00"} {
		if !strings.Contains(header, want) {
			t.Errorf("header %q missing %q", header, want)
		}
	}
	if !strings.Contains(view, string(state.EventVisitorShown)) {
		t.Errorf("footer should show the latest event:\n%s", view)
	}
}

type recordingSender struct {
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) { s.msgs = append(s.msgs, msg) }

func TestCommander(t *testing.T) {
	s := &recordingSender{}
	c := NewCommander(s)

	c.SetVisitorLocation(12.5, -3)
	c.ClearVisitorLocation()

	if len(s.msgs) != 2 {
		t.Fatalf("sent %d messages, want 2", len(s.msgs))
	}
	if got := s.msgs[0]; got != (VisitorMsg{Lon: 12.5, Lat: -3}) {
		t.Errorf("first message = %+v", got)
	}
	if got := s.msgs[1]; got != (VisitorMsg{Clear: true}) {
		t.Errorf("second message = %+v", got)
	}
}
