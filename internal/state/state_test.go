package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/litescript/ls-globe/internal/projection"
	"github.com/litescript/ls-globe/internal/rotation"
	"github.com/litescript/ls-globe/internal/scene"
)

func frameWith(routes []string, visitor bool) scene.Frame {
	f := scene.Frame{}
	for _, r := range routes {
		f.Routes = append(f.Routes, scene.RoutePath{Name: r})
	}
	if visitor {
		f.Visitor = &projection.ScreenPoint{X: 1, Y: 2}
	}
	return f
}

func TestNewManager(t *testing.T) {
	m := NewManager(DefaultConfig())

	if m == nil {
		t.Fatal("NewManager returned nil")
	}
	if m.HasFrame() {
		t.Error("HasFrame should be false initially")
	}
	if got := m.Snapshot().Events; got != nil {
		t.Errorf("Events = %v, want nil", got)
	}
}

func TestManager_Render(t *testing.T) {
	m := NewManager(DefaultConfig())

	f := frameWith([]string{"A"}, false)
	f.Tick = 9
	m.Render(f)

	if !m.HasFrame() {
		t.Error("HasFrame should be true after Render")
	}

	snap := m.Snapshot()
	if snap.Frame == nil || snap.Frame.Tick != 9 {
		t.Errorf("Snapshot frame = %+v, want tick 9", snap.Frame)
	}
	if snap.Frames != 1 {
		t.Errorf("Frames = %d, want 1", snap.Frames)
	}
	if snap.LastRender.IsZero() {
		t.Error("LastRender not set")
	}
	// The first frame has nothing to compare against.
	if len(snap.Events) != 0 {
		t.Errorf("got %d events, want 0", len(snap.Events))
	}
}

func TestManager_EventDetection_Routes(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.Render(frameWith([]string{"A", "B"}, false))
	m.Render(frameWith([]string{"B", "C"}, false))

	events := m.RecentEvents(10)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Type != EventRouteRise || events[0].Route != "C" {
		t.Errorf("events[0] = %+v, want ROUTE_RISE C", events[0])
	}
	if events[1].Type != EventRouteSet || events[1].Route != "A" {
		t.Errorf("events[1] = %+v, want ROUTE_SET A", events[1])
	}
}

func TestManager_EventDetection_Visitor(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.Render(frameWith(nil, false))
	m.Render(frameWith(nil, true))
	m.Render(frameWith(nil, true))
	m.Render(frameWith(nil, false))

	events := m.RecentEvents(10)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventVisitorShown {
		t.Errorf("events[0].Type = %q, want VISITOR_SHOWN", events[0].Type)
	}
	if events[1].Type != EventVisitorHidden {
		t.Errorf("events[1].Type = %q, want VISITOR_HIDDEN", events[1].Type)
	}
}

func TestManager_ObservePointer(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.ObservePointer(rotation.PointerMove, rotation.StateAutorotate)
	m.ObservePointer(rotation.PointerDown, rotation.StateDragging)
	m.ObservePointer(rotation.PointerMove, rotation.StateDragging)
	m.ObservePointer(rotation.PointerUp, rotation.StateDecaying)
	m.ObservePointer(rotation.PointerUp, rotation.StateDecaying)

	events := m.RecentEvents(10)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != EventDragStart || events[1].Type != EventDragEnd {
		t.Errorf("events = %+v, want DRAG_START then DRAG_END", events)
	}
	if got := m.Snapshot().RotationState; got != rotation.StateDecaying {
		t.Errorf("RotationState = %v, want decaying", got)
	}
}

func TestManager_RenderTakesFrameMotion(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.ObservePointer(rotation.PointerDown, rotation.StateDragging)
	m.ObservePointer(rotation.PointerUp, rotation.StateDecaying)
	m.Render(scene.Frame{Tick: 1, Motion: rotation.StateDecaying})
	if got := m.Snapshot().RotationState; got != rotation.StateDecaying {
		t.Fatalf("RotationState = %v, want decaying", got)
	}

	// The controller settles without any pointer input.
	m.Render(scene.Frame{Tick: 2, Motion: rotation.StateAutorotate})
	if got := m.Snapshot().RotationState; got != rotation.StateAutorotate {
		t.Errorf("RotationState after settling = %v, want autorotate", got)
	}
}

func TestManager_BuildTimes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBuildTimes = 3
	m := NewManager(cfg)

	if got := m.Snapshot().AvgBuildTime; got != 0 {
		t.Errorf("AvgBuildTime = %v, want 0", got)
	}

	// Only the last three survive: 3, 4, 5 ms.
	for i := 1; i <= 5; i++ {
		m.ObserveFrame(scene.Frame{}, time.Duration(i)*time.Millisecond)
	}
	if got := m.Snapshot().AvgBuildTime; got != 4*time.Millisecond {
		t.Errorf("AvgBuildTime = %v, want 4ms", got)
	}
}

func TestManager_RecordLand(t *testing.T) {
	m := NewManager(DefaultConfig())

	m.RecordLand("http", 5, true, 20*time.Millisecond, errors.New("timeout"))
	snap := m.Snapshot()
	if !snap.Land.Fallback || snap.Land.Error != "timeout" || snap.Land.Rings != 5 {
		t.Errorf("Land = %+v", snap.Land)
	}

	m.RecordLand("file", 120, false, time.Millisecond, nil)
	snap = m.Snapshot()
	if snap.Land.Fallback || snap.Land.Error != "" || snap.Land.Source != "file" {
		t.Errorf("Land = %+v", snap.Land)
	}

	if len(snap.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(snap.Events))
	}
	if snap.Events[0].Type != EventLandFallback || snap.Events[0].Detail != "timeout" {
		t.Errorf("events[0] = %+v", snap.Events[0])
	}
	if snap.Events[1].Type != EventLandLoaded || snap.Events[1].Detail != "file" {
		t.Errorf("events[1] = %+v", snap.Events[1])
	}
}

func TestManager_EventRingBuffer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEvents = 3
	m := NewManager(cfg)

	// Each render after the first flips the visitor, producing one event.
	m.Render(frameWith(nil, false))
	for i := 0; i < 5; i++ {
		m.Render(frameWith(nil, i%2 == 0))
	}

	events := m.RecentEvents(10)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// Events 3..5 of SHOWN, HIDDEN, SHOWN, HIDDEN, SHOWN.
	want := []EventType{EventVisitorShown, EventVisitorHidden, EventVisitorShown}
	for i, e := range events {
		if e.Type != want[i] {
			t.Errorf("events[%d] = %q, want %q", i, e.Type, want[i])
		}
	}

	if got := m.RecentEvents(1); len(got) != 1 || got[0].Type != EventVisitorShown {
		t.Errorf("RecentEvents(1) = %+v", got)
	}
}

func TestManager_Snapshot_IsCopy(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.Render(frameWith(nil, false))
	m.Render(frameWith(nil, true))

	snap := m.Snapshot()
	snap.Events[0].Type = "BOGUS"

	if m.Snapshot().Events[0].Type != EventVisitorShown {
		t.Error("Snapshot modification affected manager state")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager(DefaultConfig())

	var wg sync.WaitGroup
	iterations := 100

	// Writer goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			m.Render(frameWith([]string{"A"}, i%2 == 0))
			m.ObserveFrame(scene.Frame{}, time.Duration(i)*time.Microsecond)
			m.ObservePointer(rotation.PointerDown, rotation.StateDragging)
		}
	}()

	// Reader goroutines
	for r := 0; r < 5; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				_ = m.Snapshot()
				_ = m.HasFrame()
				_ = m.RecentEvents(5)
			}
		}()
	}

	wg.Wait()
}
