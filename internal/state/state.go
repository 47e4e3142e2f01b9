// Package state provides thread-safe access to the latest rendered frame and
// a log of notable globe events for readers outside the render loop.
package state

import (
	"sync"
	"time"

	"github.com/litescript/ls-globe/internal/rotation"
	"github.com/litescript/ls-globe/internal/scene"
)

// EventType represents the type of globe event.
type EventType string

const (
	EventDragStart     EventType = "DRAG_START"
	EventDragEnd       EventType = "DRAG_END"
	EventRouteRise     EventType = "ROUTE_RISE"
	EventRouteSet      EventType = "ROUTE_SET"
	EventVisitorShown  EventType = "VISITOR_SHOWN"
	EventVisitorHidden EventType = "VISITOR_HIDDEN"
	EventLandLoaded    EventType = "LAND_LOADED"
	EventLandFallback  EventType = "LAND_FALLBACK"
)

// Event is one entry of the event log.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Route     string    `json:"route,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// LandStatus describes where the current land rings came from.
type LandStatus struct {
	Source   string        `json:"source"`
	Rings    int           `json:"rings"`
	Fallback bool          `json:"fallback"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
	LoadedAt time.Time     `json:"loaded_at"`
}

// Manager stores what the render loop produced. The loop writes, any
// goroutine reads.
type Manager struct {
	mu sync.RWMutex

	current    *scene.Frame
	lastRender time.Time
	frames     uint64
	rotState   rotation.State

	// Build times (ring buffer)
	buildTimes    []time.Duration
	maxBuildTimes int
	buildWriteAt  int

	land LandStatus

	// Event log (ring buffer)
	events       []Event
	maxEvents    int
	eventWriteAt int
}

// Config holds configuration for the state manager.
type Config struct {
	MaxEvents     int
	MaxBuildTimes int
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		MaxEvents:     50,  // Last 50 events
		MaxBuildTimes: 120, // ~2s of frames at 60 fps
	}
}

// NewManager creates a new state manager.
func NewManager(cfg Config) *Manager {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = 50
	}
	maxBuild := cfg.MaxBuildTimes
	if maxBuild <= 0 {
		maxBuild = 120
	}
	return &Manager{
		maxEvents:     maxEvents,
		events:        make([]Event, 0, maxEvents),
		maxBuildTimes: maxBuild,
		buildTimes:    make([]time.Duration, 0, maxBuild),
	}
}

// Render stores f as the latest frame, takes the rotation state it was built
// with, and logs visibility changes of routes and the visitor pin relative
// to the previous frame.
func (m *Manager) Render(f scene.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.detectEvents(m.current, &f)
	}
	m.current = &f
	m.rotState = f.Motion
	m.lastRender = time.Now()
	m.frames++
}

// detectEvents compares two frames and records what rose or set.
func (m *Manager) detectEvents(prev, next *scene.Frame) {
	now := time.Now()

	prevRoutes := make(map[string]bool, len(prev.Routes))
	for _, r := range prev.Routes {
		prevRoutes[r.Name] = true
	}
	nextRoutes := make(map[string]bool, len(next.Routes))
	for _, r := range next.Routes {
		nextRoutes[r.Name] = true
		if !prevRoutes[r.Name] {
			m.addEvent(Event{Type: EventRouteRise, Timestamp: now, Route: r.Name})
		}
	}
	for _, r := range prev.Routes {
		if !nextRoutes[r.Name] {
			m.addEvent(Event{Type: EventRouteSet, Timestamp: now, Route: r.Name})
		}
	}

	switch {
	case prev.Visitor == nil && next.Visitor != nil:
		m.addEvent(Event{Type: EventVisitorShown, Timestamp: now})
	case prev.Visitor != nil && next.Visitor == nil:
		m.addEvent(Event{Type: EventVisitorHidden, Timestamp: now})
	}
}

// ObserveFrame records how long a frame took to build.
func (m *Manager) ObserveFrame(_ scene.Frame, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.buildTimes) < m.maxBuildTimes {
		m.buildTimes = append(m.buildTimes, took)
	} else {
		m.buildTimes[m.buildWriteAt] = took
		m.buildWriteAt = (m.buildWriteAt + 1) % m.maxBuildTimes
	}
}

// ObservePointer logs drag start and end.
func (m *Manager) ObservePointer(kind rotation.PointerKind, st rotation.State) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.rotState
	m.rotState = st
	switch {
	case kind == rotation.PointerDown && st == rotation.StateDragging && prev != rotation.StateDragging:
		m.addEvent(Event{Type: EventDragStart, Timestamp: time.Now()})
	case kind == rotation.PointerUp && prev == rotation.StateDragging && st != rotation.StateDragging:
		m.addEvent(Event{Type: EventDragEnd, Timestamp: time.Now()})
	}
}

// RecordLand stores the outcome of a land load.
func (m *Manager) RecordLand(source string, rings int, fallback bool, took time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.land = LandStatus{
		Source:   source,
		Rings:    rings,
		Fallback: fallback,
		Duration: took,
		LoadedAt: time.Now(),
	}
	e := Event{Type: EventLandLoaded, Timestamp: m.land.LoadedAt, Detail: source}
	if fallback {
		e.Type = EventLandFallback
		if err != nil {
			m.land.Error = err.Error()
			e.Detail = err.Error()
		}
	}
	m.addEvent(e)
}

// addEvent adds an event to the ring buffer.
func (m *Manager) addEvent(e Event) {
	if len(m.events) < m.maxEvents {
		m.events = append(m.events, e)
	} else {
		m.events[m.eventWriteAt] = e
		m.eventWriteAt = (m.eventWriteAt + 1) % m.maxEvents
	}
}

// Snapshot represents an immutable snapshot of current state.
type Snapshot struct {
	Frame         *scene.Frame
	LastRender    time.Time
	Frames        uint64
	RotationState rotation.State
	AvgBuildTime  time.Duration
	Land          LandStatus
	Events        []Event
}

// Snapshot returns a consistent snapshot of current state. Frames are never
// mutated after rendering, so the frame pointer is shared.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Frame:         m.current,
		LastRender:    m.lastRender,
		Frames:        m.frames,
		RotationState: m.rotState,
		AvgBuildTime:  m.avgBuildTime(),
		Land:          m.land,
		Events:        m.getEventsOrdered(),
	}
}

func (m *Manager) avgBuildTime() time.Duration {
	if len(m.buildTimes) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range m.buildTimes {
		sum += d
	}
	return sum / time.Duration(len(m.buildTimes))
}

// getEventsOrdered returns events in chronological order.
func (m *Manager) getEventsOrdered() []Event {
	if len(m.events) == 0 {
		return nil
	}

	// If buffer isn't full yet, just copy
	if len(m.events) < m.maxEvents {
		result := make([]Event, len(m.events))
		copy(result, m.events)
		return result
	}

	// Ring buffer is full, reorder from oldest to newest
	result := make([]Event, m.maxEvents)
	for i := 0; i < m.maxEvents; i++ {
		idx := (m.eventWriteAt + i) % m.maxEvents
		result[i] = m.events[idx]
	}
	return result
}

// RecentEvents returns the last n events.
func (m *Manager) RecentEvents(n int) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.getEventsOrdered()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// HasFrame returns true once at least one frame was rendered.
func (m *Manager) HasFrame() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}
