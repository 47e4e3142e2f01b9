// Package scheduler drives the per-tick update loop of the globe: advance
// the rotation, build a frame, hand it to the render surface and animate
// the route dashes.
package scheduler

import (
	"context"
	"time"

	"github.com/litescript/ls-globe/internal/geo"
	"github.com/litescript/ls-globe/internal/logging"
	"github.com/litescript/ls-globe/internal/projection"
	"github.com/litescript/ls-globe/internal/rotation"
	"github.com/litescript/ls-globe/internal/scene"
)

// RenderSurface paints a finished frame. Frames are read-only to surfaces.
type RenderSurface interface {
	Render(f scene.Frame)
}

// RenderFunc adapts a function to RenderSurface.
type RenderFunc func(f scene.Frame)

// Render calls fn(f).
func (fn RenderFunc) Render(f scene.Frame) { fn(f) }

// Surfaces fans a frame out to several surfaces in order.
type Surfaces []RenderSurface

// Render hands f to every non-nil surface.
func (s Surfaces) Render(f scene.Frame) {
	for _, surf := range s {
		if surf != nil {
			surf.Render(f)
		}
	}
}

// Observer receives timing and input notifications, typically for metrics.
type Observer interface {
	ObserveFrame(f scene.Frame, took time.Duration)
	ObservePointer(kind rotation.PointerKind, state rotation.State)
}

// Observers fans notifications out to several observers.
type Observers []Observer

// ObserveFrame notifies every observer.
func (o Observers) ObserveFrame(f scene.Frame, took time.Duration) {
	for _, obs := range o {
		obs.ObserveFrame(f, took)
	}
}

// ObservePointer notifies every observer.
func (o Observers) ObservePointer(kind rotation.PointerKind, state rotation.State) {
	for _, obs := range o {
		obs.ObservePointer(kind, state)
	}
}

// Config holds the animation constants of the loop.
type Config struct {
	PhaseStep    float64       // dash offset added to every route per tick
	PhaseSpacing float64       // initial offset between consecutive default routes
	MaxElapsed   time.Duration // cap on the elapsed time fed to one advance
}

// DefaultConfig returns the stock animation constants.
func DefaultConfig() Config {
	return Config{
		PhaseStep:    4,
		PhaseSpacing: scene.DefaultPhaseSpacing,
		MaxElapsed:   250 * time.Millisecond,
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithObserver sets an observer notified of frames and pointer events.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// WithClock overrides the time source used by Run.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithMaxTicks makes Run return after n ticks. Zero means no limit.
func WithMaxTicks(n uint64) Option {
	return func(s *Scheduler) { s.maxTicks = n }
}

// WithRoutes replaces the route set.
func WithRoutes(routes []scene.Route) Option {
	return func(s *Scheduler) { s.routes = append([]scene.Route(nil), routes...) }
}

// Scheduler owns every piece of mutable scene state. Like the rotation
// controller it drives, it is single-writer: all calls come from one goroutine.
type Scheduler struct {
	cfg      Config
	ctrl     *rotation.Controller
	builder  *scene.Builder
	surface  RenderSurface
	logger   *logging.Logger
	observer Observer
	now      func() time.Time
	maxTicks uint64

	initial projection.Rotation
	grid    scene.GraticuleConfig
	land    []geo.Ring
	routes  []scene.Route
	visitor *geo.Point

	tick     uint64
	lastTick time.Time
	frame    scene.Frame
}

// New creates a scheduler. Routes default to scene.DefaultRoutes staggered by
// cfg.PhaseSpacing.
func New(cfg Config, ctrl *rotation.Controller, builder *scene.Builder, surface RenderSurface, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		ctrl:    ctrl,
		builder: builder,
		surface: surface,
		logger:  logging.Discard(),
		now:     time.Now,
		initial: ctrl.Rotation(),
		grid:    builder.Graticule,
		routes:  scene.DefaultRoutes(cfg.PhaseSpacing),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.surface == nil {
		s.surface = Surfaces(nil)
	}
	return s
}

// Tick runs one update: advance unless dragging, build, render, then move
// every route's dash phase forward.
func (s *Scheduler) Tick(now time.Time) scene.Frame {
	if !s.ctrl.Dragging() {
		s.ctrl.Advance(now, s.elapsed(now))
	}
	s.lastTick = now

	f := s.render()

	for i := range s.routes {
		s.routes[i].Phase += s.cfg.PhaseStep
	}
	s.tick++
	return f
}

// elapsed is the time to feed Advance. The first tick counts as one frame.
func (s *Scheduler) elapsed(now time.Time) time.Duration {
	if s.lastTick.IsZero() {
		return s.ctrl.Config().FrameInterval
	}
	d := now.Sub(s.lastTick)
	if d < 0 {
		return 0
	}
	if s.cfg.MaxElapsed > 0 && d > s.cfg.MaxElapsed {
		return s.cfg.MaxElapsed
	}
	return d
}

// render builds a frame from the current state and hands it to the surface
// without advancing anything.
func (s *Scheduler) render() scene.Frame {
	start := time.Now()
	f := s.builder.Build(scene.Input{
		Tick:     s.tick,
		Rotation: s.ctrl.Rotation(),
		Motion:   s.ctrl.State(),
		Land:     s.land,
		Routes:   s.routes,
		Visitor:  s.visitor,
	})
	s.frame = f
	s.surface.Render(f)
	if s.observer != nil {
		s.observer.ObserveFrame(f, time.Since(start))
	}
	return f
}

// Redraw rebuilds and re-renders the current state.
func (s *Scheduler) Redraw() scene.Frame {
	return s.render()
}

// HandlePointer feeds a pointer event to the rotation controller. Moves
// during a drag redraw immediately.
func (s *Scheduler) HandlePointer(ev rotation.PointerEvent) rotation.State {
	wasDragging := s.ctrl.Dragging()
	st := s.ctrl.HandlePointerEvent(ev)
	if s.observer != nil {
		s.observer.ObservePointer(ev.Kind, st)
	}
	switch {
	case ev.Kind == rotation.PointerMove && wasDragging:
		s.render()
	case ev.Kind == rotation.PointerDown && st == rotation.StateDragging:
		s.logger.Debug("drag start at (%.0f, %.0f)", ev.X, ev.Y)
	case ev.Kind == rotation.PointerUp && wasDragging:
		v := s.ctrl.Velocity()
		s.logger.Debug("drag end, velocity %.3f°/frame", v.Magnitude())
	}
	return st
}

// SetVisitorLocation shows the visitor pin at lon/lat and redraws.
// Latitude is clamped to [-90, 90].
func (s *Scheduler) SetVisitorLocation(lon, lat float64) {
	p := geo.Point{Lon: lon, Lat: geo.ClampLat(lat)}
	s.visitor = &p
	s.logger.Info("visitor pin at %.3f, %.3f", p.Lon, p.Lat)
	s.render()
}

// ClearVisitorLocation hides the visitor pin and redraws.
func (s *Scheduler) ClearVisitorLocation() {
	s.visitor = nil
	s.logger.Info("visitor pin cleared")
	s.render()
}

// Visitor returns the current visitor pin, if any.
func (s *Scheduler) Visitor() (geo.Point, bool) {
	if s.visitor == nil {
		return geo.Point{}, false
	}
	return *s.visitor, true
}

// SetLand replaces the land rings and redraws.
func (s *Scheduler) SetLand(rings []geo.Ring) {
	s.land = append([]geo.Ring(nil), rings...)
	s.render()
}

// Nudge flicks the globe by a velocity in degrees per frame and redraws.
func (s *Scheduler) Nudge(dLon, dLat float64, now time.Time) {
	s.ctrl.Nudge(dLon, dLat, now)
	s.render()
}

// Reset returns the globe to its initial rotation and steady autorotation.
func (s *Scheduler) Reset() {
	s.ctrl.Reset(s.initial)
	s.render()
}

// Frame returns the most recently built frame.
func (s *Scheduler) Frame() scene.Frame { return s.frame }

// Routes returns a copy of the routes with their current phases.
func (s *Scheduler) Routes() []scene.Route {
	return append([]scene.Route(nil), s.routes...)
}

// View returns the screen geometry frames are built for.
func (s *Scheduler) View() projection.View { return s.builder.View }

// Rotation returns the current rotation.
func (s *Scheduler) Rotation() projection.Rotation { return s.ctrl.Rotation() }

// State returns the rotation controller's state.
func (s *Scheduler) State() rotation.State { return s.ctrl.State() }

// Velocity returns the current angular velocity.
func (s *Scheduler) Velocity() rotation.Velocity { return s.ctrl.Velocity() }

// Graticule reports whether the reference grid is drawn.
func (s *Scheduler) Graticule() bool {
	g := s.builder.Graticule
	return g.LatStep > 0 && g.LonStep > 0 && g.SampleStep > 0
}

// SetGraticule shows or hides the reference grid and redraws.
func (s *Scheduler) SetGraticule(on bool) {
	if on {
		s.builder.Graticule = s.grid
	} else {
		s.builder.Graticule = scene.GraticuleConfig{}
	}
	s.render()
}

// Command is a state change applied on the loop goroutine between ticks.
type Command func(s *Scheduler)

// SetVisitor returns a command that sets the visitor pin.
func SetVisitor(lon, lat float64) Command {
	return func(s *Scheduler) { s.SetVisitorLocation(lon, lat) }
}

// ClearVisitor returns a command that hides the visitor pin.
func ClearVisitor() Command {
	return func(s *Scheduler) { s.ClearVisitorLocation() }
}

// Pointer returns a command that feeds a pointer event.
func Pointer(ev rotation.PointerEvent) Command {
	return func(s *Scheduler) { s.HandlePointer(ev) }
}

// Land returns a command that replaces the land rings.
func Land(rings []geo.Ring) Command {
	return func(s *Scheduler) { s.SetLand(rings) }
}

// Queue hands commands to a running loop from other goroutines. It
// satisfies the control API's Commander.
type Queue struct {
	ctx context.Context
	ch  chan<- Command
}

// NewQueue creates a queue feeding ch. Sends give up once ctx is done.
func NewQueue(ctx context.Context, ch chan<- Command) Queue {
	return Queue{ctx: ctx, ch: ch}
}

// Send blocks until the loop accepts c or ctx is done. It reports whether
// c was accepted.
func (q Queue) Send(c Command) bool {
	select {
	case q.ch <- c:
		return true
	case <-q.ctx.Done():
		return false
	}
}

// SetVisitorLocation queues SetVisitor.
func (q Queue) SetVisitorLocation(lon, lat float64) { q.Send(SetVisitor(lon, lat)) }

// ClearVisitorLocation queues ClearVisitor.
func (q Queue) ClearVisitorLocation() { q.Send(ClearVisitor()) }

// Run ticks every interval and applies commands between ticks until ctx is
// done, returning ctx.Err(), or until the WithMaxTicks limit is reached,
// returning nil.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, commands <-chan Command) error {
	if interval <= 0 {
		interval = s.ctrl.Config().FrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler running at %v per frame", interval)
	s.Tick(s.now())

	for {
		if s.maxTicks > 0 && s.tick >= s.maxTicks {
			s.logger.Info("scheduler finished after %d ticks", s.tick)
			return nil
		}
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped after %d ticks", s.tick)
			return ctx.Err()
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			if cmd != nil {
				cmd(s)
			}
		case <-ticker.C:
			s.Tick(s.now())
		}
	}
}
