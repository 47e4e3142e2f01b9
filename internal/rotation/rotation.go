// Package rotation owns the globe's rotation state and the pointer-driven
// physics around it: dragging, inertial decay and idle autorotation.
package rotation

import (
	"math"
	"time"

	"github.com/litescript/ls-globe/internal/geo"
	"github.com/litescript/ls-globe/internal/projection"
)

// State is the controller's motion state.
type State int

const (
	StateAutorotate State = iota // steady idle spin (initial)
	StateDragging                // driven directly by pointer moves
	StateDecaying                // coasting on residual velocity after release
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAutorotate:
		return "autorotate"
	case StateDragging:
		return "dragging"
	case StateDecaying:
		return "decaying"
	default:
		return "unknown"
	}
}

// PointerKind identifies a pointer event.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
)

// String returns the event kind name.
func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	default:
		return "unknown"
	}
}

// PointerEvent is a normalized mouse or touch event in view-space pixels.
type PointerEvent struct {
	Kind PointerKind
	X, Y float64
	Time time.Time
}

// DragSample is the last observed pointer position.
type DragSample struct {
	X, Y float64
	Time time.Time
}

// Velocity is an angular speed in degrees per frame.
type Velocity struct {
	VLon float64 `json:"v_lon"`
	VLat float64 `json:"v_lat"`
}

// Magnitude returns the speed regardless of direction.
func (v Velocity) Magnitude() float64 {
	return math.Hypot(v.VLon, v.VLat)
}

// clamped limits the magnitude to max, keeping the direction.
func (v Velocity) clamped(max float64) Velocity {
	m := v.Magnitude()
	if m <= max || m == 0 {
		return v
	}
	s := max / m
	return Velocity{VLon: v.VLon * s, VLat: v.VLat * s}
}

// Config holds the tuning constants of the controller.
type Config struct {
	AutoRotateSpeed float64       // degrees per frame while idle
	FrameInterval   time.Duration // nominal frame length that "per frame" refers to
	MaxSpeed        float64       // magnitude cap, degrees per frame
	DecayRate       float64       // exponential damping rate, 1/s
	ResumeDelay     time.Duration // quiet time after input before autorotate resumes
	DegreesPerPixel float64       // drag sensitivity at the equator
	LatitudeFloor   float64       // floor of the cos(lat0) drag compensation
	StopThreshold   float64       // speed below which coasting counts as stopped
}

// DefaultConfig returns the stock tuning at 60 fps.
func DefaultConfig() Config {
	return Config{
		AutoRotateSpeed: 0.12,
		FrameInterval:   time.Second / 60,
		MaxSpeed:        6,
		DecayRate:       2.45, // ≈ 0.96 per frame at 60 fps
		ResumeDelay:     1500 * time.Millisecond,
		DegreesPerPixel: 0.36, // 180° across a 500px view
		LatitudeFloor:   0.25,
		StopThreshold:   0.001,
	}
}

// Controller is the single writer of rotation and velocity state.
// It is not safe for concurrent use; callers drive it from one goroutine.
type Controller struct {
	cfg Config

	rot       projection.Rotation
	vel       Velocity
	state     State
	last      DragSample
	idleUntil time.Time
}

// New creates a controller in the autorotate state.
func New(cfg Config, initial projection.Rotation) *Controller {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultConfig().FrameInterval
	}
	return &Controller{
		cfg:   cfg,
		rot:   initial.Clamped(),
		state: StateAutorotate,
	}
}

// Rotation returns the current view center.
func (c *Controller) Rotation() projection.Rotation { return c.rot }

// Velocity returns the current angular velocity.
func (c *Controller) Velocity() Velocity { return c.vel }

// State returns the current motion state.
func (c *Controller) State() State { return c.state }

// Dragging reports whether a pointer is currently held down.
func (c *Controller) Dragging() bool { return c.state == StateDragging }

// IdleUntil returns the time after which autorotation blends back in.
func (c *Controller) IdleUntil() time.Time { return c.idleUntil }

// Config returns the controller's tuning.
func (c *Controller) Config() Config { return c.cfg }

// HandlePointerEvent applies one pointer event and returns the resulting state.
func (c *Controller) HandlePointerEvent(ev PointerEvent) State {
	switch ev.Kind {
	case PointerDown:
		c.state = StateDragging
		c.vel = Velocity{}
		c.last = DragSample{X: ev.X, Y: ev.Y, Time: ev.Time}
		c.touch(ev.Time)

	case PointerMove:
		if c.state != StateDragging {
			return c.state
		}
		c.drag(ev)
		c.touch(ev.Time)

	case PointerUp:
		if c.state != StateDragging {
			return c.state
		}
		c.state = StateDecaying
		c.touch(ev.Time)
	}
	return c.state
}

func (c *Controller) drag(ev PointerEvent) {
	dx := ev.X - c.last.X
	dy := ev.Y - c.last.Y
	k := c.dragScale()

	dLon := -dx * k
	dLat := dy * k
	c.rot.Lon0 += dLon
	c.rot.Lat0 = geo.ClampLat(c.rot.Lat0 + dLat)

	// The last step becomes the coasting velocity, in degrees per frame.
	c.vel = Velocity{VLon: dLon, VLat: dLat}.clamped(c.cfg.MaxSpeed)

	c.last = DragSample{X: ev.X, Y: ev.Y, Time: ev.Time}
}

// dragScale converts screen pixels to degrees at the current latitude.
func (c *Controller) dragScale() float64 {
	comp := math.Cos(geo.DegToRad(c.rot.Lat0))
	return c.cfg.DegreesPerPixel * math.Max(c.cfg.LatitudeFloor, comp)
}

func (c *Controller) touch(now time.Time) {
	c.idleUntil = now.Add(c.cfg.ResumeDelay)
}

// Advance moves the globe autonomously by elapsed time. It does nothing
// while dragging, since pointer moves drive the rotation directly then.
func (c *Controller) Advance(now time.Time, elapsed time.Duration) {
	if elapsed <= 0 || c.state == StateDragging {
		return
	}
	frames := float64(elapsed) / float64(c.cfg.FrameInterval)

	switch c.state {
	case StateAutorotate:
		c.rot.Lon0 += c.cfg.AutoRotateSpeed * frames

	case StateDecaying:
		damp := math.Exp(-elapsed.Seconds() * c.cfg.DecayRate)
		c.vel = Velocity{VLon: c.vel.VLon * damp, VLat: c.vel.VLat * damp}.clamped(c.cfg.MaxSpeed)

		c.rot.Lon0 += c.vel.VLon * frames
		c.rot.Lat0 = geo.ClampLat(c.rot.Lat0 + c.vel.VLat*frames)

		if now.After(c.idleUntil) {
			c.rot.Lon0 += c.cfg.AutoRotateSpeed * frames
			if c.vel.Magnitude() < c.cfg.StopThreshold {
				c.vel = Velocity{}
				c.state = StateAutorotate
			}
		}
	}
}

// Nudge imparts a velocity (degrees per frame) as if the globe had been
// flicked, and lets it coast.
func (c *Controller) Nudge(dLon, dLat float64, now time.Time) {
	if c.state == StateDragging {
		return
	}
	v := Velocity{VLon: c.vel.VLon + dLon, VLat: c.vel.VLat + dLat}
	c.vel = v.clamped(c.cfg.MaxSpeed)
	c.state = StateDecaying
	c.touch(now)
}

// Reset recenters the view and returns to steady autorotation.
func (c *Controller) Reset(r projection.Rotation) {
	c.rot = r.Clamped()
	c.vel = Velocity{}
	c.state = StateAutorotate
	c.idleUntil = time.Time{}
}
