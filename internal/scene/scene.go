// Package scene assembles one frame of projected globe geometry.
package scene

import (
	"github.com/litescript/ls-globe/internal/geo"
	"github.com/litescript/ls-globe/internal/projection"
	"github.com/litescript/ls-globe/internal/rotation"
)

// Route is an animated great-circle connection between two hubs.
// Phase is a dash offset in view pixels; it grows without bound.
type Route struct {
	Name  string
	From  geo.Point
	To    geo.Point
	Phase float64
}

// RoutePath is the projected form of one route.
type RoutePath struct {
	Name     string
	Path     projection.Path
	Phase    float64
	LengthKm float64
}

// Outline is a closed land outline through the visible vertices of a ring.
type Outline []projection.ScreenPoint

// Frame is the read-only geometry of one tick.
type Frame struct {
	Tick      uint64
	Rotation  projection.Rotation
	Motion    rotation.State // controller state when the frame was built
	View      projection.View
	Graticule []projection.Path
	Land      []Outline
	Routes    []RoutePath
	Hubs      []projection.ScreenPoint
	Visitor   *projection.ScreenPoint
}

// GraticuleConfig controls the reference grid.
type GraticuleConfig struct {
	LatStep       float64 // spacing between parallels
	LonStep       float64 // spacing between meridians
	SampleStep    float64 // sampling density along each line
	ParallelLimit float64 // parallels are drawn within ±ParallelLimit
}

// DefaultGraticule draws parallels every 15° up to ±60°,
// meridians every 15°, sampled every 3°.
func DefaultGraticule() GraticuleConfig {
	return GraticuleConfig{
		LatStep:       15,
		LonStep:       15,
		SampleStep:    3,
		ParallelLimit: 60,
	}
}

// Builder projects geographic inputs into frames.
type Builder struct {
	View        projection.View
	Graticule   GraticuleConfig
	ArcSegments int
}

// NewBuilder creates a builder with the default grid and 90 arc segments.
func NewBuilder(view projection.View) *Builder {
	return &Builder{
		View:        view,
		Graticule:   DefaultGraticule(),
		ArcSegments: 90,
	}
}

// Input is everything a frame is built from.
type Input struct {
	Tick     uint64
	Rotation projection.Rotation
	Motion   rotation.State
	Land     []geo.Ring
	Routes   []Route
	Visitor  *geo.Point
}

// Build produces a fresh frame. It never mutates its input.
func (b *Builder) Build(in Input) Frame {
	r := in.Rotation.Clamped()
	f := Frame{
		Tick:      in.Tick,
		Rotation:  r,
		Motion:    in.Motion,
		View:      b.View,
		Graticule: b.graticule(r),
		Land:      b.land(in.Land, r),
	}

	f.Routes, f.Hubs = b.routes(in.Routes, r)

	if in.Visitor != nil {
		if pt, ok := b.View.Project(*in.Visitor, r); ok {
			f.Visitor = &pt
		}
	}
	return f
}

func (b *Builder) graticule(r projection.Rotation) []projection.Path {
	g := b.Graticule
	if g.LatStep <= 0 || g.LonStep <= 0 || g.SampleStep <= 0 {
		return nil
	}

	var out []projection.Path
	// Parallels
	for lat := -g.ParallelLimit; lat <= g.ParallelLimit; lat += g.LatStep {
		var pb projection.PathBuilder
		for lon := -180.0; lon <= 180; lon += g.SampleStep {
			pb.Add(b.View.Project(geo.Point{Lon: lon, Lat: lat}, r))
		}
		if p := pb.Path(); !p.Empty() {
			out = append(out, p)
		}
	}
	// Meridians
	for lon := -180.0; lon <= 180; lon += g.LonStep {
		var pb projection.PathBuilder
		for lat := -90.0; lat <= 90; lat += g.SampleStep {
			pb.Add(b.View.Project(geo.Point{Lon: lon, Lat: lat}, r))
		}
		if p := pb.Path(); !p.Empty() {
			out = append(out, p)
		}
	}
	return out
}

func (b *Builder) land(rings []geo.Ring, r projection.Rotation) []Outline {
	var out []Outline
	for _, ring := range rings {
		outline := make(Outline, 0, len(ring))
		for _, p := range ring {
			if pt, ok := b.View.Project(p, r); ok {
				outline = append(outline, pt)
			}
		}
		// Fewer than 3 visible vertices cannot enclose anything.
		if len(outline) < 3 {
			continue
		}
		out = append(out, outline)
	}
	return out
}

func (b *Builder) routes(routes []Route, r projection.Rotation) ([]RoutePath, []projection.ScreenPoint) {
	var paths []RoutePath
	var hubs []projection.ScreenPoint
	var seen []geo.Point

	addHub := func(p geo.Point) {
		for _, s := range seen {
			if geo.SameLocation(s, p) {
				return
			}
		}
		seen = append(seen, p)
		if pt, ok := b.View.Project(p, r); ok {
			hubs = append(hubs, pt)
		}
	}

	for _, rt := range routes {
		addHub(rt.From)
		addHub(rt.To)

		path := b.View.GreatCircleArc(rt.From, rt.To, r, b.ArcSegments)
		if path.Empty() {
			continue
		}
		paths = append(paths, RoutePath{
			Name:     rt.Name,
			Path:     path,
			Phase:    rt.Phase,
			LengthKm: geo.DistanceKm(rt.From, rt.To),
		})
	}
	return paths, hubs
}
