// Package canvas rasterizes globe frames into coloured braille text.
package canvas

import (
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/litescript/ls-globe/internal/projection"
	"github.com/litescript/ls-globe/internal/scene"
)

// DefaultDashLength is the lit length of a route's travelling dash, in view pixels.
const DefaultDashLength = 6

// Palette holds the colours of each layer.
type Palette struct {
	Graticule  lipgloss.Color
	Limb       lipgloss.Color
	Land       lipgloss.Color
	RouteFrom  string // hex, start of the per-route gradient
	RouteTo    string // hex, end of the per-route gradient
	Dash       lipgloss.Color
	Hub        lipgloss.Color
	Visitor    lipgloss.Color
	Background lipgloss.Color
}

// DefaultPalette is a dim blue globe with bright route dashes.
func DefaultPalette() Palette {
	return Palette{
		Graticule: "238",
		Limb:      "61",
		Land:      "#5f87af",
		RouteFrom: "#6f8cff",
		RouteTo:   "#c89cff",
		Dash:      "#ffffff",
		Hub:       "229",
		Visitor:   "#ff5f87",
	}
}

// Raster turns frames into text.
type Raster struct {
	Cols, Rows int
	Color      bool
	Palette    Palette
	DashLength float64
	ShowRoutes bool // draw the full route under the dash
}

// NewRaster creates a colour raster of cols x rows cells.
func NewRaster(cols, rows int) Raster {
	return Raster{
		Cols:       cols,
		Rows:       rows,
		Color:      true,
		Palette:    DefaultPalette(),
		DashLength: DefaultDashLength,
		ShowRoutes: true,
	}
}

// Draw rasterizes f into a buffer.
func (r Raster) Draw(f scene.Frame) *Buffer {
	buf := NewBuffer(r.Cols, r.Rows)
	m := NewMapping(f.View, r.Cols, r.Rows)
	if m.Scale() <= 0 {
		return buf
	}

	for _, p := range f.Graticule {
		drawPath(buf, m, p, LayerGraticule, 0)
	}
	drawLimb(buf, m)
	for _, o := range f.Land {
		drawOutline(buf, m, o)
	}
	for i, rp := range f.Routes {
		if r.ShowRoutes {
			drawPath(buf, m, rp.Path, LayerRoute, i)
		}
		r.drawDash(buf, m, rp, i)
	}
	for _, h := range f.Hubs {
		drawDot(buf, m, h, 1, LayerHub)
	}
	if f.Visitor != nil {
		drawDot(buf, m, *f.Visitor, 2, LayerVisitor)
	}
	return buf
}

// Lines rasterizes f and renders it, coloured when r.Color is set.
func (r Raster) Lines(f scene.Frame) []string {
	buf := r.Draw(f)
	if !r.Color {
		return buf.Lines()
	}
	return r.colorize(buf, len(f.Routes))
}

func drawPath(buf *Buffer, m Mapping, p projection.Path, layer Layer, tint int) {
	for _, run := range p {
		drawRun(buf, m, run, layer, tint)
	}
}

func drawRun(buf *Buffer, m Mapping, run projection.Run, layer Layer, tint int) {
	if len(run) == 1 {
		x, y := m.ToMicro(run[0])
		buf.Set(x, y, layer, tint)
		return
	}
	for i := 1; i < len(run); i++ {
		x0, y0 := m.ToMicro(run[i-1])
		x1, y1 := m.ToMicro(run[i])
		buf.Line(x0, y0, x1, y1, layer, tint)
	}
}

func drawOutline(buf *Buffer, m Mapping, o scene.Outline) {
	for i := range o {
		a := o[i]
		b := o[(i+1)%len(o)]
		x0, y0 := m.ToMicro(a)
		x1, y1 := m.ToMicro(b)
		buf.Line(x0, y0, x1, y1, LayerLand, 0)
	}
}

func drawLimb(buf *Buffer, m Mapping) {
	v := m.View
	// About one sample per micro-pixel of circumference.
	n := int(2*math.Pi*v.Radius*m.Scale()) + 8
	px, py := m.ToMicro(projection.ScreenPoint{X: v.CenterX + v.Radius, Y: v.CenterY})
	for i := 1; i <= n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		s, c := math.Sincos(a)
		x, y := m.ToMicro(projection.ScreenPoint{X: v.CenterX + v.Radius*c, Y: v.CenterY + v.Radius*s})
		buf.Line(px, py, x, y, LayerLimb, 0)
		px, py = x, y
	}
}

func drawDot(buf *Buffer, m Mapping, p projection.ScreenPoint, size int, layer Layer) {
	x, y := m.ToMicro(p)
	for dy := -size + 1; dy < size; dy++ {
		for dx := -size + 1; dx < size; dx++ {
			buf.Set(x+dx, y+dy, layer, 0)
		}
	}
	if size == 1 {
		buf.Set(x+1, y, layer, 0)
		buf.Set(x, y+1, layer, 0)
	}
}

// drawDash lights the part of a route covered by its travelling dash. The
// dash pattern is DashLength on, route length off, shifted by the route's
// phase; a point at distance s along the path is lit when
// (s + phase) mod (DashLength + length) < DashLength.
func (r Raster) drawDash(buf *Buffer, m Mapping, rp scene.RoutePath, tint int) {
	dash := r.DashLength
	if dash <= 0 {
		return
	}
	length := rp.Path.Length()
	period := dash + length
	if period <= 0 {
		return
	}

	var s float64
	for _, run := range rp.Path {
		for i := 1; i < len(run); i++ {
			a, b := run[i-1], run[i]
			seg := math.Hypot(b.X-a.X, b.Y-a.Y)
			if seg == 0 {
				continue
			}
			// Sample the segment finely enough to hit each micro-pixel.
			steps := int(seg*m.Scale()) + 1
			for k := 0; k <= steps; k++ {
				t := float64(k) / float64(steps)
				if math.Mod(s+t*seg+rp.Phase, period) >= dash {
					continue
				}
				x, y := m.ToMicro(projection.ScreenPoint{X: a.X + t*(b.X-a.X), Y: a.Y + t*(b.Y-a.Y)})
				buf.Set(x, y, LayerDash, tint)
			}
			s += seg
		}
	}
}

// routeColor blends the palette gradient for route i of n.
func (p Palette) routeColor(i, n int) lipgloss.Color {
	from, err1 := colorful.Hex(p.RouteFrom)
	to, err2 := colorful.Hex(p.RouteTo)
	if err1 != nil || err2 != nil {
		return lipgloss.Color(p.RouteFrom)
	}
	t := 0.0
	if n > 1 {
		t = float64(i) / float64(n-1)
	}
	return lipgloss.Color(from.BlendLab(to, t).Clamped().Hex())
}

func (r Raster) cellColor(c cell, routes []lipgloss.Color) lipgloss.Color {
	switch c.layer {
	case LayerGraticule:
		return r.Palette.Graticule
	case LayerLimb:
		return r.Palette.Limb
	case LayerLand:
		return r.Palette.Land
	case LayerRoute:
		if c.tint >= 0 && c.tint < len(routes) {
			return routes[c.tint]
		}
		return lipgloss.Color(r.Palette.RouteFrom)
	case LayerDash:
		return r.Palette.Dash
	case LayerHub:
		return r.Palette.Hub
	case LayerVisitor:
		return r.Palette.Visitor
	}
	return r.Palette.Background
}

// colorize renders rows, styling runs of same-coloured cells together.
func (r Raster) colorize(buf *Buffer, nRoutes int) []string {
	routes := make([]lipgloss.Color, nRoutes)
	for i := range routes {
		routes[i] = r.Palette.routeColor(i, nRoutes)
	}

	out := make([]string, buf.h)
	for y := 0; y < buf.h; y++ {
		var b strings.Builder
		var run []rune
		var runCol lipgloss.Color
		flush := func() {
			if len(run) == 0 {
				return
			}
			if runCol == "" {
				b.WriteString(string(run))
			} else {
				b.WriteString(lipgloss.NewStyle().Foreground(runCol).Render(string(run)))
			}
			run = run[:0]
		}
		for x := 0; x < buf.w; x++ {
			c := buf.cells[y][x]
			var col lipgloss.Color
			if c.mask != 0 {
				col = r.cellColor(c, routes)
			}
			if col != runCol {
				flush()
				runCol = col
			}
			run = append(run, buf.Rune(x, y))
		}
		flush()
		out[y] = b.String()
	}
	return out
}

// Surface is a render surface holding the latest rasterized frame.
type Surface struct {
	mu     sync.RWMutex
	raster Raster
	frame  *scene.Frame
	lines  []string
}

// NewSurface creates a surface drawing with r.
func NewSurface(r Raster) *Surface {
	return &Surface{raster: r}
}

// Render rasterizes f.
func (s *Surface) Render(f scene.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = &f
	s.lines = s.raster.Lines(f)
}

// SetSize changes the raster size and redraws the last frame.
func (s *Surface) SetSize(cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raster.Cols = cols
	s.raster.Rows = rows
	if s.frame != nil {
		s.lines = s.raster.Lines(*s.frame)
	}
}

// SetColor toggles ANSI colouring.
func (s *Surface) SetColor(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raster.Color = on
}

// Mapping returns the view-to-cell mapping for the last frame's view.
func (s *Surface) Mapping(view projection.View) Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return NewMapping(view, s.raster.Cols, s.raster.Rows)
}

// Lines returns a copy of the rendered rows.
func (s *Surface) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.lines...)
}

// String returns the rendered frame as one block of text.
func (s *Surface) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.Join(s.lines, "\n")
}
