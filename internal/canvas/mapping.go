package canvas

import (
	"math"

	"github.com/litescript/ls-globe/internal/projection"
)

// margin leaves a little room around the limb.
const margin = 1.04

// Mapping scales view space onto a braille grid of cols x rows cells so the
// globe's disc fits and stays round (micro-pixels are roughly square).
type Mapping struct {
	View  projection.View
	Cols  int
	Rows  int
	scale float64 // micro-pixels per view pixel
}

// NewMapping fits view into cols x rows cells.
func NewMapping(view projection.View, cols, rows int) Mapping {
	m := Mapping{View: view, Cols: cols, Rows: rows}
	if cols > 0 && rows > 0 && view.Radius > 0 {
		m.scale = math.Min(float64(cols*2), float64(rows*4)) / (2 * view.Radius * margin)
	}
	return m
}

// Scale returns micro-pixels per view pixel.
func (m Mapping) Scale() float64 { return m.scale }

// ToMicro maps a view-space point to micro-pixel coordinates.
func (m Mapping) ToMicro(p projection.ScreenPoint) (int, int) {
	mx := float64(m.Cols) + (p.X-m.View.CenterX)*m.scale
	my := float64(m.Rows*2) + (p.Y-m.View.CenterY)*m.scale
	return int(math.Floor(mx)), int(math.Floor(my))
}

// CellToView maps the centre of a terminal cell back to view space. It
// reports false when the mapping is degenerate.
func (m Mapping) CellToView(col, row int) (float64, float64, bool) {
	if m.scale <= 0 {
		return 0, 0, false
	}
	mx := float64(col*2) + 1
	my := float64(row*4) + 2
	x := m.View.CenterX + (mx-float64(m.Cols))/m.scale
	y := m.View.CenterY + (my-float64(m.Rows*2))/m.scale
	return x, y, true
}
