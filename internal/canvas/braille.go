package canvas

// Layer orders what is drawn in a cell. A cell takes the colour of the
// highest layer that touched it.
type Layer uint8

const (
	LayerNone Layer = iota
	LayerGraticule
	LayerLimb
	LayerLand
	LayerRoute
	LayerDash
	LayerHub
	LayerVisitor
)

type cell struct {
	mask  uint8
	layer Layer
	tint  int // route index for LayerRoute/LayerDash
}

// Buffer is a braille raster: each terminal cell holds a 2x4 grid of
// micro-pixels.
type Buffer struct {
	w, h  int // in cells
	cells [][]cell
}

// NewBuffer creates a blank buffer of w x h cells.
func NewBuffer(w, h int) *Buffer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	cells := make([][]cell, h)
	for i := range cells {
		cells[i] = make([]cell, w)
	}
	return &Buffer{w: w, h: h, cells: cells}
}

// Size returns the buffer size in cells.
func (b *Buffer) Size() (int, int) { return b.w, b.h }

// MicroSize returns the buffer size in micro-pixels.
func (b *Buffer) MicroSize() (int, int) { return b.w * 2, b.h * 4 }

// dotBits maps a micro-pixel position within a cell to its braille dot.
var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// Set turns on the micro-pixel at (mx, my). Out of range pixels are ignored.
func (b *Buffer) Set(mx, my int, layer Layer, tint int) {
	if mx < 0 || my < 0 {
		return
	}
	cx, rx := mx/2, mx%2
	cy, ry := my/4, my%4
	if cy >= b.h || cx >= b.w {
		return
	}
	c := &b.cells[cy][cx]
	c.mask |= dotBits[rx][ry]
	if layer >= c.layer {
		c.layer = layer
		c.tint = tint
	}
}

// Line draws a Bresenham line between two micro-pixels.
func (b *Buffer) Line(x0, y0, x1, y1 int, layer Layer, tint int) {
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		b.Set(x0, y0, layer, tint)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Rune returns the braille glyph of a cell, or a space when empty.
func (b *Buffer) Rune(cx, cy int) rune {
	mask := b.cells[cy][cx].mask
	if mask == 0 {
		return ' '
	}
	return rune(0x2800 + int(mask))
}

// Lines renders the buffer as plain text, one string per row.
func (b *Buffer) Lines() []string {
	out := make([]string, b.h)
	for y := 0; y < b.h; y++ {
		row := make([]rune, b.w)
		for x := 0; x < b.w; x++ {
			row[x] = b.Rune(x, y)
		}
		out[y] = string(row)
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
