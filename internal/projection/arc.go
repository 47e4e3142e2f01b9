package projection

import (
	"math"

	"github.com/litescript/ls-globe/internal/geo"
)

// arcEpsilon is the angular separation (radians) below which arc endpoints
// are considered coincident.
const arcEpsilon = 1e-7

// Run is a sequence of consecutive visible points, drawn as connected segments.
type Run []ScreenPoint

// Path is a polyline broken into visible runs, in parametric order.
// Consumers must never join the last point of one run to the first of the next.
type Path []Run

// Empty reports whether the path has no visible points.
func (p Path) Empty() bool {
	for _, r := range p {
		if len(r) > 0 {
			return false
		}
	}
	return true
}

// Points flattens the path into its visible points, preserving order.
func (p Path) Points() []ScreenPoint {
	var n int
	for _, r := range p {
		n += len(r)
	}
	out := make([]ScreenPoint, 0, n)
	for _, r := range p {
		out = append(out, r...)
	}
	return out
}

// Length returns the summed on-screen length of all runs.
func (p Path) Length() float64 {
	var total float64
	for _, r := range p {
		for i := 1; i < len(r); i++ {
			total += math.Hypot(r[i].X-r[i-1].X, r[i].Y-r[i-1].Y)
		}
	}
	return total
}

// PathBuilder accumulates projected samples, opening a new run after every gap.
type PathBuilder struct {
	path Path
	cur  Run
}

// Add appends a sample. An invisible sample closes the current run.
func (b *PathBuilder) Add(pt ScreenPoint, visible bool) {
	if !visible {
		b.flush()
		return
	}
	b.cur = append(b.cur, pt)
}

func (b *PathBuilder) flush() {
	if len(b.cur) > 0 {
		b.path = append(b.path, b.cur)
		b.cur = nil
	}
}

// Path returns the finished path.
func (b *PathBuilder) Path() Path {
	b.flush()
	return b.path
}

// GreatCircleArc samples the great circle from a to b with segments+1 slerp
// samples and projects each one. Samples on the far hemisphere are omitted and
// split the result into runs. Coincident (or antipodal) endpoints give an empty path.
func (v View) GreatCircleArc(a, b geo.Point, r Rotation, segments int) Path {
	if segments < 1 {
		segments = 1
	}

	va := a.Vector()
	vb := b.Vector()
	omega := math.Acos(geo.Clamp(va.Dot(vb), -1, 1))
	// acos near 1 amplifies rounding to ~1e-8, so coincidence needs a band.
	if omega < arcEpsilon {
		return nil
	}
	// Antipodal: every great circle through a passes through b.
	if math.Pi-omega < arcEpsilon {
		return nil
	}
	sinOmega := math.Sin(omega)

	var pb PathBuilder
	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		s1 := math.Sin((1-t)*omega) / sinOmega
		s2 := math.Sin(t*omega) / sinOmega
		p := va.Scale(s1).Add(vb.Scale(s2)).Normalized()
		pb.Add(v.Project(p.LonLat(), r))
	}
	return pb.Path()
}
