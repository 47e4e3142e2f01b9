package scene

import (
	"encoding/json"
	"io"

	"github.com/litescript/ls-globe/internal/projection"
)

// FrameExport is the JSON-serializable representation of a frame.
type FrameExport struct {
	Tick      uint64                   `json:"tick"`
	Rotation  projection.Rotation      `json:"rotation"`
	Motion    string                   `json:"motion"`
	View      ViewExport               `json:"view"`
	Graticule [][][]float64            `json:"graticule"`
	Land      [][][]float64            `json:"land"`
	Routes    []RouteExport            `json:"routes"`
	Hubs      []projection.ScreenPoint `json:"hubs"`
	Visitor   *projection.ScreenPoint  `json:"visitor,omitempty"`
}

// ViewExport describes the view-space geometry the coordinates refer to.
type ViewExport struct {
	Radius  float64 `json:"radius"`
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
}

// RouteExport is a JSON-friendly projected route.
// Runs are separate polylines; never join one run to the next.
type RouteExport struct {
	Name     string        `json:"name"`
	Runs     [][][]float64 `json:"runs"`
	Phase    float64       `json:"phase"`
	LengthKm float64       `json:"length_km"`
}

// Export converts a frame to its exportable form.
func Export(f Frame) *FrameExport {
	out := &FrameExport{
		Tick:     f.Tick,
		Rotation: f.Rotation,
		Motion:   f.Motion.String(),
		View: ViewExport{
			Radius:  f.View.Radius,
			CenterX: f.View.CenterX,
			CenterY: f.View.CenterY,
		},
		Graticule: make([][][]float64, 0),
		Land:      make([][][]float64, 0, len(f.Land)),
		Routes:    make([]RouteExport, 0, len(f.Routes)),
		Hubs:      append([]projection.ScreenPoint{}, f.Hubs...),
	}

	for _, p := range f.Graticule {
		out.Graticule = append(out.Graticule, runsToArrays(p)...)
	}
	for _, o := range f.Land {
		out.Land = append(out.Land, pointsToArray(o))
	}
	for _, r := range f.Routes {
		out.Routes = append(out.Routes, RouteExport{
			Name:     r.Name,
			Runs:     runsToArrays(r.Path),
			Phase:    r.Phase,
			LengthKm: r.LengthKm,
		})
	}
	if f.Visitor != nil {
		v := *f.Visitor
		out.Visitor = &v
	}
	return out
}

// WriteJSON writes the frame as indented JSON.
func (e *FrameExport) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

func runsToArrays(p projection.Path) [][][]float64 {
	out := make([][][]float64, 0, len(p))
	for _, run := range p {
		out = append(out, pointsToArray(run))
	}
	return out
}

func pointsToArray(pts []projection.ScreenPoint) [][]float64 {
	out := make([][]float64, len(pts))
	for i, p := range pts {
		out[i] = []float64{round1(p.X), round1(p.Y)}
	}
	return out
}

// round1 keeps one decimal, matching the precision of an SVG path.
func round1(v float64) float64 {
	return float64(int64(v*10+sign(v)*0.5)) / 10
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
