// Package projection maps geographic points onto an orthographic globe view.
package projection

import (
	"math"

	"github.com/litescript/ls-globe/internal/geo"
)

// View is the fixed screen geometry of the globe.
type View struct {
	Radius  float64 // sphere radius in view pixels
	CenterX float64 // view-space X of the globe center
	CenterY float64 // view-space Y of the globe center
}

// DefaultView returns the 500x500 view box.
func DefaultView() View {
	return View{Radius: 165, CenterX: 250, CenterY: 250}
}

// Rotation is the geographic coordinate currently centered in the view, in degrees.
type Rotation struct {
	Lon0 float64 `json:"lon0"`
	Lat0 float64 `json:"lat0"`
}

// Clamped returns the rotation with Lat0 limited to [-90, 90].
func (r Rotation) Clamped() Rotation {
	r.Lat0 = geo.ClampLat(r.Lat0)
	return r
}

// Center returns the view center as a geographic point.
func (r Rotation) Center() geo.Point {
	return geo.Point{Lon: r.Lon0, Lat: r.Lat0}
}

// ScreenPoint is a position in view space.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Project applies the forward orthographic projection centered at r.
// The second result is false when p lies on the far hemisphere; the horizon
// itself (cos c == 0) counts as visible.
func (v View) Project(p geo.Point, r Rotation) (ScreenPoint, bool) {
	lam := geo.DegToRad(p.Lon - r.Lon0)
	phi := geo.DegToRad(p.Lat)
	phi0 := geo.DegToRad(r.Lat0)

	sinPhi, cosPhi := math.Sincos(phi)
	sinPhi0, cosPhi0 := math.Sincos(phi0)
	sinLam, cosLam := math.Sincos(lam)

	cosc := sinPhi0*sinPhi + cosPhi0*cosPhi*cosLam
	if cosc < 0 {
		return ScreenPoint{}, false
	}

	x := v.Radius * cosPhi * sinLam
	y := v.Radius * (cosPhi0*sinPhi - sinPhi0*cosPhi*cosLam)

	return ScreenPoint{X: v.CenterX + x, Y: v.CenterY - y}, true
}

// Visible reports whether p is on the near hemisphere for rotation r.
func (v View) Visible(p geo.Point, r Rotation) bool {
	_, ok := v.Project(p, r)
	return ok
}
