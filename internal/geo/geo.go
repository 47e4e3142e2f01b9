// Package geo provides spherical primitives for working with geographic points.
package geo

import (
	"math"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for surface distances.
const EarthRadiusKm = 6371.0088

// Point is a geographic position in degrees.
// Lat is in [-90, 90]; Lon is not normalized and compares modulo 360.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Ring is an implicitly closed sequence of points (first and last joined).
type Ring []Point

// Vec3 is a 3D cartesian vector on (or near) the unit sphere.
type Vec3 struct {
	X, Y, Z float64
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(u Vec3) float64 {
	return v.X*u.X + v.Y*u.Y + v.Z*u.Z
}

// Add returns the sum of two vectors.
func (v Vec3) Add(u Vec3) Vec3 {
	return Vec3{X: v.X + u.X, Y: v.Y + u.Y, Z: v.Z + u.Z}
}

// Scale returns the vector scaled by a factor.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Norm returns the magnitude of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Normalized returns a unit vector in the same direction.
// A zero vector is treated as having length 1 and comes back unchanged.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n == 0 {
		n = 1
	}
	return Vec3{X: v.X / n, Y: v.Y / n, Z: v.Z / n}
}

// LonLat converts a unit vector back to a geographic point in degrees.
func (v Vec3) LonLat() Point {
	return Point{
		Lon: RadToDeg(math.Atan2(v.Y, v.X)),
		Lat: RadToDeg(math.Asin(Clamp(v.Z, -1, 1))),
	}
}

// UnitVector converts longitude/latitude in radians to a unit vector
// (cosφ·cosλ, cosφ·sinλ, sinφ).
func UnitVector(lonRad, latRad float64) Vec3 {
	cosLat := math.Cos(latRad)
	return Vec3{
		X: cosLat * math.Cos(lonRad),
		Y: cosLat * math.Sin(lonRad),
		Z: math.Sin(latRad),
	}
}

// Vector returns the unit vector for a point.
func (p Point) Vector() Vec3 {
	return UnitVector(DegToRad(p.Lon), DegToRad(p.Lat))
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// ClampLat limits a latitude to [-90, 90].
func ClampLat(lat float64) float64 {
	return Clamp(lat, -90, 90)
}

// NormalizeLon wraps a longitude to [-180, 180).
func NormalizeLon(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// SameLocation reports whether two points name the same place,
// comparing longitude modulo 360.
func SameLocation(a, b Point) bool {
	if a.Lat != b.Lat {
		return false
	}
	// Longitude is meaningless at the poles.
	if math.Abs(a.Lat) == 90 {
		return true
	}
	return NormalizeLon(a.Lon) == NormalizeLon(b.Lon)
}

func (p Point) s2Point() s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon))
}

// AngularDistance returns the great-circle separation between two points in degrees.
func AngularDistance(a, b Point) float64 {
	return a.s2Point().Distance(b.s2Point()).Degrees()
}

// DistanceKm returns the great-circle surface distance between two points.
func DistanceKm(a, b Point) float64 {
	return a.s2Point().Distance(b.s2Point()).Radians() * EarthRadiusKm
}
