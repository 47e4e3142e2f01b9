package scene

import "github.com/litescript/ls-globe/internal/geo"

// DefaultPhaseSpacing staggers the initial dash offsets of consecutive routes.
const DefaultPhaseSpacing = 120

// DefaultRoutes returns the demo network of hub-to-hub routes, each with
// its dash phase offset by index*spacing so they do not pulse in unison.
func DefaultRoutes(spacing float64) []Route {
	routes := []Route{
		{Name: "NYC-LON", From: geo.Point{Lon: -74, Lat: 40.7}, To: geo.Point{Lon: -0.1, Lat: 51.5}},
		{Name: "LON-DEL", From: geo.Point{Lon: -0.1, Lat: 51.5}, To: geo.Point{Lon: 77.2, Lat: 28.6}},
		{Name: "TYO-SFO", From: geo.Point{Lon: 139.7, Lat: 35.7}, To: geo.Point{Lon: -122.3, Lat: 37.8}},
		{Name: "PAR-SYD", From: geo.Point{Lon: 2.35, Lat: 48.85}, To: geo.Point{Lon: 151.2, Lat: -33.9}},
		{Name: "BER-MOW", From: geo.Point{Lon: 13.4, Lat: 52.5}, To: geo.Point{Lon: 37.6, Lat: 55.7}},
		{Name: "BUE-MAD", From: geo.Point{Lon: -58.4, Lat: -34.6}, To: geo.Point{Lon: -3.7, Lat: 40.4}},
	}
	for i := range routes {
		routes[i].Phase = float64(i) * spacing
	}
	return routes
}
