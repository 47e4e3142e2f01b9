package land

import "github.com/litescript/ls-globe/internal/geo"

// fallback holds five hand-drawn continental outlines as [lon, lat] pairs:
// North America, South America, Europe with Africa, Asia, Australia.
var fallback = [][][2]float64{
	{{-168, 72}, {-140, 70}, {-125, 60}, {-100, 49}, {-95, 40}, {-105, 32}, {-117, 32}, {-123, 49}, {-135, 56}, {-150, 60}, {-160, 65}, {-168, 72}},
	{{-82, 12}, {-75, 5}, {-70, -3}, {-63, -10}, {-64, -20}, {-60, -30}, {-56, -34}, {-54, -45}, {-49, -48}, {-45, -23}, {-50, -10}, {-60, -5}, {-70, 0}, {-75, 5}, {-82, 12}},
	{{-10, 36}, {0, 43}, {10, 46}, {20, 45}, {30, 44}, {40, 44}, {50, 40}, {45, 35}, {36, 32}, {27, 37}, {14, 37}, {5, 36}, {-5, 36}, {-10, 36}, {-10, 20}, {-5, 10}, {0, 5}, {10, 4}, {20, 0}, {25, -10}, {20, -20}, {10, -25}, {0, -25}, {-10, -20}, {-10, 0}, {-12, 10}, {-10, 20}},
	{{60, 55}, {75, 55}, {90, 50}, {105, 42}, {120, 40}, {130, 45}, {140, 50}, {150, 55}, {160, 60}, {170, 62}, {170, 50}, {160, 45}, {150, 40}, {140, 35}, {130, 30}, {120, 25}, {110, 20}, {100, 20}, {90, 25}, {80, 30}, {70, 40}, {60, 45}, {60, 55}},
	{{113, -22}, {120, -20}, {132, -18}, {138, -22}, {142, -28}, {145, -38}, {134, -35}, {126, -30}, {122, -26}, {118, -25}, {113, -22}},
}

// FallbackRings returns a fresh copy of the built-in coarse continents.
func FallbackRings() []geo.Ring {
	out := make([]geo.Ring, len(fallback))
	for i, pts := range fallback {
		ring := make(geo.Ring, len(pts))
		for j, p := range pts {
			ring[j] = geo.Point{Lon: p[0], Lat: p[1]}
		}
		out[i] = ring
	}
	return out
}
