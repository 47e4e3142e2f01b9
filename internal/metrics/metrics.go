// Package metrics exposes Prometheus collectors for the globe loop, land
// loading and the control API.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/litescript/ls-globe/internal/rotation"
	"github.com/litescript/ls-globe/internal/scene"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lsglobe",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lsglobe",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}, []string{"method", "path"})

	// Scene metrics
	FramesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lsglobe",
		Subsystem: "scene",
		Name:      "frames_built_total",
		Help:      "Total frames built and rendered",
	})

	FrameBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lsglobe",
		Subsystem: "scene",
		Name:      "frame_build_duration_seconds",
		Help:      "Time to build and render one frame",
		Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
	})

	VisibleRoutes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lsglobe",
		Subsystem: "scene",
		Name:      "visible_routes",
		Help:      "Routes with at least one visible run in the latest frame",
	})

	VisibleLandOutlines = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lsglobe",
		Subsystem: "scene",
		Name:      "visible_land_outlines",
		Help:      "Land outlines drawn in the latest frame",
	})

	VisitorVisible = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "lsglobe",
		Subsystem: "scene",
		Name:      "visitor_visible",
		Help:      "1 when the visitor pin is on the visible hemisphere",
	})

	// Input metrics
	PointerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lsglobe",
		Subsystem: "input",
		Name:      "pointer_events_total",
		Help:      "Pointer events by kind and resulting rotation state",
	}, []string{"kind", "state"})

	// Land metrics
	LandLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lsglobe",
		Subsystem: "land",
		Name:      "loads_total",
		Help:      "Land data loads by source and result",
	}, []string{"source", "result"})

	LandLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lsglobe",
		Subsystem: "land",
		Name:      "load_duration_seconds",
		Help:      "Duration of land data loads",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"source"})
)

// Recorder feeds scheduler notifications into the collectors.
type Recorder struct{}

// ObserveFrame records one built frame.
func (Recorder) ObserveFrame(f scene.Frame, took time.Duration) {
	FramesBuilt.Inc()
	FrameBuildDuration.Observe(took.Seconds())
	VisibleRoutes.Set(float64(len(f.Routes)))
	VisibleLandOutlines.Set(float64(len(f.Land)))
	if f.Visitor != nil {
		VisitorVisible.Set(1)
	} else {
		VisitorVisible.Set(0)
	}
}

// ObservePointer counts a pointer event.
func (Recorder) ObservePointer(kind rotation.PointerKind, state rotation.State) {
	PointerEvents.WithLabelValues(kind.String(), state.String()).Inc()
}

// RecordLand counts a land load.
func RecordLand(source string, fallback bool, took time.Duration) {
	result := "ok"
	if fallback {
		result = "fallback"
	}
	LandLoads.WithLabelValues(source, result).Inc()
	LandLoadDuration.WithLabelValues(source).Observe(took.Seconds())
}

// UnmatchedRoute labels requests that no route handled.
const UnmatchedRoute = "unmatched"

const routeLabelKey = "metrics.route"

// Unmatched marks the request as handled by a catch-all, so it is counted
// under UnmatchedRoute instead of its raw path.
func Unmatched(c *fiber.Ctx) {
	c.Locals(routeLabelKey, UnmatchedRoute)
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(StatusCode(c, err))
		path, ok := c.Locals(routeLabelKey).(string)
		if !ok {
			path = c.Route().Path
		}
		if path == "" {
			path = UnmatchedRoute
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// StatusCode is the status the client will see once err, if any, has gone
// through Fiber's error handler.
func StatusCode(c *fiber.Ctx, err error) int {
	if err == nil {
		return c.Response().StatusCode()
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return fiber.StatusInternalServerError
}

// Handler returns a Fiber handler serving the Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}
