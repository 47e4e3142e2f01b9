// Package api serves the HTTP control surface of a running globe: the
// visitor pin, the latest frame, recent events and metrics.
package api

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/websocket/v2"

	"github.com/litescript/ls-globe/internal/geo"
	"github.com/litescript/ls-globe/internal/logging"
	"github.com/litescript/ls-globe/internal/metrics"
	"github.com/litescript/ls-globe/internal/scene"
	"github.com/litescript/ls-globe/internal/state"
	"github.com/litescript/ls-globe/internal/telemetry"
)

// Commander forwards visitor pin changes to the render loop. Implementations
// must be safe to call from request goroutines.
type Commander interface {
	SetVisitorLocation(lon, lat float64)
	ClearVisitorLocation()
}

// StateReader exposes what the render loop last produced.
type StateReader interface {
	Snapshot() state.Snapshot
}

// Dependencies holds what the handlers need.
type Dependencies struct {
	Commands Commander
	State    StateReader
	Logger   *logging.Logger
	Version  string
}

// NewApp creates a Fiber app with every route registered.
func NewApp(deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "ls-globe",
	})
	SetupRoutes(app, deps)
	return app
}

// SetupRoutes registers middleware and routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	app.Use(recover.New())
	app.Use(telemetry.Middleware())
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())
	app.Use(requestid.New())

	v1 := app.Group("/v1")
	v1.Get("/health", HealthHandler(deps))
	v1.Get("/status", StatusHandler(deps))
	v1.Get("/frame", FrameHandler(deps))
	v1.Get("/events", EventsHandler(deps))
	v1.Post("/visitor", SetVisitorHandler(deps))
	v1.Delete("/visitor", ClearVisitorHandler(deps))

	v1.Use("/stream", requireUpgrade)
	v1.Get("/stream", websocket.New(StreamHandler(deps)))

	app.Use(NotFoundHandler())
}

// NotFoundHandler answers requests no route matched with a JSON 404.
func NotFoundHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		metrics.Unmatched(c)
		return errNotFound(c, "no route for "+c.Method()+" "+c.Path())
	}
}

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		version := deps.Version
		if version == "" {
			version = "dev"
		}
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"version": version,
		})
	}
}

// StatusHandler summarizes the loop: rotation, counters and land source.
func StatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := deps.State.Snapshot()
		resp := fiber.Map{
			"frames":         snap.Frames,
			"rotation_state": snap.RotationState.String(),
			"avg_build_us":   snap.AvgBuildTime.Microseconds(),
			"land":           snap.Land,
		}
		if snap.Frame != nil {
			resp["rotation"] = snap.Frame.Rotation
			resp["visible_routes"] = len(snap.Frame.Routes)
			resp["visitor_visible"] = snap.Frame.Visitor != nil
		}
		return c.JSON(resp)
	}
}

// FrameHandler returns the latest frame as projected geometry.
func FrameHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap := deps.State.Snapshot()
		if snap.Frame == nil {
			return errUnavailable(c, "no frame rendered yet")
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(scene.Export(*snap.Frame))
	}
}

// EventsHandler returns recent events, oldest first.
func EventsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 200 {
			limit = 20
		}
		events := deps.State.Snapshot().Events
		if len(events) > limit {
			events = events[len(events)-limit:]
		}
		if events == nil {
			events = []state.Event{}
		}
		return c.JSON(events)
	}
}

// visitorRequest is the body of POST /v1/visitor.
type visitorRequest struct {
	Lon *float64 `json:"lon"`
	Lat *float64 `json:"lat"`
}

// SetVisitorHandler places the visitor pin. Latitude is clamped to
// [-90, 90] like every other latitude in the globe.
func SetVisitorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req visitorRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "body must be JSON {\"lon\": number, \"lat\": number}")
		}
		if req.Lon == nil || req.Lat == nil {
			return errBadRequest(c, "lon and lat are required")
		}
		lon, lat := *req.Lon, *req.Lat
		if !finite(lon) || !finite(lat) {
			return errBadRequest(c, "lon and lat must be finite")
		}
		p := geo.Point{Lon: geo.NormalizeLon(lon), Lat: geo.ClampLat(lat)}

		deps.Commands.SetVisitorLocation(p.Lon, p.Lat)
		if deps.Logger != nil {
			deps.Logger.Debug("visitor pin requested at %.3f, %.3f", p.Lon, p.Lat)
		}
		return c.Status(fiber.StatusAccepted).JSON(p)
	}
}

// ClearVisitorHandler hides the visitor pin.
func ClearVisitorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Commands.ClearVisitorLocation()
		return c.SendStatus(fiber.StatusAccepted)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Serve listens on addr until ctx is done, then shuts the app down.
func Serve(ctx context.Context, app *fiber.App, addr string, logger *logging.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(addr)
	}()
	logger.Info("control API listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Info("control API stopped")
	return nil
}
