// Package land supplies the coastline rings drawn on the globe, from a
// GeoJSON document over HTTP or on disk, with a built-in coarse fallback.
package land

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/litescript/ls-globe/internal/geo"
	"github.com/litescript/ls-globe/internal/logging"
	"github.com/litescript/ls-globe/internal/telemetry"
)

// DefaultTargetPoints is the approximate vertex count rings are decimated to.
const DefaultTargetPoints = 120

// ErrNoRings is returned when a document parses but yields no usable ring.
var ErrNoRings = errors.New("no land rings in data")

// Source produces land rings.
type Source interface {
	FetchLandRings(ctx context.Context) ([]geo.Ring, error)
}

// FileSource reads a GeoJSON document from disk.
type FileSource struct {
	Path         string
	TargetPoints int
}

// FetchLandRings reads and parses the file.
func (s FileSource) FetchLandRings(ctx context.Context) ([]geo.Ring, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read land file: %w", err)
	}
	rings, err := ParseGeoJSON(data, s.TargetPoints)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.Path, err)
	}
	return rings, nil
}

// Kind names the source for logs and metrics.
func (s FileSource) Kind() string { return "file" }

// Result is the outcome of Load. Rings is never empty.
type Result struct {
	Rings    []geo.Ring
	Source   string // "http", "file" or "none"
	Fallback bool   // true when Rings are the built-in fallback
	Duration time.Duration
	Err      error // why the fallback was used, if it was
}

// Load fetches rings from src, substituting the fallback rings on any
// failure. It never returns an empty ring set.
func Load(ctx context.Context, src Source, logger *logging.Logger) Result {
	if logger == nil {
		logger = logging.Discard()
	}
	res := Result{Source: kindOf(src)}

	ctx, span := telemetry.Tracer().Start(ctx, "land.Load")
	defer func() {
		span.SetAttributes(
			attribute.String("land.source", res.Source),
			attribute.Int("land.rings", len(res.Rings)),
			attribute.Bool("land.fallback", res.Fallback),
		)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.End()
	}()

	if src == nil {
		res.Rings = FallbackRings()
		res.Fallback = true
		logger.Info("no land source configured, using %d fallback rings", len(res.Rings))
		return res
	}

	start := time.Now()
	rings, err := src.FetchLandRings(ctx)
	res.Duration = time.Since(start)
	if err == nil && len(rings) == 0 {
		err = ErrNoRings
	}
	if err != nil {
		res.Rings = FallbackRings()
		res.Fallback = true
		res.Err = err
		logger.Warn("land %s source failed after %v, using fallback: %v", res.Source, res.Duration.Round(time.Millisecond), err)
		return res
	}

	res.Rings = rings
	logger.Info("loaded %d land rings from %s in %v", len(rings), res.Source, res.Duration.Round(time.Millisecond))
	return res
}

func kindOf(src Source) string {
	if src == nil {
		return "none"
	}
	if k, ok := src.(interface{ Kind() string }); ok {
		return k.Kind()
	}
	return "custom"
}
