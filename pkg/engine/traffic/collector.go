package traffic

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine/swarm"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Collector fans retrieval out over the swarm pool.
type Collector struct {
	Source Source
	Pool   *swarm.Engine
	Radius int
	Logger *slog.Logger
}

// NewCollector wires a source to a pool. Throttling errors from the source
// feed the pool's AIMD controller.
func NewCollector(src Source, pool *swarm.Engine, radius int, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	pool.IsThrottled = func(err error) bool { return errors.Is(err, ErrThrottled) }
	return &Collector{Source: src, Pool: pool, Radius: radius, Logger: logger}
}

// Collect fetches every facility and returns one result per facility, in
// the order of facilities regardless of completion order.
func (c *Collector) Collect(ctx context.Context, facilities []airspace.Facility) []Result {
	ctx, span := otel.Tracer("skybalance/traffic").Start(ctx, "Collect", trace.WithAttributes(
		attribute.String("source", c.Source.Name()),
		attribute.Int("facilities", len(facilities)),
	))
	defer span.End()

	results := make([]Result, len(facilities))
	tasks := make([]swarm.Task, len(facilities))
	for i, f := range facilities {
		i, f := i, f
		results[i].Facility = f.Name
		tasks[i] = func(ctx context.Context) error {
			results[i] = c.fetchWithTelemetry(ctx, f)
			return results[i].Err
		}
	}

	for i, err := range c.Pool.Run(ctx, tasks) {
		// Tasks never started keep only the facility name.
		if err != nil && results[i].Err == nil {
			results[i].Err = err
		}
	}
	return results
}

func (c *Collector) fetchWithTelemetry(ctx context.Context, f airspace.Facility) Result {
	ctx, span := otel.Tracer("skybalance/traffic").Start(ctx, "Fetch", trace.WithAttributes(
		attribute.String("facility", f.Name),
		attribute.Float64("lat", f.Position.X),
		attribute.Float64("lon", f.Position.Y),
	))
	defer span.End()

	start := time.Now()
	sightings, err := c.Source.Fetch(ctx, f, c.Radius)
	res := Result{Facility: f.Name, Sightings: sightings, Err: err, Latency: time.Since(start)}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		res.Sightings = nil
		c.Logger.Error("Error fetching data", "facility", f.Name, "error", err)
	} else {
		span.SetAttributes(attribute.Int("sightings", len(sightings)))
		c.Logger.Debug("Fetched sightings", "facility", f.Name, "count", len(sightings), "latency", res.Latency)
	}
	return res
}
