package engine

import (
	"context"
	"time"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine/history"
	"github.com/DrSkyle/skybalance/pkg/engine/load"
	"github.com/DrSkyle/skybalance/pkg/engine/membership"
	"github.com/DrSkyle/skybalance/pkg/engine/notifier"
	"github.com/DrSkyle/skybalance/pkg/engine/snapshot"
	"github.com/DrSkyle/skybalance/pkg/engine/solver"
	"github.com/DrSkyle/skybalance/pkg/engine/traffic"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CycleReport describes one completed cycle.
type CycleReport struct {
	RunID      string
	Cycle      int
	Iterations int
	Threshold  float64

	// Facilities carries this cycle's loads at the positions they were measured at.
	Facilities []airspace.Facility
	// Adjusted holds the positions the next cycle starts from.
	Adjusted []airspace.Facility

	Class   load.Classification
	Moves   []solver.Move
	Skipped []solver.Move

	Failed       []string
	Filtered     int
	Unresolved   int
	Displacement float64
}

// Observer receives cycle reports. It is called synchronously from Run.
type Observer func(CycleReport)

// Result summarizes a finished run.
type Result struct {
	RunID     string
	Threshold float64
	Cycles    int
	// State holds the final positions and the last cycle's loads.
	State *airspace.State
	Trend history.Trend

	FailedFetches int
	StorageErrors int
}

// Partial reports whether any cycle lost observations or artifacts.
func (r *Result) Partial() bool {
	return r.FailedFetches > 0 || r.StorageErrors > 0
}

func (r *Result) absorb(h health) {
	r.FailedFetches += len(h.Failed)
	r.StorageErrors += h.StorageErrors
}

// health tracks what went wrong outside the core in one pass.
type health struct {
	Failed        []string
	Filtered      int
	StorageErrors int
}

type baselineResult struct {
	health
	Threshold float64
	Table     load.Table
}

type cycleOutput struct {
	health
	State *airspace.State
}

// baseline measures the registry once and derives the run threshold.
func (e *Engine) baseline(ctx context.Context, state *airspace.State, c *traffic.Collector) baselineResult {
	ctx, span := e.Tracer.Start(ctx, "Baseline")
	defer span.End()

	obs, h := e.observe(ctx, state, c, snapshot.BaselineKey)
	assignment := membership.Resolve(membership.BuildIndex(obs), state.Positions())
	table := load.Estimate(assignment.ByFacility, state.Names())
	threshold := load.Threshold(table, e.config.Run.ThresholdMultiplier, e.config.Run.MinLoad)

	span.SetAttributes(
		attribute.Float64("baseline.threshold", threshold),
		attribute.Int("baseline.total_load", table.Total()),
	)
	e.Logger.Info("Baseline complete",
		"threshold", threshold,
		"total_load", table.Total(),
		"failed", len(h.Failed))

	return baselineResult{health: h, Threshold: threshold, Table: table}
}

// runCycle collects, estimates, classifies and adjusts once. The returned
// state is a new snapshot; state itself only receives the cycle's loads.
func (e *Engine) runCycle(ctx context.Context, state *airspace.State, c *traffic.Collector) (cycleOutput, error) {
	ctx, span := e.Tracer.Start(ctx, "Cycle", trace.WithAttributes(attribute.Int("cycle", state.Cycle)))
	defer span.End()

	obs, h := e.observe(ctx, state, c, snapshot.ObservationsKey)

	assignment := membership.Resolve(membership.BuildIndex(obs), state.Positions())
	table := load.Estimate(assignment.ByFacility, state.Names())
	class := load.Classify(table, state.Threshold)
	state.ApplyLoads(table)

	if err := e.Snapshots.PutLoads(ctx, state.Names(), table); err != nil {
		e.storageFailed(&h, "Failed to write load table", err)
	}
	if e.Sink != nil {
		if err := e.Sink.RecordLoads(ctx, state.RunID, state.Cycle, state.Facilities()); err != nil {
			e.storageFailed(&h, "Failed to record loads", err)
		}
	}
	e.Metrics.ObserveCycle(state.Cycle, state.Threshold, state.Facilities())

	first := state.Cycle == 0
	if first {
		if err := e.Snapshots.PutAnnotated(ctx, snapshot.InitialKey, state.Facilities()); err != nil {
			e.storageFailed(&h, "Failed to write annotated table", err)
		}
		if e.Sink != nil {
			if err := e.Sink.RecordPositions(ctx, state.RunID, notifier.StageInitial, state.Facilities()); err != nil {
				e.storageFailed(&h, "Failed to record positions", err)
			}
		}
	}

	plan, err := e.adjust(ctx, state, table, class)
	if err != nil {
		return cycleOutput{}, err
	}
	for _, m := range plan.Skipped {
		e.Logger.Warn("Skipped coincident pair", "cycle", state.Cycle, "overloaded", m.Overloaded, "neighbor", m.Neighbor)
	}
	displacement := plan.TotalDisplacement()
	e.Metrics.ObserveAdjustment(displacement, len(plan.Skipped))

	if first {
		e.fire(ctx, notifier.StageInitial, summarize(state, class, displacement, snapshot.InitialKey))
	}

	entry := history.Entry{
		RunID:            state.RunID,
		Cycle:            state.Cycle,
		Timestamp:        time.Now().Unix(),
		Threshold:        state.Threshold,
		TotalLoad:        table.Total(),
		Overloaded:       len(class.Overloaded),
		Underutilized:    len(class.Underutilized),
		Idle:             len(class.Idle),
		FailedFacilities: len(h.Failed),
		Moves:            len(plan.Moves),
		Skipped:          len(plan.Skipped),
		Displacement:     displacement,
		Loads:            loadVector(state),
	}
	if err := e.History.Append(ctx, entry); err != nil {
		e.storageFailed(&h, "Failed to append ledger entry", err)
	}

	span.SetAttributes(
		attribute.Int("cycle.total_load", entry.TotalLoad),
		attribute.Int("cycle.overloaded", entry.Overloaded),
		attribute.Int("cycle.moves", entry.Moves),
		attribute.Float64("cycle.displacement", displacement),
	)
	e.Logger.Info("Cycle complete",
		"cycle", state.Cycle,
		"total_load", entry.TotalLoad,
		"overloaded", entry.Overloaded,
		"underutilized", entry.Underutilized,
		"idle", entry.Idle,
		"moves", entry.Moves,
		"skipped", entry.Skipped,
		"displacement", displacement,
		"failed", len(h.Failed))

	if e.observer != nil {
		e.observer(CycleReport{
			RunID:        state.RunID,
			Cycle:        state.Cycle,
			Iterations:   e.config.Run.Iterations,
			Threshold:    state.Threshold,
			Facilities:   state.Facilities(),
			Adjusted:     plan.State.Facilities(),
			Class:        class,
			Moves:        plan.Moves,
			Skipped:      plan.Skipped,
			Failed:       h.Failed,
			Filtered:     h.Filtered,
			Unresolved:   len(assignment.Dropped),
			Displacement: displacement,
		})
	}

	return cycleOutput{health: h, State: plan.State}, nil
}

func (e *Engine) adjust(ctx context.Context, state *airspace.State, table load.Table, class load.Classification) (*solver.Plan, error) {
	_, span := e.Tracer.Start(ctx, "Adjust", trace.WithAttributes(attribute.Int("overloaded", len(class.Overloaded))))
	defer span.End()

	plan, err := e.optimizer.Adjust(state, table, class)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, line := range plan.Instructions {
		e.Logger.Debug("Adjustment", "cycle", state.Cycle, "step", line)
	}
	return plan, nil
}

// observe collects every facility, filters the observations, writes the
// dump under key and returns the dump as read back. When the dump cannot be
// stored the in-memory observations are used.
func (e *Engine) observe(ctx context.Context, state *airspace.State, c *traffic.Collector, key string) ([]airspace.Observation, health) {
	var h health

	results := c.Collect(ctx, state.Facilities())
	obs, failed := traffic.Fold(results)
	for _, r := range results {
		if r.Err != nil {
			e.Logger.Warn("Traffic fetch failed", "facility", r.Facility, "error", r.Err)
			e.Metrics.FetchFailed(r.Facility)
		}
	}
	h.Failed = failed

	obs, dropped := e.filter.Apply(obs, state.Positions())
	h.Filtered = dropped
	if dropped > 0 {
		e.Logger.Info("Observations filtered", "dropped", dropped, "kept", len(obs))
	}

	if err := e.Snapshots.PutObservations(ctx, key, obs); err != nil {
		e.storageFailed(&h, "Failed to write observation dump", err)
		return obs, h
	}
	decoded, err := e.Snapshots.Observations(ctx, key)
	if err != nil {
		e.storageFailed(&h, "Failed to read observation dump", err)
		return obs, h
	}
	return decoded, h
}

// finish writes the final annotated table, fires the final trigger and
// summarizes the run from the ledger. The table's loads and flags are those
// measured in the last cycle, before its adjustment moved the positions.
func (e *Engine) finish(ctx context.Context, state *airspace.State, res *Result) error {
	var h health
	if err := e.Snapshots.PutAnnotated(ctx, snapshot.FinalKey, state.Facilities()); err != nil {
		e.storageFailed(&h, "Failed to write adjusted table", err)
	}
	if e.Sink != nil {
		if err := e.Sink.RecordPositions(ctx, state.RunID, notifier.StageFinal, state.Facilities()); err != nil {
			e.storageFailed(&h, "Failed to record positions", err)
		}
	}
	res.absorb(h)

	names := state.Names()
	loads := make(load.Table, len(names))
	for _, f := range state.Facilities() {
		loads[f.Name] = f.Load
	}
	class := load.Classify(loads, state.Threshold)
	e.fire(ctx, notifier.StageFinal, summarize(state, class, 0, snapshot.FinalKey))

	entries, err := e.History.LoadWindow(ctx, e.config.Run.Iterations)
	if err != nil {
		e.Logger.Warn("Failed to load ledger", "error", err)
		return nil
	}
	res.Trend = history.Analyze(history.LatestRun(entries))
	for _, alert := range res.Trend.Alerts {
		e.Logger.Warn("Trend alert", "run_id", res.RunID, "alert", alert)
	}
	e.Logger.Info("Run complete",
		"run_id", res.RunID,
		"cycles", res.Cycles,
		"first_overloaded", res.Trend.FirstOverloaded,
		"last_overloaded", res.Trend.LastOverloaded,
		"non_increasing", res.Trend.NonIncreasing,
		"mean_displacement", res.Trend.MeanDisplacement)
	return nil
}

func (e *Engine) fire(ctx context.Context, stage string, s notifier.Summary) {
	triggers := e.triggers[stage]
	if len(triggers) == 0 {
		return
	}
	s.Stage = stage
	if err := triggers.Fire(ctx, s); err != nil {
		e.Logger.Warn("Trigger failed", "stage", stage, "error", err)
		return
	}
	e.Logger.Info("Trigger fired", "stage", stage, "triggers", len(triggers))
}

func (e *Engine) storageFailed(h *health, msg string, err error) {
	h.StorageErrors++
	e.Logger.Error(msg, "error", err)
}

func summarize(state *airspace.State, class load.Classification, displacement float64, artifact string) notifier.Summary {
	total := 0
	for _, f := range state.Facilities() {
		total += f.Load
	}
	return notifier.Summary{
		RunID:         state.RunID,
		Cycle:         state.Cycle,
		Threshold:     state.Threshold,
		TotalLoad:     total,
		Overloaded:    class.Overloaded,
		Underutilized: class.Underutilized,
		Idle:          class.Idle,
		Displacement:  displacement,
		Artifact:      artifact,
	}
}

func loadVector(state *airspace.State) history.Vector {
	fs := state.Facilities()
	v := make(history.Vector, len(fs))
	for i, f := range fs {
		v[i] = float64(f.Load)
	}
	return v
}
