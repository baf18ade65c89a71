package engine

import (
	"fmt"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/config"
	"github.com/DrSkyle/skybalance/pkg/engine/load"
	"github.com/DrSkyle/skybalance/pkg/engine/membership"
	"github.com/DrSkyle/skybalance/pkg/engine/policy"
	"github.com/DrSkyle/skybalance/pkg/engine/solver"
)

// Analysis is the outcome of one offline cycle.
type Analysis struct {
	Threshold float64
	Table     load.Table
	Class     load.Classification
	Plan      *solver.Plan
	// Unresolved counts entities reported only by unknown facilities.
	Unresolved int
	Filtered   int
}

// Analyze runs a single estimate/classify/adjust pass over recorded
// observations. A nil threshold is derived from the same observations;
// otherwise it is used as given, zero included.
func Analyze(facilities []airspace.Facility, obs []airspace.Observation, cfg config.RunConfig, filter *policy.Filter, override *float64) (*Analysis, error) {
	state, err := airspace.NewState(facilities)
	if err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}

	obs, filtered := filter.Apply(obs, state.Positions())
	assignment := membership.Resolve(membership.BuildIndex(obs), state.Positions())
	table := load.Estimate(assignment.ByFacility, state.Names())

	var threshold float64
	if override != nil {
		threshold = *override
	} else {
		threshold = load.Threshold(table, cfg.ThresholdMultiplier, cfg.MinLoad)
	}
	state.Threshold = threshold
	state.ThresholdSet = true
	state.ApplyLoads(table)

	class := load.Classify(table, threshold)
	plan, err := solver.NewOptimizer(solver.Config{
		StepSize:  cfg.StepSize,
		Neighbors: cfg.Neighbors,
	}).Adjust(state, table, class)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		Threshold:  threshold,
		Table:      table,
		Class:      class,
		Plan:       plan,
		Unresolved: len(assignment.Dropped),
		Filtered:   filtered,
	}, nil
}
