// Package solver moves facilities so that congestion drains toward
// underutilized neighbors.
package solver

import (
	"fmt"
	"sort"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine/load"
	"github.com/DrSkyle/skybalance/pkg/geo"
)

// Defaults for Config.
const (
	DefaultStepSize  = 0.1
	DefaultNeighbors = 3
)

// Config tunes the position adjuster.
type Config struct {
	// StepSize caps how far one pairwise adjustment moves a facility.
	StepSize float64
	// Neighbors is how many nearest facilities each overloaded facility considers.
	Neighbors int
}

// Move is one pairwise displacement between an overloaded facility and an
// underutilized neighbor.
type Move struct {
	Overloaded string
	Neighbor   string
	// Direction is the unit vector from the neighbor toward the overloaded facility.
	Direction geo.Point
	Step      float64
	// Coincident marks a pair sharing a coordinate; no movement was applied.
	Coincident bool
}

// Plan is the result of one adjustment pass.
type Plan struct {
	State        *airspace.State
	Moves        []Move
	Skipped      []Move
	Instructions []string
}

// TotalDisplacement sums the distance travelled by every facility in the plan.
func (p *Plan) TotalDisplacement() float64 {
	total := 0.0
	for _, m := range p.Moves {
		total += 2 * m.Step
	}
	return total
}

// Optimizer runs the position adjustment step.
type Optimizer struct {
	cfg Config
}

// NewOptimizer returns an optimizer; zero fields fall back to the defaults.
func NewOptimizer(cfg Config) *Optimizer {
	if cfg.StepSize <= 0 {
		cfg.StepSize = DefaultStepSize
	}
	if cfg.Neighbors <= 0 {
		cfg.Neighbors = DefaultNeighbors
	}
	return &Optimizer{cfg: cfg}
}

// Config returns the effective configuration.
func (o *Optimizer) Config() Config { return o.cfg }

// Adjust computes the next facility snapshot. The input state is not modified.
//
// Overloaded facilities are processed in the classification's name order.
// Each one looks up its nearest neighbors on the snapshot as it stands at that
// moment, so displacements made earlier in the pass are visible to later ones.
// Neighbors are visited least loaded first, and only underutilized neighbors
// move.
func (o *Optimizer) Adjust(state *airspace.State, table load.Table, class load.Classification) (*Plan, error) {
	next := state.Clone()
	plan := &Plan{State: next}

	for _, over := range class.Overloaded {
		overLoad := table[over]
		if overLoad <= 0 {
			return nil, fmt.Errorf("overloaded facility %s has load %d", over, overLoad)
		}
		if _, ok := next.Get(over); !ok {
			return nil, fmt.Errorf("overloaded facility %s is not in the registry", over)
		}

		neighbors := Nearest(next.Facilities(), over, o.cfg.Neighbors)
		sort.SliceStable(neighbors, func(i, j int) bool {
			return table[neighbors[i]] < table[neighbors[j]]
		})

		for _, n := range neighbors {
			if !class.IsUnderutilized(n) {
				continue
			}
			posO, _ := next.Position(over)
			posN, _ := next.Position(n)

			m := Move{Overloaded: over, Neighbor: n}
			dir, ok := geo.Direction(posN, posO)
			if !ok {
				m.Coincident = true
				plan.Skipped = append(plan.Skipped, m)
				plan.Instructions = append(plan.Instructions,
					fmt.Sprintf("skip %s <-> %s: coincident coordinates", over, n))
				continue
			}

			m.Direction = dir
			m.Step = o.cfg.StepSize * float64(overLoad-table[n]) / float64(overLoad)
			delta := geo.Scale(dir, m.Step)
			next.SetPosition(n, geo.Add(posN, delta))
			next.SetPosition(over, geo.Sub(posO, delta))

			plan.Moves = append(plan.Moves, m)
			plan.Instructions = append(plan.Instructions,
				fmt.Sprintf("move %s and %s together by %.5f (loads %d/%d)", n, over, m.Step, table[n], overLoad))
		}
	}

	return plan, nil
}
