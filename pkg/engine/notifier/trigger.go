// Package notifier fires downstream actions at run milestones.
package notifier

import (
	"context"
	"errors"
)

// Stages at which triggers fire.
const (
	StageInitial = "initial"
	StageFinal   = "final"
)

// Summary describes the run state at a milestone.
type Summary struct {
	RunID     string  `json:"run_id"`
	Stage     string  `json:"stage"`
	Cycle     int     `json:"cycle"`
	Threshold float64 `json:"threshold"`
	TotalLoad int     `json:"total_load"`

	Overloaded    []string `json:"overloaded"`
	Underutilized []string `json:"underutilized"`
	Idle          []string `json:"idle"`

	Displacement float64 `json:"displacement"`
	// Artifact is where the stage's annotated table was written.
	Artifact string `json:"artifact"`
}

// Trigger is a downstream action. Fire must not block on the action's
// completion.
type Trigger interface {
	Fire(ctx context.Context, s Summary) error
}

// Multi fires every trigger and joins their errors.
type Multi []Trigger

func (m Multi) Fire(ctx context.Context, s Summary) error {
	var errs []error
	for _, t := range m {
		if t == nil {
			continue
		}
		if err := t.Fire(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
