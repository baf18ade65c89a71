package policy

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
)

// Rule actions.
const (
	ActionDrop = "drop"
	ActionWarn = "warn"
)

// DynamicRule represents a user-defined observation rule (e.g. from YAML).
type DynamicRule struct {
	ID        string `json:"id" yaml:"id"`
	Condition string `json:"condition" yaml:"condition"` // CEL expression: "distance > 0.3 && facility == 'CDG'"
	Action    string `json:"action" yaml:"action"`       // "drop" or "warn"
}

// EvaluationContext is the variable set a rule sees for one observation.
type EvaluationContext struct {
	Facility string
	Entity   string
	Lat      float64
	Lon      float64
	// Distance is the planar distance from the reporting facility, in degrees.
	Distance float64
}

func (c EvaluationContext) vars() map[string]any {
	return map[string]any{
		"facility": c.Facility,
		"entity":   c.Entity,
		"lat":      c.Lat,
		"lon":      c.Lon,
		"distance": c.Distance,
	}
}

type compiled struct {
	rule DynamicRule
	prg  cel.Program
}

// CELEngine manages the compilation and execution of dynamic rules.
type CELEngine struct {
	env      *cel.Env
	programs []compiled
}

// NewCELEngine initializes the CEL environment with the observation variables.
func NewCELEngine() (*CELEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("facility", cel.StringType),
		cel.Variable("entity", cel.StringType),
		cel.Variable("lat", cel.DoubleType),
		cel.Variable("lon", cel.DoubleType),
		cel.Variable("distance", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}
	return &CELEngine{env: env}, nil
}

// Compile compiles a list of rules into executable programs. Rules must
// evaluate to a boolean.
func (e *CELEngine) Compile(rules []DynamicRule) error {
	for _, r := range rules {
		switch r.Action {
		case ActionDrop, ActionWarn:
		default:
			return fmt.Errorf("rule %s: unknown action %q", r.ID, r.Action)
		}

		ast, issues := e.env.Compile(r.Condition)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("rule %s compilation error: %w", r.ID, issues.Err())
		}
		if !ast.OutputType().IsExactType(cel.BoolType) {
			return fmt.Errorf("rule %s must evaluate to bool, got %s", r.ID, ast.OutputType())
		}

		prg, err := e.env.Program(ast)
		if err != nil {
			return fmt.Errorf("rule %s program creation error: %w", r.ID, err)
		}

		e.programs = append(e.programs, compiled{rule: r, prg: prg})
	}
	return nil
}

// Len returns the number of compiled rules.
func (e *CELEngine) Len() int { return len(e.programs) }

// Evaluate returns the rules matching data, in compile order.
// Rules that fail at runtime are logged and treated as not matching.
func (e *CELEngine) Evaluate(data EvaluationContext) []DynamicRule {
	var matches []DynamicRule
	vars := data.vars()

	for _, c := range e.programs {
		out, _, err := c.prg.Eval(vars)
		if err != nil {
			slog.Error("Rule evaluation failed", "rule_id", c.rule.ID, "error", err)
			continue
		}
		if match, ok := out.Value().(bool); ok && match {
			matches = append(matches, c.rule)
		}
	}
	return matches
}
