// Package policy filters observations with CEL rules before they reach
// membership resolution.
package policy

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/geo"
	"gopkg.in/yaml.v3"
)

// RuleFile is the on-disk rule format.
type RuleFile struct {
	Rules []DynamicRule `yaml:"rules"`
}

// LoadRules reads a YAML rule file.
func LoadRules(path string) ([]DynamicRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	var f RuleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rules %s: %w", path, err)
	}
	return f.Rules, nil
}

// Filter applies drop/warn rules to a cycle's observations.
type Filter struct {
	engine *CELEngine
	logger *slog.Logger
}

// NewFilter compiles rules into a filter. A nil logger uses slog.Default.
func NewFilter(rules []DynamicRule, logger *slog.Logger) (*Filter, error) {
	e, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	if err := e.Compile(rules); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{engine: e, logger: logger}, nil
}

// Apply returns the observations no drop rule matched, preserving order,
// and the number dropped. positions holds facility coordinates for the
// distance variable.
func (f *Filter) Apply(obs []airspace.Observation, positions map[string]geo.Point) ([]airspace.Observation, int) {
	if f == nil || f.engine.Len() == 0 {
		return obs, 0
	}

	kept := make([]airspace.Observation, 0, len(obs))
	dropped := 0
	for _, o := range obs {
		ctx := EvaluationContext{
			Facility: o.Facility,
			Entity:   o.Entity,
			Lat:      o.Position.X,
			Lon:      o.Position.Y,
		}
		if p, ok := positions[o.Facility]; ok {
			ctx.Distance = geo.Distance(p, o.Position)
		}

		drop := false
		for _, r := range f.engine.Evaluate(ctx) {
			if r.Action == ActionDrop {
				drop = true
				continue
			}
			f.logger.Warn("Observation matched rule", "rule_id", r.ID, "facility", o.Facility, "entity", o.Entity)
		}
		if drop {
			dropped++
			continue
		}
		kept = append(kept, o)
	}
	return kept, dropped
}
