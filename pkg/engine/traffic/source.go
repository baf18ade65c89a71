// Package traffic retrieves entity sightings around facilities.
package traffic

import (
	"context"
	"errors"
	"time"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/geo"
)

// ErrThrottled is returned when the upstream rejects a call for rate reasons.
var ErrThrottled = errors.New("traffic source throttled")

// Sighting is one entity seen near a facility.
type Sighting struct {
	Entity   string
	Position geo.Point
}

// Source looks up the entities within radius (nautical miles) of a facility.
type Source interface {
	Name() string
	Fetch(ctx context.Context, f airspace.Facility, radius int) ([]Sighting, error)
}

// Result is the outcome of one facility's retrieval.
type Result struct {
	Facility  string
	Sightings []Sighting
	Err       error
	Latency   time.Duration
}

// Fold flattens results into observations in the order given. Failed
// results contribute nothing and are reported by name.
func Fold(results []Result) (obs []airspace.Observation, failed []string) {
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Facility)
			continue
		}
		for _, s := range r.Sightings {
			obs = append(obs, airspace.Observation{
				Facility: r.Facility,
				Entity:   s.Entity,
				Position: s.Position,
			})
		}
	}
	return obs, failed
}
