// Package airspace defines the facility/observation model and the run state
// threaded through every rebalancing cycle.
package airspace

import (
	"errors"
	"fmt"

	"github.com/DrSkyle/skybalance/pkg/geo"
)

// ErrDuplicateFacility is returned when two facilities share a name.
var ErrDuplicateFacility = errors.New("duplicate facility name")

// Facility is a fixed-identity point whose position and load evolve per cycle.
type Facility struct {
	Name       string    `json:"name"`
	Position   geo.Point `json:"position"`
	Load       int       `json:"load"`
	Overloaded bool      `json:"overloaded"`
}

// Observation is one sighting of an entity reported by a facility.
type Observation struct {
	Facility string    `json:"facility"`
	Entity   string    `json:"entity"`
	Position geo.Point `json:"position"`
}

// State is the evolving facility snapshot owned by the cycle loop.
// Facility order is the registry order and never changes.
type State struct {
	RunID        string
	Cycle        int
	Threshold    float64
	ThresholdSet bool

	facilities []Facility
	index      map[string]int
}

// NewState builds a run state from the registry. Names must be unique and non-empty.
func NewState(facilities []Facility) (*State, error) {
	s := &State{
		facilities: make([]Facility, 0, len(facilities)),
		index:      make(map[string]int, len(facilities)),
	}
	for _, f := range facilities {
		if f.Name == "" {
			return nil, fmt.Errorf("facility at position %d has no name", len(s.facilities))
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFacility, f.Name)
		}
		s.index[f.Name] = len(s.facilities)
		s.facilities = append(s.facilities, f)
	}
	return s, nil
}

// Len returns the number of facilities.
func (s *State) Len() int { return len(s.facilities) }

// Facilities returns a copy of the facilities in registry order.
func (s *State) Facilities() []Facility {
	out := make([]Facility, len(s.facilities))
	copy(out, s.facilities)
	return out
}

// Names returns facility names in registry order.
func (s *State) Names() []string {
	out := make([]string, len(s.facilities))
	for i, f := range s.facilities {
		out[i] = f.Name
	}
	return out
}

// Get returns the facility with the given name.
func (s *State) Get(name string) (Facility, bool) {
	i, ok := s.index[name]
	if !ok {
		return Facility{}, false
	}
	return s.facilities[i], true
}

// Position returns the current coordinate of a facility.
func (s *State) Position(name string) (geo.Point, bool) {
	f, ok := s.Get(name)
	return f.Position, ok
}

// Positions returns name -> coordinate for every facility.
func (s *State) Positions() map[string]geo.Point {
	out := make(map[string]geo.Point, len(s.facilities))
	for _, f := range s.facilities {
		out[f.Name] = f.Position
	}
	return out
}

// SetPosition moves a facility. Unknown names are ignored and reported as false.
func (s *State) SetPosition(name string, p geo.Point) bool {
	i, ok := s.index[name]
	if !ok {
		return false
	}
	s.facilities[i].Position = p
	return true
}

// ApplyLoads records a cycle's load table and the overloaded flag derived
// from the run threshold. Facilities missing from loads get zero.
func (s *State) ApplyLoads(loads map[string]int) {
	for i := range s.facilities {
		l := loads[s.facilities[i].Name]
		s.facilities[i].Load = l
		s.facilities[i].Overloaded = float64(l) > s.Threshold
	}
}

// Clone returns an independent copy of the state.
func (s *State) Clone() *State {
	c := &State{
		RunID:        s.RunID,
		Cycle:        s.Cycle,
		Threshold:    s.Threshold,
		ThresholdSet: s.ThresholdSet,
		facilities:   s.Facilities(),
		index:        make(map[string]int, len(s.index)),
	}
	for k, v := range s.index {
		c.index[k] = v
	}
	return c
}
