// Package membership resolves which facility owns each observed entity.
package membership

import (
	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/geo"
)

// Candidate is one facility that reported an entity, with the entity's
// position as seen in that report.
type Candidate struct {
	Facility string
	Position geo.Point
}

// Index maps entity id to the facilities that reported it this cycle.
// Entities appear in first-seen order; candidates keep report order.
type Index struct {
	order      []string
	candidates map[string][]Candidate
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{candidates: make(map[string][]Candidate)}
}

// BuildIndex indexes observations in the order given.
func BuildIndex(obs []airspace.Observation) *Index {
	idx := NewIndex()
	for _, o := range obs {
		idx.Add(o)
	}
	return idx
}

// Add records one observation. Observations without an entity id are ignored.
func (i *Index) Add(o airspace.Observation) {
	if o.Entity == "" {
		return
	}
	if _, seen := i.candidates[o.Entity]; !seen {
		i.order = append(i.order, o.Entity)
	}
	i.candidates[o.Entity] = append(i.candidates[o.Entity], Candidate{
		Facility: o.Facility,
		Position: o.Position,
	})
}

// Entities returns entity ids in first-seen order.
func (i *Index) Entities() []string {
	out := make([]string, len(i.order))
	copy(out, i.order)
	return out
}

// Candidates returns the reports for an entity.
func (i *Index) Candidates(entity string) []Candidate {
	return i.candidates[entity]
}

// Len returns the number of distinct entities.
func (i *Index) Len() int { return len(i.order) }

// Ambiguous returns how many entities were reported by more than one facility.
func (i *Index) Ambiguous() int {
	n := 0
	for _, e := range i.order {
		if distinctFacilities(i.candidates[e]) > 1 {
			n++
		}
	}
	return n
}

func distinctFacilities(cs []Candidate) int {
	seen := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		seen[c.Facility] = struct{}{}
	}
	return len(seen)
}
